package logging

import (
	"context"
)

const (
	NotificationIDKey = "notification_id"
	ComponentKey      = "component"
	InstanceIDKey     = "instance_id"
)

func WithNotificationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, NotificationIDKey, id)
}

func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, ComponentKey, component)
}

func WithInstanceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, InstanceIDKey, id)
}

func GetNotificationID(ctx context.Context) string {
	if id, ok := ctx.Value(NotificationIDKey).(string); ok {
		return id
	}
	return ""
}

func GetComponent(ctx context.Context) string {
	if component, ok := ctx.Value(ComponentKey).(string); ok {
		return component
	}
	return ""
}

func GetInstanceID(ctx context.Context) string {
	if id, ok := ctx.Value(InstanceIDKey).(string); ok {
		return id
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 6)

	if id := GetNotificationID(ctx); id != "" {
		fields = append(fields, "notification_id", id)
	}

	if component := GetComponent(ctx); component != "" {
		fields = append(fields, "component", component)
	}

	if id := GetInstanceID(ctx); id != "" {
		fields = append(fields, "instance_id", id)
	}

	return fields
}
