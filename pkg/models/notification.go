package models

import (
	"bytes"
	"encoding/json"
)

// NotificationRecord is the canonical in-memory notification shape. ID is
// globally unique and stable across redelivery; it is the deduplication key.
type NotificationRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	Type      string `json:"type"`
	CreatedAt int64  `json:"createdAt"`
	ReadAt    *int64 `json:"readAt,omitempty"`
	Href      string `json:"href,omitempty"`
	Meta      Meta   `json:"meta,omitempty"`
}

// Unread reports whether the record has no read timestamp.
func (n *NotificationRecord) Unread() bool {
	return n.ReadAt == nil
}

// Meta is the structured form of a notification's meta field. On the wire it
// arrives either as an object or as a JSON-encoded string; both decode into
// this one shape so nothing downstream branches on the dynamic form.
type Meta struct {
	CampaignID FlexID `json:"campaignId,omitempty"`
	SolutionID FlexID `json:"solutionId,omitempty"`
	CommentID  FlexID `json:"commentId,omitempty"`
}

func (m *Meta) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = Meta{}
		return nil
	}

	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			*m = Meta{}
			return nil
		}
		m.decodeObject([]byte(inner))
		return nil
	}

	m.decodeObject(data)
	return nil
}

// decodeObject fills m from an object literal. Malformed meta degrades to an
// empty value rather than failing the whole record.
func (m *Meta) decodeObject(data []byte) {
	type plain Meta
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*m = Meta{}
		return
	}
	*m = Meta(p)
}

// FlexID is an entity identifier that may be serialized as a JSON string or
// a JSON number.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n.String())
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexID) String() string {
	return string(f)
}

// UnreadCount is the response shape of the authoritative unread-count
// endpoint.
type UnreadCount struct {
	Count int `json:"count"`
}

// SlugMap maps entity ids to human-routable slugs.
type SlugMap map[string]string
