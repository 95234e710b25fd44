package errors

import (
	"fmt"
	"runtime/debug"
)

// PanicError wraps a recovered panic value together with its stack trace.
type PanicError struct {
	Value interface{}
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// RecoverPanic converts a recovered panic value into an error, capturing the
// stack trace. A panicking message handler must never take down the
// delivery loop around it.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}
	return &PanicError{
		Value: r,
		Stack: string(debug.Stack()),
	}
}
