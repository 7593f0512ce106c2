package hook

import (
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// Registration errors
	ErrInvalidPhaseType = errors.New("hook phase name must be a non-empty string")
	ErrUnsupportedPhase = errors.New("unsupported hook phase")
	ErrInvalidHandler   = errors.New("invalid hook handler")
	ErrRegistrySealed   = errors.New("hook registry is sealed")

	// Execution errors
	ErrUndefined = errors.New("undefined error occurred")
)

// PanicError allows error handlers to detect a panic recovered from a hook or handler.
type PanicError interface {
	error
	// Value returns the original panic value.
	Value() any
	// Stack returns the stack trace captured at the panic point.
	Stack() []byte
}

type panicError struct {
	value any
	stack []byte
}

// NewPanicError wraps a recovered panic value with the current stack.
func NewPanicError(value any) PanicError {
	return &panicError{value: value, stack: debug.Stack()}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Value() any {
	return e.value
}

func (e *panicError) Stack() []byte {
	return e.stack
}

// Unwrap allows errors.Is/As to work with wrapped panics.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
