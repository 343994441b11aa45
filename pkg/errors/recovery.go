package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic classifies a value returned by recover. A panicking *Error
// keeps its code; anything else becomes CodeUnknown. The result is never
// retryable and carries the goroutine stack under the "stack_trace" detail.
func RecoverPanic(r interface{}) *Error {
	if r == nil {
		return nil
	}

	var classified *Error
	switch v := r.(type) {
	case *Error:
		classified = v
	case error:
		classified = ErrUnknown.WithMessage("panic").WithCause(v)
	default:
		classified = ErrUnknown.WithMessage(fmt.Sprintf("panic: %v", v))
	}

	return classified.
		WithDetail("panic", true).
		WithDetail("stack_trace", string(debug.Stack())).
		AsFatal()
}
