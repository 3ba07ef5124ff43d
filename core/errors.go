package core

import (
	"errors"
	"fmt"
)

// Code classifies failures raised by the orchestration core.
type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeExecutorNotFound Code = "EXECUTOR_NOT_FOUND"
	CodeExecutorFailure  Code = "EXECUTOR_FAILURE"
	CodeTransportFailure Code = "TRANSPORT_FAILURE"
)

// Error is the unified error type of the core. Two errors are considered
// equal by errors.Is when their codes match, so the exported sentinels can be
// used as category checks:
//
//	if errors.Is(err, core.ErrNotFound) { ... }
//
// Error() renders only the message (and cause); Op is kept for logging.
type Error struct {
	Code    Code
	Op      string
	Message string
	Err     error
}

var (
	// ErrNotFound matches unknown asset or agent ids.
	ErrNotFound = &Error{Code: CodeNotFound, Message: "not found"}
	// ErrValidation matches missing or malformed required fields.
	ErrValidation = &Error{Code: CodeValidation, Message: "validation error"}
	// ErrExecutorNotFound matches lookups of unregistered agent types.
	ErrExecutorNotFound = &Error{Code: CodeExecutorNotFound, Message: "executor not found"}
	// ErrExecutorFailure matches executors that raised or returned a failure.
	ErrExecutorFailure = &Error{Code: CodeExecutorFailure, Message: "executor failure"}
	// ErrTransportFailure matches rejected collaborator calls.
	ErrTransportFailure = &Error{Code: CodeTransportFailure, Message: "transport failure"}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message == "" && e.Err != nil:
		return e.Err.Error()
	case e.Message == "":
		return string(e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewNotFound reports an unknown entity id.
func NewNotFound(kind, id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("%s not found: %s", kind, id)}
}

// NewValidation reports a missing or malformed required field.
func NewValidation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// NewExecutorNotFound reports that no executor is registered for t.
func NewExecutorNotFound(t AgentType) *Error {
	return &Error{Code: CodeExecutorNotFound, Message: fmt.Sprintf("No executor found for agent type: %s", t)}
}

// NewExecutorFailure reports a failed executor run. When message is empty the
// cause's text is used verbatim.
func NewExecutorFailure(message string, cause error) *Error {
	return &Error{Code: CodeExecutorFailure, Op: "execute", Message: message, Err: cause}
}

// NewTransportFailure reports a rejected collaborator call made by op.
func NewTransportFailure(op string, cause error) *Error {
	return &Error{Code: CodeTransportFailure, Op: op, Message: op + " failed", Err: cause}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
