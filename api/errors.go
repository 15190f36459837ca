// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-udp engines.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode classifies failures reported by the engines.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	// ErrCodeConfiguration covers invalid thread counts, ports or templates.
	ErrCodeConfiguration
	// ErrCodeTransientIO is a single send/receive failure; never aborts an engine.
	ErrCodeTransientIO
	// ErrCodeFatalIO is a selector, bind or socket creation failure.
	ErrCodeFatalIO
	// ErrCodeLifecycle is an operation on a closed or not yet started engine.
	ErrCodeLifecycle
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeConfiguration:
		return "configuration"
	case ErrCodeTransientIO:
		return "transient io"
	case ErrCodeFatalIO:
		return "fatal io"
	case ErrCodeLifecycle:
		return "lifecycle"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Sentinels for errors.Is matching by category.
var (
	ErrConfiguration = &Error{Code: ErrCodeConfiguration, Message: "configuration error"}
	ErrTransientIO   = &Error{Code: ErrCodeTransientIO, Message: "transient io error"}
	ErrFatalIO       = &Error{Code: ErrCodeFatalIO, Message: "fatal io error"}
	ErrLifecycle     = &Error{Code: ErrCodeLifecycle, Message: "lifecycle error"}
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new structured error.
func NewError(code ErrorCode, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

// Configurationf builds a configuration error.
func Configurationf(op, format string, args ...any) error {
	return &Error{Code: ErrCodeConfiguration, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Lifecycle builds a lifecycle error.
func Lifecycle(op, message string) error {
	return &Error{Code: ErrCodeLifecycle, Op: op, Message: message}
}

// FatalIO wraps err as an unrecoverable I/O failure.
func FatalIO(op string, err error) error {
	return &Error{Code: ErrCodeFatalIO, Op: op, Message: "fatal io error", Err: err}
}

// TransientIO wraps err as a recoverable I/O failure.
func TransientIO(op string, err error) error {
	return &Error{Code: ErrCodeTransientIO, Op: op, Message: "transient io error", Err: err}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeFatalIO
}
