package connector

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a connector failure. The string value is the stable
// code used in wire errors, usage events, and logs.
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidParams  Kind = "invalid_params"
	KindAuthFailed     Kind = "auth_failed"
	KindNotFound       Kind = "not_found"
	KindToolNotFound   Kind = "tool_not_found"
	KindMethodNotFound Kind = "method_not_found"
	KindParseError     Kind = "parse_error"
	KindTimeout        Kind = "timeout"
	KindUpstream       Kind = "upstream_error"
	KindBlocked        Kind = "blocked"
	KindInternal       Kind = "internal_error"
)

// Error is the uniform failure type connectors surface. Decorators and
// the federation engine inspect the kind and re-raise unchanged.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Code returns the stable string code for the error.
func (e *Error) Code() string {
	if e == nil {
		return string(KindInternal)
	}
	return string(e.Kind)
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, format, args...)
}

func InvalidParams(format string, args ...any) *Error {
	return newError(KindInvalidParams, format, args...)
}

func AuthFailed(format string, args ...any) *Error {
	return newError(KindAuthFailed, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func ToolNotFound(name string) *Error {
	return newError(KindToolNotFound, "unknown tool %q", name)
}

func MethodNotFound(method string) *Error {
	return newError(KindMethodNotFound, "unknown method %q", method)
}

func ParseError(format string, args ...any) *Error {
	return newError(KindParseError, format, args...)
}

func Timeout(format string, args ...any) *Error {
	return newError(KindTimeout, format, args...)
}

// Upstream wraps a network or upstream-service failure.
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: message, Err: err}
}

func Blocked(format string, args ...any) *Error {
	return newError(KindBlocked, format, args...)
}

// Internal wraps a bug or unexpected condition.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, Err: err}
}

// KindOf classifies an arbitrary error. Context cancellation maps to
// the timeout kind so cancelled calls meter consistently.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindInternal
}

// CodeOf returns the stable string code for an arbitrary error.
func CodeOf(err error) string {
	return string(KindOf(err))
}

// JSONRPCCode maps an error kind onto the JSON-RPC 2.0 error space.
func (k Kind) JSONRPCCode() int {
	switch k {
	case KindMethodNotFound:
		return -32601
	case KindInvalidParams, KindInvalidInput:
		return -32602
	case KindParseError:
		return -32700
	default:
		return -32603
	}
}
