package hmm

import (
	"errors"
	"fmt"
)

// ErrorCode. kind of failure reported by the model, trainers and decoders.
// every code is also an error so callers can use errors.Is(err, hmm.ErrValidation).
type ErrorCode uint

const (
	ErrUnknown ErrorCode = iota
	// ErrConfiguration. caller misused the api: duplicate label, bad observation length, mutating a finalized model, ...
	ErrConfiguration
	// ErrValidation. model is not in a valid state for the requested operation.
	ErrValidation
	// ErrFormat. malformed persisted model text.
	ErrFormat
)

func (c ErrorCode) Error() string {
	switch c {
	case ErrConfiguration:
		return "configuration error"
	case ErrValidation:
		return "validation error"
	case ErrFormat:
		return "format error"
	default:
		return "unknown error"
	}
}

type Error struct {
	orig error
	msg  string
	code ErrorCode
}

func WrapErrorf(orig error, code ErrorCode, format string, a ...interface{}) error {
	return &Error{
		orig: orig,
		msg:  fmt.Sprintf(format, a...),
		code: code,
	}
}

func NewErrorf(code ErrorCode, format string, a ...interface{}) error {
	return WrapErrorf(nil, code, format, a...)
}

func (e *Error) Error() string {
	if e.orig != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.msg, e.orig)
	}
	return fmt.Sprintf("%s: %s", e.code, e.msg)
}

func (e *Error) Unwrap() []error {
	if e.orig != nil {
		return []error{e.code, e.orig}
	}
	return []error{e.code}
}

// Code. return the code of the first *Error in err's chain, ErrUnknown if there is none.
func Code(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	var c ErrorCode
	if errors.As(err, &c) {
		return c
	}
	return ErrUnknown
}
