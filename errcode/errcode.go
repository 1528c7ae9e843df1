// Package errcode defines the closed, numbered error-code vocabulary
// shared by every component that crosses the FFI boundary. The numeric
// codes are part of the ABI and must never be renumbered.
package errcode

import (
	"errors"
	"fmt"
)

// Kind is one entry in the closed error taxonomy of spec.md §4.A.
type Kind uint32

const (
	Ok                  Kind = 0
	InvalidState        Kind = 1
	InitFailed          Kind = 2
	ShutdownFailed      Kind = 3
	ConfigError         Kind = 4
	Serialization       Kind = 5
	UnknownMessageType  Kind = 6
	HandlerError        Kind = 7
	RuntimeError        Kind = 8
	Cancelled           Kind = 9
	Timeout             Kind = 10
	Internal            Kind = 11
	FfiError            Kind = 12
	TooManyRequests     Kind = 13
)

var kindNames = map[Kind]string{
	Ok:                 "Ok",
	InvalidState:       "InvalidState",
	InitFailed:         "InitFailed",
	ShutdownFailed:     "ShutdownFailed",
	ConfigError:        "ConfigError",
	Serialization:      "Serialization",
	UnknownMessageType: "UnknownMessageType",
	HandlerError:       "HandlerError",
	RuntimeError:       "RuntimeError",
	Cancelled:          "Cancelled",
	Timeout:            "Timeout",
	Internal:           "Internal",
	FfiError:           "FfiError",
	TooManyRequests:    "TooManyRequests",
}

// String renders the kind's name, falling back to the numeric form for any
// value outside the closed set (which should never happen in practice).
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", uint32(k))
}

// Error is the tagged-variant error type used throughout the framework.
// It carries a stable numeric Code alongside a human-readable message and
// an optional wrapped cause, mirroring the teacher's typed-error structs
// (CapHostRegistryError, ValidationError) but closed over the ABI's fixed
// code space instead of an open string discriminant.
type Error struct {
	kind    Kind
	message string
	cause   error
}

// New builds an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error of the given kind, recording cause for Unwrap and
// folding its message into the formatted text.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...), cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error { return e.cause }

// Kind returns the taxonomy entry this error belongs to.
func (e *Error) Kind() Kind { return e.kind }

// Code returns the stable numeric ABI code for this error. This is the
// total error_code() -> u32 mapping spec.md §9 calls for.
func (e *Error) Code() uint32 { return uint32(e.kind) }

// Message returns the human-readable message without the kind prefix or
// the wrapped cause. The ABI's error bytes carry Error(), not Message().
func (e *Error) Message() string { return e.message }

// CodeOf extracts the stable numeric code from any error, returning
// Internal (11) for errors that don't carry one of their own — the same
// fallback a caught panic receives.
func CodeOf(err error) uint32 {
	if err == nil {
		return uint32(Ok)
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return uint32(Internal)
}

// KindOf extracts the Kind from any error, defaulting to Internal.
func KindOf(err error) Kind {
	if err == nil {
		return Ok
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.kind
	}
	return Internal
}
