/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: errors.go
Description: Error kinds surfaced by the structure finder. Every failure of an inference
call is marked with exactly one kind so callers can branch with errors.Is, and carries a
user-facing hint where one exists.
*/

package structure

import (
	"github.com/cockroachdb/errors"
)

// ErrorKind classifies a terminal inference failure
type ErrorKind string

const (
	KindUnrecognizedEncoding  ErrorKind = "UnrecognizedEncoding"
	KindNoConsistentFormat    ErrorKind = "NoConsistentFormat"
	KindInsufficientSample    ErrorKind = "InsufficientSample"
	KindInconsistentOverrides ErrorKind = "InconsistentOverrides"
	KindTimeout               ErrorKind = "Timeout"
	KindInvalidRequest        ErrorKind = "InvalidRequest"
)

// Sentinel markers, one per kind
var (
	ErrUnrecognizedEncoding  = errors.New("unrecognized encoding")
	ErrNoConsistentFormat    = errors.New("no consistent format")
	ErrInsufficientSample    = errors.New("insufficient sample")
	ErrInconsistentOverrides = errors.New("inconsistent overrides")
	ErrTimeout               = errors.New("timeout")
	ErrInvalidRequest        = errors.New("invalid request")
)

var kindMarkers = []struct {
	kind   ErrorKind
	marker error
}{
	{KindUnrecognizedEncoding, ErrUnrecognizedEncoding},
	{KindNoConsistentFormat, ErrNoConsistentFormat},
	{KindInsufficientSample, ErrInsufficientSample},
	{KindInconsistentOverrides, ErrInconsistentOverrides},
	{KindTimeout, ErrTimeout},
	{KindInvalidRequest, ErrInvalidRequest},
}

// NewError creates an error of the given kind with a formatted diagnostic
func NewError(kind ErrorKind, format string, args ...interface{}) error {
	err := errors.Newf(format, args...)
	return errors.Mark(err, markerFor(kind))
}

// NewErrorWithHint creates an error of the given kind and attaches a remediation hint
func NewErrorWithHint(kind ErrorKind, hint string, format string, args ...interface{}) error {
	return errors.WithHint(NewError(kind, format, args...), hint)
}

// KindOf returns the kind an error was marked with, or "" for unclassified errors
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, km := range kindMarkers {
		if errors.Is(err, km.marker) {
			return km.kind
		}
	}
	return ""
}

// Hints returns the flattened user-facing hints attached to err
func Hints(err error) string {
	return errors.FlattenHints(err)
}

func markerFor(kind ErrorKind) error {
	for _, km := range kindMarkers {
		if km.kind == kind {
			return km.marker
		}
	}
	return ErrInvalidRequest
}
