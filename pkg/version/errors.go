// SPDX-License-Identifier: MPL-2.0

package version

import (
	"errors"
	"fmt"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
// ErrInvalidRange is the sentinel error wrapped by InvalidRangeError.
var (
	ErrInvalidVersion = errors.New("invalid version")
	ErrInvalidRange   = errors.New("invalid version range")
)

type (
	// InvalidVersionError is returned when a string does not follow the
	// major[.minor[.micro[.qualifier]]] format.
	InvalidVersionError struct {
		Value  string
		Reason string
	}

	// InvalidRangeError is returned when a range string cannot be parsed or
	// describes an empty interval.
	InvalidRangeError struct {
		Value  string
		Reason string
		Err    error
	}
)

// Error implements the error interface.
func (e *InvalidVersionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid version %q", e.Value)
	}
	return fmt.Sprintf("invalid version %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidVersion so callers can use errors.Is for programmatic detection.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }

// Error implements the error interface.
func (e *InvalidRangeError) Error() string {
	msg := fmt.Sprintf("invalid version range %q", e.Value)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns ErrInvalidRange, and the underlying version error when there
// is one, so both sentinels match with errors.Is.
func (e *InvalidRangeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidRange, e.Err}
	}
	return []error{ErrInvalidRange}
}
