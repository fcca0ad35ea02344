// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPrefix is the sentinel error wrapped by InvalidPrefixError.
var ErrInvalidPrefix = errors.New("invalid relocation prefix")

type (
	// Prefix is the archive path that every relocated entry is placed under,
	// e.g. "python/lib/python3.9/site-packages". A valid prefix is
	// non-empty and has no trailing separator; it is otherwise used as is.
	Prefix string

	// InvalidPrefixError is returned when a Prefix value fails validation.
	// It wraps ErrInvalidPrefix for errors.Is() compatibility.
	InvalidPrefixError struct {
		Value  Prefix
		Reason string
	}
)

// String returns the string representation of the Prefix.
func (p Prefix) String() string { return string(p) }

// IsValid returns whether the Prefix can be used for relocation.
func (p Prefix) IsValid() (bool, []error) {
	s := string(p)
	var reason string
	switch {
	case s == "":
		reason = "must be non-empty"
	case strings.HasSuffix(s, "/"):
		reason = "must not end with a path separator"
	}
	if reason != "" {
		return false, []error{&InvalidPrefixError{Value: p, Reason: reason}}
	}
	return true, nil
}

// Join returns the relocated name of an archive entry.
func (p Prefix) Join(name string) string {
	return string(p) + "/" + name
}

// Error implements the error interface for InvalidPrefixError.
func (e *InvalidPrefixError) Error() string {
	return fmt.Sprintf("invalid relocation prefix %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidPrefix for errors.Is() compatibility.
func (e *InvalidPrefixError) Unwrap() error { return ErrInvalidPrefix }
