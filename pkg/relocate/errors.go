// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedArchive is the sentinel error wrapped by MalformedArchiveError.
	ErrMalformedArchive = errors.New("malformed archive")
	// ErrIO is the sentinel error wrapped by IOError.
	ErrIO = errors.New("archive write failed")
)

type (
	// MalformedArchiveError is returned when the source cannot be read as a
	// zip archive, or one of its entries cannot be read back.
	MalformedArchiveError struct {
		// Entry is the offending entry name; empty when the archive
		// structure itself could not be parsed.
		Entry string
		Err   error
	}

	// IOError is returned when writing the relocated archive fails.
	IOError struct {
		Path string
		Err  error
	}
)

// Error implements the error interface for MalformedArchiveError.
func (e *MalformedArchiveError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("malformed archive: entry %q: %v", e.Entry, e.Err)
	}
	return fmt.Sprintf("malformed archive: %v", e.Err)
}

// Unwrap returns both ErrMalformedArchive and the underlying cause.
func (e *MalformedArchiveError) Unwrap() []error { return []error{ErrMalformedArchive, e.Err} }

// Error implements the error interface for IOError.
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("write relocated archive %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("write relocated archive: %v", e.Err)
}

// Unwrap returns both ErrIO and the underlying cause.
func (e *IOError) Unwrap() []error { return []error{ErrIO, e.Err} }
