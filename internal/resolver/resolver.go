// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrResolutionFailed is the sentinel error wrapped by ResolutionError.
var ErrResolutionFailed = errors.New("package resolution failed")

type (
	// Request describes one download.
	Request struct {
		// Module is the requirement handed to the resolver, e.g. "numpy"
		// or "numpy==1.19.0".
		Module string
		// DestDir receives the downloaded distribution.
		DestDir string
		// CacheDir is the resolver's private cache.
		CacheDir string
	}

	// Output is the diagnostic output of a resolver run.
	Output struct {
		Stdout string
		Stderr string
	}

	// Resolver downloads exactly one distribution for a module.
	Resolver interface {
		Download(ctx context.Context, req Request) (Output, error)
	}

	// ResolutionError is returned when the resolver could not obtain the
	// module. Diagnostic holds the resolver's own error text.
	ResolutionError struct {
		Module     string
		ExitCode   int
		Diagnostic string
		Err        error
	}
)

// Error implements the error interface for ResolutionError.
func (e *ResolutionError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "resolve %q", e.Module)
	if e.ExitCode != 0 {
		fmt.Fprintf(&sb, " (exit status %d)", e.ExitCode)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Diagnostic != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Diagnostic)
	}
	return sb.String()
}

// Unwrap returns ErrResolutionFailed and the underlying cause, if any.
func (e *ResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrResolutionFailed, e.Err}
	}
	return []error{ErrResolutionFailed}
}
