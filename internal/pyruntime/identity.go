// SPDX-License-Identifier: MPL-2.0

package pyruntime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidVersion is the sentinel error wrapped by InvalidVersionError.
var ErrInvalidVersion = errors.New("invalid python version")

// versionPattern finds a major.minor pair, optionally preceded by "python"
// and followed by a patch level or other suffix.
var versionPattern = regexp.MustCompile(`(?:^|python)(\d+)\.(\d+)(?:\.\d+)?`)

type (
	// Identity is the major.minor version of a Python runtime.
	Identity struct {
		Major int
		Minor int
	}

	// InvalidVersionError is returned when a version string has no
	// recognizable major.minor pair.
	InvalidVersionError struct {
		Value string
	}
)

// ParseVersion extracts a runtime identity from strings such as "3.9",
// "3.9.1", "python3.9" or "AWS_Lambda_python3.9".
func ParseVersion(s string) (Identity, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return Identity{}, &InvalidVersionError{Value: s}
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return Identity{}, &InvalidVersionError{Value: s}
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return Identity{}, &InvalidVersionError{Value: s}
	}
	id := Identity{Major: major, Minor: minor}
	if valid, errs := id.IsValid(); !valid {
		return Identity{}, errs[0]
	}
	return id, nil
}

// IsValid returns whether the identity names a plausible Python 3 runtime.
func (id Identity) IsValid() (bool, []error) {
	if id.Major < 3 || id.Minor < 0 {
		return false, []error{&InvalidVersionError{Value: id.Dotted()}}
	}
	return true, nil
}

// Dotted returns "<major>.<minor>", e.g. "3.9".
func (id Identity) Dotted() string {
	return fmt.Sprintf("%d.%d", id.Major, id.Minor)
}

// Compact returns "<major><minor>", e.g. "39".
func (id Identity) Compact() string {
	return fmt.Sprintf("%d%d", id.Major, id.Minor)
}

// CompatibleRuntime returns the Lambda runtime identifier, e.g. "python3.9".
func (id Identity) CompatibleRuntime() string {
	return "python" + id.Dotted()
}

// String implements fmt.Stringer.
func (id Identity) String() string { return id.Dotted() }

// Error implements the error interface for InvalidVersionError.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid python version %q: expected <major>.<minor> with major >= 3", e.Value)
}

// Unwrap returns ErrInvalidVersion for errors.Is() compatibility.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }
