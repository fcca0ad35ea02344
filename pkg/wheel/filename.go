// SPDX-License-Identifier: MPL-2.0

package wheel

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Extension is the file extension of a wheel.
const Extension = ".whl"

// ErrMalformedName is the sentinel error wrapped by MalformedNameError.
var ErrMalformedName = errors.New("malformed distribution file name")

type (
	// Filename is a parsed distribution file name.
	Filename struct {
		// Raw is the base name the fields were parsed from.
		Raw          string
		Distribution string
		Version      string
		BuildTag     string
		PythonTag    string
		ABITag       string
		PlatformTag  string
	}

	// MalformedNameError is returned when a file name has fewer than two
	// hyphen-delimited fields.
	MalformedNameError struct {
		Name string
	}
)

// Parse splits a distribution file name into its fields. Any directory
// part and a .whl extension are ignored. The version is always the second
// hyphen-delimited field.
func Parse(name string) (Filename, error) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	stem := base
	if IsWheel(base) {
		stem = base[:len(base)-len(Extension)]
	}

	fields := strings.Split(stem, "-")
	if len(fields) < 2 || fields[0] == "" || fields[1] == "" {
		return Filename{}, &MalformedNameError{Name: name}
	}

	fn := Filename{
		Raw:          base,
		Distribution: fields[0],
		Version:      fields[1],
	}
	switch len(fields) {
	case 5:
		fn.PythonTag, fn.ABITag, fn.PlatformTag = fields[2], fields[3], fields[4]
	case 6:
		fn.BuildTag = fields[2]
		fn.PythonTag, fn.ABITag, fn.PlatformTag = fields[3], fields[4], fields[5]
	}
	return fn, nil
}

// IsWheel reports whether name carries the wheel extension, ignoring case.
func IsWheel(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), Extension)
}

// HasTags reports whether the compatibility tags were present in the name.
func (f Filename) HasTags() bool {
	return f.PythonTag != ""
}

// IsPure reports whether the wheel is platform independent.
func (f Filename) IsPure() bool {
	return f.ABITag == "none" && f.PlatformTag == "any"
}

// RunsOnLinux reports whether the wheel can be installed on Linux: it is
// pure, carries no tags, or one of its platform tags names linux.
func (f Filename) RunsOnLinux() bool {
	if !f.HasTags() || f.IsPure() {
		return true
	}
	for _, tag := range strings.Split(f.PlatformTag, ".") {
		if strings.Contains(tag, "linux") {
			return true
		}
	}
	return false
}

// CompactVersion returns the version with all dots removed ("1.2.3" -> "123").
func (f Filename) CompactVersion() string {
	return strings.ReplaceAll(f.Version, ".", "")
}

// Error implements the error interface for MalformedNameError.
func (e *MalformedNameError) Error() string {
	return fmt.Sprintf("malformed distribution file name %q: expected <name>-<version>[-<tags>...]", e.Name)
}

// Unwrap returns ErrMalformedName for errors.Is() compatibility.
func (e *MalformedNameError) Unwrap() error { return ErrMalformedName }
