// SPDX-License-Identifier: MPL-2.0

package resolver

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/exp/slices"

	"github.com/pylayer/pylayer/pkg/wheel"
)

// ErrNoDistribution is the sentinel error wrapped by NoDistributionError.
var ErrNoDistribution = errors.New("no distribution archive found")

type (
	// Distribution is the wheel selected from a download directory.
	Distribution struct {
		// Path is the full path of the selected wheel.
		Path string
		// Name is its base name.
		Name string
		// Ignored lists other wheels found next to it, in name order.
		Ignored []string
	}

	// NoDistributionError is returned when a download directory holds no wheel.
	NoDistributionError struct {
		Dir string
	}
)

// FindDistribution returns the wheel in dir. When several wheels are
// present the lexicographically smallest name wins, so the choice does not
// depend on directory listing order.
func FindDistribution(fs afero.Fs, dir string) (Distribution, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return Distribution{}, fmt.Errorf("read download dir %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.Mode().IsRegular() && wheel.IsWheel(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return Distribution{}, &NoDistributionError{Dir: dir}
	}

	slices.Sort(names)
	return Distribution{
		Path:    filepath.Join(dir, names[0]),
		Name:    names[0],
		Ignored: names[1:],
	}, nil
}

// Error implements the error interface for NoDistributionError.
func (e *NoDistributionError) Error() string {
	return fmt.Sprintf("no wheel file in %s", e.Dir)
}

// Unwrap returns ErrNoDistribution for errors.Is() compatibility.
func (e *NoDistributionError) Unwrap() error { return ErrNoDistribution }
