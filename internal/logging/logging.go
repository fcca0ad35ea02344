// SPDX-License-Identifier: MPL-2.0

// Package logging builds the charmbracelet/log loggers used by pylayer.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// FormatText is human-readable, colored on a terminal.
	FormatText = "text"
	// FormatJSON emits one object per line, as CloudWatch expects.
	FormatJSON = "json"
)

// ErrInvalidOptions is returned by New for an unknown level or format.
var ErrInvalidOptions = errors.New("invalid logging options")

// Options configures New. Zero values select info level, text format and
// stderr.
type Options struct {
	Level  string
	Format string
	Writer io.Writer
	Prefix string
	// Timestamps adds the time to text output; JSON output always has it.
	Timestamps bool
}

// New returns a logger for opts.
func New(opts Options) (*log.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
		}
		level = l
	}

	lo := log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
		TimeFormat:      time.RFC3339,
	}
	switch opts.Format {
	case "", FormatText:
		lo.Formatter = log.TextFormatter
	case FormatJSON:
		lo.Formatter = log.JSONFormatter
		lo.ReportTimestamp = true
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidOptions, opts.Format)
	}
	return log.NewWithOptions(w, lo), nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
