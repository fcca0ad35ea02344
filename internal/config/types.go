// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pylayer/pylayer/internal/pyruntime"
)

const (
	// ArchitectureX8664 targets x86_64 Lambda functions.
	ArchitectureX8664 Architecture = "x86_64"
	// ArchitectureARM64 targets Graviton Lambda functions.
	ArchitectureARM64 Architecture = "arm64"

	// LogLevelDebug logs every step and relocated entry.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs one line per step.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs recoverable problems only.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// LogFormatText is human-readable, colored when attached to a terminal.
	LogFormatText LogFormat = "text"
	// LogFormatJSON emits one JSON object per line.
	LogFormatJSON LogFormat = "json"
)

var (
	// ErrInvalidArchitecture is returned when an Architecture value is not recognized.
	ErrInvalidArchitecture = errors.New("invalid architecture")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat is returned when a LogFormat value is not recognized.
	ErrInvalidLogFormat = errors.New("invalid log format")
	// ErrInvalidDuration is returned when a DurationString does not parse.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrInvalidPythonVersion is returned when a PythonVersion does not parse.
	ErrInvalidPythonVersion = errors.New("invalid python version")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Architecture is a Lambda instruction set architecture.
	Architecture string

	// InvalidArchitectureError is returned when an Architecture value is not recognized.
	// It wraps ErrInvalidArchitecture for errors.Is() compatibility.
	InvalidArchitectureError struct {
		Value Architecture
	}

	// LogLevel is the minimum level logged.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// LogFormat selects the log encoding.
	LogFormat string

	// InvalidLogFormatError is returned when a LogFormat value is not recognized.
	InvalidLogFormatError struct {
		Value LogFormat
	}

	// DurationString is a Go duration such as "90s" or "1h30m".
	// The zero value ("") is valid and means "use the default".
	DurationString string

	// InvalidDurationError is returned when a DurationString does not parse.
	InvalidDurationError struct {
		Field string
		Value DurationString
		Err   error
	}

	// PythonVersion pins the target runtime, e.g. "3.12".
	// The zero value ("") is valid and means "detect".
	PythonVersion string

	// InvalidPythonVersionError is returned when a PythonVersion does not parse.
	InvalidPythonVersionError struct {
		Value PythonVersion
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// ScratchDir is the parent of per-invocation workspaces.
		// Empty selects /tmp inside Lambda and the user cache directory elsewhere.
		ScratchDir string         `json:"scratch_dir" mapstructure:"scratch_dir" toml:"scratch_dir"`
		Scratch    ScratchConfig  `json:"scratch" mapstructure:"scratch" toml:"scratch"`
		Resolver   ResolverConfig `json:"resolver" mapstructure:"resolver" toml:"resolver"`
		Runtime    RuntimeConfig  `json:"runtime" mapstructure:"runtime" toml:"runtime"`
		Publish    PublishConfig  `json:"publish" mapstructure:"publish" toml:"publish"`
		Log        LogConfig      `json:"log" mapstructure:"log" toml:"log"`
	}

	// ScratchConfig configures workspace housekeeping.
	ScratchConfig struct {
		// StaleAfter is the age after which abandoned workspaces are removed.
		StaleAfter DurationString `json:"stale_after" mapstructure:"stale_after" toml:"stale_after"`
	}

	// ResolverConfig configures the pip download step.
	ResolverConfig struct {
		// Command starts pip, split with shell quoting rules.
		Command string `json:"command" mapstructure:"command" toml:"command"`
		// ExtraArgs are appended to every pip download.
		ExtraArgs []string `json:"extra_args" mapstructure:"extra_args" toml:"extra_args"`
		IndexURL  string   `json:"index_url" mapstructure:"index_url" toml:"index_url"`
		// Platform targets a platform tag such as "manylinux2014_x86_64".
		Platform string `json:"platform" mapstructure:"platform" toml:"platform"`
		// OnlyBinary refuses source distributions.
		OnlyBinary bool `json:"only_binary" mapstructure:"only_binary" toml:"only_binary"`
		// Timeout bounds one download.
		Timeout DurationString `json:"timeout" mapstructure:"timeout" toml:"timeout"`
	}

	// RuntimeConfig configures the target Python runtime.
	RuntimeConfig struct {
		PythonVersion PythonVersion `json:"python_version" mapstructure:"python_version" toml:"python_version"`
		// PrefixTemplate is a text/template rendering the site-packages prefix.
		PrefixTemplate string `json:"prefix_template" mapstructure:"prefix_template" toml:"prefix_template"`
	}

	// PublishConfig configures the Lambda publisher.
	PublishConfig struct {
		Region string `json:"region" mapstructure:"region" toml:"region"`
		// EndpointURL overrides the AWS endpoints, e.g. for LocalStack.
		EndpointURL   string         `json:"endpoint_url" mapstructure:"endpoint_url" toml:"endpoint_url"`
		Description   string         `json:"description" mapstructure:"description" toml:"description"`
		LicenseInfo   string         `json:"license_info" mapstructure:"license_info" toml:"license_info"`
		Architectures []Architecture `json:"architectures" mapstructure:"architectures" toml:"architectures"`
		// S3Bucket receives archives larger than S3ThresholdBytes.
		S3Bucket         string `json:"s3_bucket" mapstructure:"s3_bucket" toml:"s3_bucket"`
		S3KeyPrefix      string `json:"s3_key_prefix" mapstructure:"s3_key_prefix" toml:"s3_key_prefix"`
		S3ThresholdBytes int64  `json:"s3_threshold_bytes" mapstructure:"s3_threshold_bytes" toml:"s3_threshold_bytes"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level  LogLevel  `json:"level" mapstructure:"level" toml:"level"`
		Format LogFormat `json:"format" mapstructure:"format" toml:"format"`
	}
)

// String returns the string representation of the Architecture.
func (a Architecture) String() string { return string(a) }

// IsValid returns whether the Architecture is one of the defined architectures,
// and a list of validation errors if it is not.
func (a Architecture) IsValid() (bool, []error) {
	switch a {
	case ArchitectureX8664, ArchitectureARM64:
		return true, nil
	default:
		return false, []error{&InvalidArchitectureError{Value: a}}
	}
}

// Error implements the error interface for InvalidArchitectureError.
func (e *InvalidArchitectureError) Error() string {
	return fmt.Sprintf("invalid architecture %q (valid: x86_64, arm64)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidArchitectureError) Unwrap() error { return ErrInvalidArchitecture }

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface for InvalidLogLevelError.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the LogFormat.
func (f LogFormat) String() string { return string(f) }

// IsValid returns whether the LogFormat is one of the defined formats.
func (f LogFormat) IsValid() (bool, []error) {
	switch f {
	case LogFormatText, LogFormatJSON:
		return true, nil
	default:
		return false, []error{&InvalidLogFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidLogFormatError.
func (e *InvalidLogFormatError) Error() string {
	return fmt.Sprintf("invalid log format %q (valid: text, json)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidLogFormatError) Unwrap() error { return ErrInvalidLogFormat }

// String returns the string representation of the DurationString.
func (d DurationString) String() string { return string(d) }

// Duration parses the value. The zero value yields zero.
func (d DurationString) Duration() (time.Duration, error) {
	if d == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(strings.TrimSpace(string(d)))
	if err != nil {
		return 0, &InvalidDurationError{Value: d, Err: err}
	}
	if dur < 0 {
		return 0, &InvalidDurationError{Value: d, Err: errors.New("must not be negative")}
	}
	return dur, nil
}

// IsValid returns whether the DurationString parses.
func (d DurationString) IsValid() (bool, []error) {
	if _, err := d.Duration(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidDurationError.
func (e *InvalidDurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: invalid duration %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid duration %q: %v", e.Value, e.Err)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }

// String returns the string representation of the PythonVersion.
func (v PythonVersion) String() string { return string(v) }

// Identity parses the version. ok is false for the zero value.
func (v PythonVersion) Identity() (id pyruntime.Identity, ok bool, err error) {
	if v == "" {
		return pyruntime.Identity{}, false, nil
	}
	id, err = pyruntime.ParseVersion(string(v))
	if err != nil {
		return pyruntime.Identity{}, false, &InvalidPythonVersionError{Value: v}
	}
	return id, true, nil
}

// IsValid returns whether the PythonVersion is empty or names a Python 3 runtime.
func (v PythonVersion) IsValid() (bool, []error) {
	if _, _, err := v.Identity(); err != nil {
		return false, []error{err}
	}
	return true, nil
}

// Error implements the error interface for InvalidPythonVersionError.
func (e *InvalidPythonVersionError) Error() string {
	return fmt.Sprintf("invalid python version %q (expected <major>.<minor>, e.g. 3.12)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidPythonVersionError) Unwrap() error { return ErrInvalidPythonVersion }

// IsValid returns whether the Config has valid fields. It collects every
// field error rather than stopping at the first.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	check := func(valid bool, fieldErrs []error) {
		if !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	durations := []struct {
		field string
		value DurationString
	}{
		{"scratch.stale_after", c.Scratch.StaleAfter},
		{"resolver.timeout", c.Resolver.Timeout},
	}
	for _, d := range durations {
		if _, err := d.value.Duration(); err != nil {
			var durErr *InvalidDurationError
			if errors.As(err, &durErr) {
				durErr.Field = d.field
			}
			errs = append(errs, err)
		}
	}
	check(c.Runtime.PythonVersion.IsValid())
	for _, a := range c.Publish.Architectures {
		check(a.IsValid())
	}
	if c.Publish.S3ThresholdBytes < 0 {
		errs = append(errs, fmt.Errorf("publish.s3_threshold_bytes must not be negative, got %d", c.Publish.S3ThresholdBytes))
	}
	check(c.Log.Level.IsValid())
	check(c.Log.Format.IsValid())
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches both the sentinel and field-level sentinels.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// ArchitectureStrings returns the configured architectures as plain strings.
func (c PublishConfig) ArchitectureStrings() []string {
	out := make([]string, len(c.Architectures))
	for i, a := range c.Architectures {
		out[i] = string(a)
	}
	return out
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		ScratchDir: "",
		Scratch: ScratchConfig{
			StaleAfter: "1h",
		},
		Resolver: ResolverConfig{
			Command:    "python3 -m pip",
			ExtraArgs:  []string{},
			OnlyBinary: true,
			Timeout:    "5m",
		},
		Runtime: RuntimeConfig{
			PrefixTemplate: "python/lib/python{{.Major}}.{{.Minor}}/site-packages",
		},
		Publish: PublishConfig{
			Description:      "Layer generated by pylayer",
			Architectures:    []Architecture{},
			S3ThresholdBytes: 50 << 20,
		},
		Log: LogConfig{
			Level:  LogLevelInfo,
			Format: LogFormatText,
		},
	}
}
