// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"

	"github.com/pylayer/pylayer/internal/app/layer"
)

const (
	// OutputText is styled, human-readable output.
	OutputText OutputFormat = "text"
	// OutputJSON prints the response object as JSON.
	OutputJSON OutputFormat = "json"
	// OutputTOML prints the response object as TOML.
	OutputTOML OutputFormat = "toml"
)

// ErrInvalidOutputFormat is the sentinel error wrapped by InvalidOutputFormatError.
var ErrInvalidOutputFormat = errors.New("invalid output format")

type (
	// OutputFormat selects how a response is printed.
	OutputFormat string

	// InvalidOutputFormatError is returned when an OutputFormat value is not recognized.
	InvalidOutputFormatError struct {
		Value OutputFormat
	}
)

// IsValid returns whether the OutputFormat is one of the defined formats.
func (f OutputFormat) IsValid() (bool, []error) {
	switch f {
	case OutputText, OutputJSON, OutputTOML:
		return true, nil
	default:
		return false, []error{&InvalidOutputFormatError{Value: f}}
	}
}

// Error implements the error interface for InvalidOutputFormatError.
func (e *InvalidOutputFormatError) Error() string {
	return fmt.Sprintf("invalid output format %q (valid: text, json, toml)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidOutputFormatError) Unwrap() error { return ErrInvalidOutputFormat }

// writeResponse prints resp in format.
func writeResponse(w io.Writer, resp layer.Response, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case OutputTOML:
		enc := toml.NewEncoder(w)
		return enc.Encode(resp)
	default:
		return writeResponseText(w, resp)
	}
}

func writeResponseText(w io.Writer, resp layer.Response) error {
	if resp.OK() {
		if _, err := fmt.Fprintln(w, SuccessStyle.Render("✓ ")+resp.Payload); err != nil {
			return err
		}
		if resp.LayerVersionArn != "" {
			if _, err := fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render("Layer version ARN:"), resp.LayerVersionArn); err != nil {
				return err
			}
		}
		if resp.Version != 0 {
			if _, err := fmt.Fprintf(w, "  %s %d\n", KeyStyle.Render("Version:"), resp.Version); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintf(w, "%s %s (%d)\n  %s\n",
		ErrorStyle.Render("✗"), resp.FunctionError, resp.StatusCode, resp.Payload)
	return err
}
