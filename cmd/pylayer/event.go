// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	_ "embed"

	"github.com/spf13/afero"

	"github.com/pylayer/pylayer/internal/app/layer"
	"github.com/pylayer/pylayer/internal/issue"
	"github.com/pylayer/pylayer/pkg/cueutil"
)

//go:embed event_schema.cue
var eventSchema []byte

// loadEvent reads a Lambda-style event file (JSON or CUE) into a request.
func loadEvent(fs afero.Fs, path string) (layer.Request, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return layer.Request{}, issue.WrapWithContext(err, "read event", path)
	}
	result, err := cueutil.ParseAndDecode[layer.Request](eventSchema, data, "#Event", cueutil.WithFilename(path))
	if err != nil {
		return layer.Request{}, issue.NewErrorContext().
			WithOperation("parse event").
			WithResource(path).
			WithSuggestion(`The event accepts only "ModuleName" and "CustomLayerName"`).
			Wrap(err).
			BuildError()
	}
	return *result.Value, nil
}
