// SPDX-License-Identifier: MPL-2.0

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNew_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf, Prefix: "pylayer"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("downloaded wheel", "module", "numpy")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line logged at default level:\n%s", out)
	}
	for _, want := range []string{"pylayer", "downloaded wheel", "module=numpy"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf, Format: FormatJSON, Level: "debug"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Debug("relocated entry", "to", "python/lib/python3.9/site-packages/a.py")

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("output is not one JSON object: %v\n%s", err, buf.String())
	}
	if line["msg"] != "relocated entry" || line["to"] != "python/lib/python3.9/site-packages/a.py" {
		t.Errorf("unexpected fields: %v", line)
	}
	if _, ok := line["time"]; !ok {
		t.Errorf("JSON output should carry a timestamp: %v", line)
	}
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	for _, opts := range []Options{{Level: "loud"}, {Format: "yaml"}} {
		if _, err := New(opts); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("New(%+v) error = %v, want ErrInvalidOptions", opts, err)
		}
	}
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	Discard().Error("dropped")
}
