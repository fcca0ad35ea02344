// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/pylayer/pylayer/internal/config"
	"github.com/pylayer/pylayer/internal/publish"
	"github.com/pylayer/pylayer/internal/resolver"
)

const (
	testModule    = "examplepkg"
	testWheelName = "examplepkg-1.2.3-py3-none-any.whl"
)

type (
	// staticConfig returns a copy of cfg on every Load.
	staticConfig struct {
		cfg  *config.Config
		path string
		err  error
	}

	fakeResolver struct {
		fs    afero.Fs
		files map[string][]byte
		err   error
	}

	fakePublisher struct {
		layers []publish.Layer
		err    error
	}

	testEnv struct {
		app       *App
		fs        afero.Fs
		stdout    *bytes.Buffer
		stderr    *bytes.Buffer
		resolver  *fakeResolver
		publisher *fakePublisher
		cfg       *config.Config
	}
)

func (s *staticConfig) Load(context.Context, config.LoadOptions) (*config.Config, string, error) {
	if s.err != nil {
		return nil, "", s.err
	}
	c := *s.cfg
	return &c, s.path, nil
}

func (f *fakeResolver) Download(_ context.Context, req resolver.Request) (resolver.Output, error) {
	if f.err != nil {
		return resolver.Output{}, f.err
	}
	for name, data := range f.files {
		if err := afero.WriteFile(f.fs, filepath.Join(req.DestDir, name), data, 0o644); err != nil {
			return resolver.Output{}, err
		}
	}
	return resolver.Output{}, nil
}

func (f *fakePublisher) Publish(_ context.Context, l publish.Layer) (publish.Published, error) {
	f.layers = append(f.layers, l)
	if f.err != nil {
		return publish.Published{}, f.err
	}
	return publish.Published{
		LayerArn:        "arn:aws:lambda:us-east-1:123456789012:layer:" + l.Name,
		LayerVersionArn: "arn:aws:lambda:us-east-1:123456789012:layer:" + l.Name + ":1",
		Version:         1,
	}, nil
}

// newTestEnv builds an App on an in-memory filesystem with fake resolver
// and publisher, and a configuration pinned to Python 3.9.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	fs := afero.NewMemMapFs()
	cfg := config.DefaultConfig()
	cfg.ScratchDir = "/scratch"
	cfg.Runtime.PythonVersion = "3.9"
	cfg.Log.Level = config.LogLevelError

	env := &testEnv{
		fs:        fs,
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
		resolver:  &fakeResolver{fs: fs, files: map[string][]byte{testWheelName: wheelBytes(t)}},
		publisher: &fakePublisher{},
		cfg:       cfg,
	}
	env.app = NewApp(Dependencies{
		Config: &staticConfig{cfg: cfg},
		NewResolver: func(*config.Config, *log.Logger) (resolver.Resolver, error) {
			return env.resolver, nil
		},
		NewPublisher: func(context.Context, *config.Config, *log.Logger) (publish.Publisher, error) {
			return env.publisher, nil
		},
		StartLambda: func(any) { t.Error("StartLambda called unexpectedly") },
		Fs:          fs,
		Stdout:      env.stdout,
		Stderr:      env.stderr,
	})
	return env
}

// run executes the root command with args.
func (e *testEnv) run(args ...string) error {
	root := NewRootCommand(e.app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

// wheelBytes builds a two-entry wheel for testModule.
func wheelBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range []struct{ name, body string }{
		{testModule + "/__init__.py", "VALUE = 1\n"},
		{testModule + "-1.2.3.dist-info/METADATA", "Name: " + testModule + "\n"},
	} {
		w, err := zw.Create(f.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(f.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func assertExitCode(t *testing.T, err error, want int) {
	t.Helper()
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.Code != want {
		t.Errorf("exit code = %d, want %d", exitErr.Code, want)
	}
}
