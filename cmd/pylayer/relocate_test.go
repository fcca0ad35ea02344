// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/pylayer/pylayer/internal/issue"
	"github.com/pylayer/pylayer/pkg/relocate"
)

func writeWheel(t *testing.T, env *testEnv, path string) {
	t.Helper()
	if err := afero.WriteFile(env.fs, path, wheelBytes(t), 0o644); err != nil {
		t.Fatal(err)
	}
}

func inspectFile(t *testing.T, fs afero.Fs, path string) []relocate.Entry {
	t.Helper()
	f, err := fs.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		t.Fatal(err)
	}
	entries, err := relocate.Inspect(f, info.Size())
	if err != nil {
		t.Fatalf("Inspect(%s) failed: %v", path, err)
	}
	return entries
}

func TestRelocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		wantPrefix string
	}{
		{"configured version", nil, "python/lib/python3.9/site-packages/"},
		{"python version flag", []string{"--python-version", "3.11"}, "python/lib/python3.11/site-packages/"},
		{"explicit prefix", []string{"--prefix", "python", "--verify"}, "python/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			src := "/work/" + testWheelName
			writeWheel(t, env, src)

			args := append([]string{"relocate", src, "/work/out.zip"}, tt.args...)
			if err := env.run(args...); err != nil {
				t.Fatalf("relocate failed: %v", err)
			}

			entries := inspectFile(t, env.fs, "/work/out.zip")
			if len(entries) != 2 {
				t.Fatalf("relocated %d entries, want 2", len(entries))
			}
			for _, e := range entries {
				if !strings.HasPrefix(e.Name, tt.wantPrefix) {
					t.Errorf("entry %q lacks prefix %q", e.Name, tt.wantPrefix)
				}
			}
			if !strings.Contains(env.stdout.String(), "Relocated 2 entries") {
				t.Errorf("stdout missing summary:\n%s", env.stdout)
			}
		})
	}
}

func TestRelocate_Errors(t *testing.T) {
	t.Parallel()

	t.Run("bad prefix", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		writeWheel(t, env, "/work/"+testWheelName)

		err := env.run("relocate", "/work/"+testWheelName, "--prefix", "site-packages/")
		if !errors.Is(err, relocate.ErrInvalidPrefix) {
			t.Errorf("error = %v, want ErrInvalidPrefix", err)
		}
	})

	t.Run("not a zip", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		if err := afero.WriteFile(env.fs, "/work/broken.whl", []byte("not a zip"), 0o644); err != nil {
			t.Fatal(err)
		}

		err := env.run("relocate", "/work/broken.whl", "/work/out.zip")
		var ae *issue.ActionableError
		if !errors.As(err, &ae) || ae.Issue != issue.MalformedWheelId {
			t.Errorf("error = %v, want ActionableError linked to the malformed wheel issue", err)
		}
		if !errors.Is(err, relocate.ErrMalformedArchive) {
			t.Errorf("error = %v, want ErrMalformedArchive", err)
		}
		if ok, _ := afero.Exists(env.fs, "/work/out.zip"); ok {
			t.Error("partial output should be removed")
		}
	})

	t.Run("output exists", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		writeWheel(t, env, "/work/"+testWheelName)
		if err := afero.WriteFile(env.fs, "/work/out.zip", []byte("keep"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := env.run("relocate", "/work/"+testWheelName, "/work/out.zip"); !errors.Is(err, relocate.ErrIO) {
			t.Errorf("error = %v, want ErrIO", err)
		}
		data, _ := afero.ReadFile(env.fs, "/work/out.zip")
		if string(data) != "keep" {
			t.Error("existing output was overwritten")
		}
	})
}

func TestDefaultArchivePath(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	tests := []struct {
		src  string
		want string
	}{
		{"/w/" + testWheelName, filepath.Join("/w", "examplepkg_layer_ver_1.2.3_20261019T083000Z.zip")},
		{"/w/odd.zip", filepath.Join("/w", "odd_layer.zip")},
	}
	for _, tt := range tests {
		if got := defaultArchivePath(tt.src, now); got != tt.want {
			t.Errorf("defaultArchivePath(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	writeWheel(t, env, "/work/"+testWheelName)

	if err := env.run("inspect", "/work/"+testWheelName); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	out := env.stdout.String()
	for _, want := range []string{"examplepkg/__init__.py", "examplepkg-1.2.3.dist-info/METADATA", "deflate", "2 entries"} {
		if !strings.Contains(out, want) {
			t.Errorf("inspect output missing %q:\n%s", want, out)
		}
	}

	if err := env.run("inspect", "/work/missing.zip"); err == nil {
		t.Error("inspect of a missing file should fail")
	}
}
