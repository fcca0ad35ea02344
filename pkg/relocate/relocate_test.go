// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
)

const testPrefix Prefix = "python/lib/python3.9/site-packages"

type testEntry struct {
	name     string
	body     string
	method   uint16
	mode     os.FileMode
	modified time.Time
}

var sampleEntries = []testEntry{
	{name: "examplepkg/", mode: os.ModeDir | 0o755, modified: time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)},
	{name: "examplepkg/__init__.py", body: "from .core import run\n", method: zip.Deflate, mode: 0o644, modified: time.Date(2020, 5, 1, 10, 0, 2, 0, time.UTC)},
	{name: "examplepkg/core.py", body: strings.Repeat("def run():\n    return 42\n", 200), method: zip.Deflate, mode: 0o644, modified: time.Date(2020, 5, 1, 10, 0, 4, 0, time.UTC)},
	{name: "examplepkg/_native.so", body: "\x7fELF\x02\x01\x01\x00binary", method: zip.Store, mode: 0o755, modified: time.Date(2021, 1, 2, 3, 4, 6, 0, time.UTC)},
	{name: "examplepkg-1.2.3.dist-info/WHEEL", body: "Wheel-Version: 1.0\nRoot-Is-Purelib: true\n", method: zip.Deflate, mode: 0o644, modified: time.Date(2020, 5, 1, 10, 0, 8, 0, time.UTC)},
	{name: "examplepkg-1.2.3.dist-info/RECORD", body: "", method: zip.Store, mode: 0o644, modified: time.Date(2020, 5, 1, 10, 0, 8, 0, time.UTC)},
}

// buildZip creates an in-memory zip archive from the given entries.
func buildZip(t *testing.T, entries []testEntry, comment string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: e.method, Modified: e.modified}
		hdr.SetMode(e.mode)
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("CreateHeader(%q) failed: %v", e.name, err)
		}
		if e.body != "" {
			if _, err := io.WriteString(w, e.body); err != nil {
				t.Fatalf("write %q failed: %v", e.name, err)
			}
		}
	}
	if comment != "" {
		if err := zw.SetComment(comment); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	return buf.Bytes()
}

func openZip(t *testing.T, data []byte) *zip.Reader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader failed: %v", err)
	}
	return zr
}

func readEntry(t *testing.T, f *zip.File) []byte {
	t.Helper()
	rc, err := f.Open()
	if err != nil {
		t.Fatalf("open %q: %v", f.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %q: %v", f.Name, err)
	}
	return data
}

func relocateBytes(t *testing.T, src []byte, prefix Prefix, opts ...Option) ([]byte, Result) {
	t.Helper()
	var out bytes.Buffer
	res, err := Relocate(bytes.NewReader(src), int64(len(src)), &out, prefix, opts...)
	if err != nil {
		t.Fatalf("Relocate() failed: %v", err)
	}
	return out.Bytes(), res
}

func TestRelocate(t *testing.T) {
	src := buildZip(t, sampleEntries, "built by tests")
	out, res := relocateBytes(t, src, testPrefix)

	in := openZip(t, src)
	got := openZip(t, out)

	t.Run("entry count preserved", func(t *testing.T) {
		if len(got.File) != len(in.File) {
			t.Fatalf("relocated archive has %d entries, want %d", len(got.File), len(in.File))
		}
		if res.Entries != len(in.File) {
			t.Errorf("Result.Entries = %d, want %d", res.Entries, len(in.File))
		}
	})

	t.Run("names prefixed in source order", func(t *testing.T) {
		for i, f := range in.File {
			want := string(testPrefix) + "/" + f.Name
			if got.File[i].Name != want {
				t.Errorf("entry %d name = %q, want %q", i, got.File[i].Name, want)
			}
		}
	})

	t.Run("content and metadata preserved", func(t *testing.T) {
		for i, f := range in.File {
			g := got.File[i]
			if !bytes.Equal(readEntry(t, g), readEntry(t, f)) {
				t.Errorf("entry %q content differs after relocation", f.Name)
			}
			if g.Method != f.Method {
				t.Errorf("entry %q method = %d, want %d", f.Name, g.Method, f.Method)
			}
			if g.Mode() != f.Mode() {
				t.Errorf("entry %q mode = %v, want %v", f.Name, g.Mode(), f.Mode())
			}
			if !g.Modified.Equal(f.Modified) {
				t.Errorf("entry %q modified = %v, want %v", f.Name, g.Modified, f.Modified)
			}
			if g.CRC32 != f.CRC32 || g.CompressedSize64 != f.CompressedSize64 {
				t.Errorf("entry %q raw header changed", f.Name)
			}
		}
	})

	t.Run("archive comment preserved", func(t *testing.T) {
		if got.Comment != "built by tests" {
			t.Errorf("comment = %q", got.Comment)
		}
	})

	t.Run("result describes output", func(t *testing.T) {
		if res.Size != int64(len(out)) {
			t.Errorf("Result.Size = %d, want %d", res.Size, len(out))
		}
		if want := digest.FromBytes(out); res.Digest != want {
			t.Errorf("Result.Digest = %s, want %s", res.Digest, want)
		}
		var total uint64
		for _, e := range sampleEntries {
			total += uint64(len(e.body))
		}
		if res.UncompressedBytes != total {
			t.Errorf("Result.UncompressedBytes = %d, want %d", res.UncompressedBytes, total)
		}
	})
}

func TestRelocate_DoublePrefix(t *testing.T) {
	src := buildZip(t, sampleEntries, "")
	once, _ := relocateBytes(t, src, testPrefix)
	twice, res := relocateBytes(t, once, testPrefix)

	zr := openZip(t, twice)
	if res.Entries != len(sampleEntries) || len(zr.File) != len(sampleEntries) {
		t.Fatalf("double relocation changed entry count: got %d, want %d", len(zr.File), len(sampleEntries))
	}
	for i, e := range sampleEntries {
		want := string(testPrefix) + "/" + string(testPrefix) + "/" + e.name
		if zr.File[i].Name != want {
			t.Errorf("entry %d = %q, want %q", i, zr.File[i].Name, want)
		}
		if string(readEntry(t, zr.File[i])) != e.body {
			t.Errorf("entry %q content changed after double relocation", e.name)
		}
	}
}

func TestRelocate_DuplicateNamesKept(t *testing.T) {
	entries := []testEntry{
		{name: "dup.txt", body: "first", method: zip.Store, mode: 0o644},
		{name: "dup.txt", body: "second", method: zip.Deflate, mode: 0o600},
	}
	out, res := relocateBytes(t, buildZip(t, entries, ""), "lib")

	zr := openZip(t, out)
	if res.Entries != 2 || len(zr.File) != 2 {
		t.Fatalf("duplicate entries were merged: got %d entries", len(zr.File))
	}
	for i, want := range []string{"first", "second"} {
		if zr.File[i].Name != "lib/dup.txt" {
			t.Errorf("entry %d name = %q", i, zr.File[i].Name)
		}
		if got := string(readEntry(t, zr.File[i])); got != want {
			t.Errorf("entry %d content = %q, want %q", i, got, want)
		}
	}
}

func TestRelocate_EmptyArchive(t *testing.T) {
	out, res := relocateBytes(t, buildZip(t, nil, ""), testPrefix)
	if res.Entries != 0 {
		t.Errorf("Result.Entries = %d, want 0", res.Entries)
	}
	if n := len(openZip(t, out).File); n != 0 {
		t.Errorf("relocated archive has %d entries, want 0", n)
	}
}

func TestRelocate_MalformedSource(t *testing.T) {
	var out bytes.Buffer
	garbage := []byte("this is not a zip archive")
	_, err := Relocate(bytes.NewReader(garbage), int64(len(garbage)), &out, testPrefix)
	if !errors.Is(err, ErrMalformedArchive) {
		t.Fatalf("Relocate() error = %v, want ErrMalformedArchive", err)
	}
	var malformed *MalformedArchiveError
	if !errors.As(err, &malformed) {
		t.Fatalf("error is not a *MalformedArchiveError: %T", err)
	}
}

func TestRelocate_InvalidPrefix(t *testing.T) {
	src := buildZip(t, sampleEntries, "")
	for _, p := range []Prefix{"", "site-packages/", "/", "python/lib//"} {
		t.Run(string(p), func(t *testing.T) {
			var out bytes.Buffer
			_, err := Relocate(bytes.NewReader(src), int64(len(src)), &out, p)
			if !errors.Is(err, ErrInvalidPrefix) {
				t.Errorf("Relocate(prefix=%q) error = %v, want ErrInvalidPrefix", p, err)
			}
			if out.Len() != 0 {
				t.Errorf("Relocate(prefix=%q) wrote %d bytes before failing", p, out.Len())
			}
		})
	}
}

func TestRelocate_AnyNonEmptyPrefix(t *testing.T) {
	src := buildZip(t, sampleEntries, "")
	for _, p := range []Prefix{"/python/lib/python3.9/site-packages", "a//b", "   ", `a\b`, "x"} {
		t.Run(string(p), func(t *testing.T) {
			out, res := relocateBytes(t, src, p)
			if res.Entries != len(sampleEntries) {
				t.Errorf("Entries = %d, want %d", res.Entries, len(sampleEntries))
			}
			entries, err := Inspect(bytes.NewReader(out), int64(len(out)))
			if err != nil {
				t.Fatalf("Inspect() failed: %v", err)
			}
			for i, e := range entries {
				if want := string(p) + "/" + sampleEntries[i].name; e.Name != want {
					t.Errorf("entry %d name = %q, want %q", i, e.Name, want)
				}
			}
		})
	}
}

type failingWriter struct{ after int }

func (w *failingWriter) Write(p []byte) (int, error) {
	if w.after <= 0 {
		return 0, errors.New("disk full")
	}
	if len(p) > w.after {
		n := w.after
		w.after = 0
		return n, errors.New("disk full")
	}
	w.after -= len(p)
	return len(p), nil
}

func TestRelocate_WriteFailure(t *testing.T) {
	src := buildZip(t, sampleEntries, "")
	_, err := Relocate(bytes.NewReader(src), int64(len(src)), &failingWriter{after: 64}, testPrefix)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Relocate() error = %v, want ErrIO", err)
	}
}

// corruptZip writes a stored entry whose recorded CRC does not match its content.
func corruptZip(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	body := []byte("payload")
	hdr := &zip.FileHeader{
		Name:               "bad.txt",
		Method:             zip.Store,
		CRC32:              0xdeadbeef,
		CompressedSize64:   uint64(len(body)),
		UncompressedSize64: uint64(len(body)),
	}
	w, err := zw.CreateRaw(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(body); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRelocate_Verify(t *testing.T) {
	src := corruptZip(t)

	t.Run("raw copy passes checksum through", func(t *testing.T) {
		var out bytes.Buffer
		if _, err := Relocate(bytes.NewReader(src), int64(len(src)), &out, testPrefix); err != nil {
			t.Fatalf("Relocate() without verify failed: %v", err)
		}
	})

	t.Run("verify rejects bad checksum", func(t *testing.T) {
		var out bytes.Buffer
		_, err := Relocate(bytes.NewReader(src), int64(len(src)), &out, testPrefix, WithVerify())
		if !errors.Is(err, ErrMalformedArchive) {
			t.Fatalf("Relocate(WithVerify) error = %v, want ErrMalformedArchive", err)
		}
		if !errors.Is(err, zip.ErrChecksum) {
			t.Errorf("Relocate(WithVerify) error = %v, want zip.ErrChecksum in chain", err)
		}
	})

	t.Run("verify accepts valid archive", func(t *testing.T) {
		good := buildZip(t, sampleEntries, "")
		relocateBytes(t, good, testPrefix, WithVerify())
	})
}

func TestRelocateFile(t *testing.T) {
	t.Run("writes destination", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, "/in/pkg.whl", buildZip(t, sampleEntries, ""), 0o644); err != nil {
			t.Fatal(err)
		}

		res, err := RelocateFile(fs, "/in/pkg.whl", "/in/layer.zip", testPrefix)
		if err != nil {
			t.Fatalf("RelocateFile() failed: %v", err)
		}

		data, err := afero.ReadFile(fs, "/in/layer.zip")
		if err != nil {
			t.Fatalf("destination not written: %v", err)
		}
		if res.Size != int64(len(data)) {
			t.Errorf("Result.Size = %d, file size = %d", res.Size, len(data))
		}
		if n := len(openZip(t, data).File); n != len(sampleEntries) {
			t.Errorf("destination has %d entries, want %d", n, len(sampleEntries))
		}
	})

	t.Run("removes partial output on malformed source", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, "/in/pkg.whl", []byte("garbage"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := RelocateFile(fs, "/in/pkg.whl", "/in/layer.zip", testPrefix)
		if !errors.Is(err, ErrMalformedArchive) {
			t.Fatalf("RelocateFile() error = %v, want ErrMalformedArchive", err)
		}
		if exists, _ := afero.Exists(fs, "/in/layer.zip"); exists {
			t.Error("partial destination was not removed")
		}
	})

	t.Run("refuses to overwrite destination", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, "/in/pkg.whl", buildZip(t, sampleEntries, ""), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := afero.WriteFile(fs, "/in/layer.zip", []byte("keep me"), 0o644); err != nil {
			t.Fatal(err)
		}

		_, err := RelocateFile(fs, "/in/pkg.whl", "/in/layer.zip", testPrefix)
		if !errors.Is(err, ErrIO) {
			t.Fatalf("RelocateFile() error = %v, want ErrIO", err)
		}
	})
}

func TestInspect(t *testing.T) {
	src := buildZip(t, sampleEntries, "")
	entries, err := Inspect(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		t.Fatalf("Inspect() failed: %v", err)
	}
	if len(entries) != len(sampleEntries) {
		t.Fatalf("Inspect() returned %d entries, want %d", len(entries), len(sampleEntries))
	}
	for i, e := range sampleEntries {
		if entries[i].Name != e.name {
			t.Errorf("entry %d name = %q, want %q", i, entries[i].Name, e.name)
		}
		if entries[i].UncompressedSize != uint64(len(e.body)) {
			t.Errorf("entry %q size = %d, want %d", e.name, entries[i].UncompressedSize, len(e.body))
		}
	}
}
