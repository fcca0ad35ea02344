// SPDX-License-Identifier: MPL-2.0

package relocate

import (
	"archive/zip"
	_ "crypto/sha256" // registers digest.SHA256
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/afero"
)

type (
	// Result describes a relocated archive.
	Result struct {
		// Entries is the number of entries written; always equal to the
		// number of entries in the source archive.
		Entries int
		// UncompressedBytes is the sum of the decoded entry sizes.
		UncompressedBytes uint64
		// Size is the number of bytes of the serialized archive.
		Size int64
		// Digest is the sha256 digest of the serialized archive.
		Digest digest.Digest
	}

	// Entry is a read-only view of one archive entry.
	Entry struct {
		Name             string
		Method           uint16
		Mode             os.FileMode
		Modified         time.Time
		CRC32            uint32
		CompressedSize   uint64
		UncompressedSize uint64
	}

	// Option configures Relocate.
	Option func(*options)

	options struct {
		verify bool
		logger *log.Logger
	}

	// countingWriter tracks how many bytes reach the destination.
	countingWriter struct {
		w io.Writer
		n int64
	}

	// sourceReader records read failures so they can be told apart from
	// write failures after io.Copy returns.
	sourceReader struct {
		r   io.Reader
		err error
	}
)

// WithVerify decodes every entry and checks its CRC-32 before copying it.
// A checksum or decompression failure is reported as a MalformedArchiveError.
func WithVerify() Option {
	return func(o *options) { o.verify = true }
}

// WithLogger sets a logger for per-entry debug output.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Relocate reads the zip archive in src and writes a copy of it to dst with
// every entry name rewritten to prefix + "/" + name.
//
// Entry bytes are copied without recompression, so decoded content and all
// header metadata other than the name are bit-identical to the source.
func Relocate(src io.ReaderAt, size int64, dst io.Writer, prefix Prefix, opts ...Option) (Result, error) {
	if valid, errs := prefix.IsValid(); !valid {
		return Result{}, errs[0]
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	zr, err := zip.NewReader(src, size)
	if err != nil {
		return Result{}, &MalformedArchiveError{Err: err}
	}

	digester := digest.Canonical.Digester()
	cw := &countingWriter{w: io.MultiWriter(dst, digester.Hash())}
	zw := zip.NewWriter(cw)

	if zr.Comment != "" {
		if err := zw.SetComment(zr.Comment); err != nil {
			return Result{}, &MalformedArchiveError{Err: err}
		}
	}

	var res Result
	for _, f := range zr.File {
		if o.verify {
			if err := verifyEntry(f); err != nil {
				return Result{}, &MalformedArchiveError{Entry: f.Name, Err: err}
			}
		}
		if err := copyEntry(zw, f, prefix); err != nil {
			return Result{}, err
		}
		if o.logger != nil {
			o.logger.Debug("relocated entry", "from", f.Name, "to", prefix.Join(f.Name), "method", f.Method)
		}
		res.Entries++
		res.UncompressedBytes += f.UncompressedSize64
	}

	if err := zw.Close(); err != nil {
		return Result{}, &IOError{Err: err}
	}

	res.Size = cw.n
	res.Digest = digester.Digest()
	return res, nil
}

// RelocateFile relocates the archive at srcPath into a new file at dstPath.
// The destination must not exist. On any failure the partially written
// destination is removed.
func RelocateFile(fs afero.Fs, srcPath, dstPath string, prefix Prefix, opts ...Option) (res Result, err error) {
	in, err := fs.Open(srcPath)
	if err != nil {
		return Result{}, &MalformedArchiveError{Err: fmt.Errorf("open %s: %w", srcPath, err)}
	}
	defer func() { _ = in.Close() }() // read-only handle

	info, err := in.Stat()
	if err != nil {
		return Result{}, &MalformedArchiveError{Err: fmt.Errorf("stat %s: %w", srcPath, err)}
	}

	out, err := fs.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return Result{}, &IOError{Path: dstPath, Err: err}
	}

	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = &IOError{Path: dstPath, Err: closeErr}
		}
		if err != nil {
			_ = fs.Remove(dstPath) // Best-effort cleanup of partial output
			res = Result{}
		}
	}()

	res, err = Relocate(in, info.Size(), out, prefix, opts...)
	if err != nil {
		var ioErr *IOError
		if errors.As(err, &ioErr) && ioErr.Path == "" {
			ioErr.Path = dstPath
		}
		return Result{}, err
	}
	return res, nil
}

// Inspect lists the entries of the zip archive in src, in archive order.
func Inspect(src io.ReaderAt, size int64) ([]Entry, error) {
	zr, err := zip.NewReader(src, size)
	if err != nil {
		return nil, &MalformedArchiveError{Err: err}
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		entries = append(entries, Entry{
			Name:             f.Name,
			Method:           f.Method,
			Mode:             f.Mode(),
			Modified:         f.Modified,
			CRC32:            f.CRC32,
			CompressedSize:   f.CompressedSize64,
			UncompressedSize: f.UncompressedSize64,
		})
	}
	return entries, nil
}

// copyEntry writes one source entry to zw under its relocated name.
func copyEntry(zw *zip.Writer, f *zip.File, prefix Prefix) error {
	raw, err := f.OpenRaw()
	if err != nil {
		return &MalformedArchiveError{Entry: f.Name, Err: err}
	}

	// Copy the header so the source reader is left untouched.
	hdr := f.FileHeader
	hdr.Name = prefix.Join(f.Name)

	w, err := zw.CreateRaw(&hdr)
	if err != nil {
		return &IOError{Err: fmt.Errorf("entry %q: %w", hdr.Name, err)}
	}

	sr := &sourceReader{r: raw}
	if _, err := io.Copy(w, sr); err != nil {
		if sr.err != nil {
			return &MalformedArchiveError{Entry: f.Name, Err: sr.err}
		}
		return &IOError{Err: fmt.Errorf("entry %q: %w", hdr.Name, err)}
	}
	return nil
}

// verifyEntry decodes an entry fully; archive/zip checks the CRC-32 at EOF.
func verifyEntry(f *zip.File) (err error) {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	//nolint:gosec // G110: decoded bytes are discarded, not buffered
	_, err = io.Copy(io.Discard, rc)
	return err
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		s.err = err
	}
	return n, err
}
