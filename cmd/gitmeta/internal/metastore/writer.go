package metastore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/albertocavalcante/gitmeta/internal/log"
)

// tmpSuffix names the file a store is built in before it replaces the
// previous one.
const tmpSuffix = ".tmp"

// storeWriter streams a store file. Outside dry-run it builds the file next
// to the target and only renames it into place on commit, so the previous
// store stays intact until the new one is complete.
type storeWriter struct {
	path string
	tmp  string

	f    *os.File
	buf  *bufio.Writer
	hash *xxhash.Digest

	last  string
	count int
	dry   bool
}

// newStoreWriter starts a store at path declaring fields. With dryRun the
// store is written to out instead.
func newStoreWriter(path string, fields Fields, dryRun bool, out io.Writer) (*storeWriter, error) {
	w := &storeWriter{path: path, tmp: path + tmpSuffix, hash: xxhash.New(), dry: dryRun}

	if dryRun {
		w.buf = bufio.NewWriter(out)
	} else {
		if err := removeStale(w.tmp); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
		f, err := os.OpenFile(w.tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to create temp store file: %w", err)
		}
		w.f = f
		w.buf = bufio.NewWriter(io.MultiWriter(f, w.hash))
	}

	if err := w.line(headerLine()); err != nil {
		w.abort()
		return nil, err
	}
	if err := w.line(fields.fieldLine()); err != nil {
		w.abort()
		return nil, err
	}
	return w, nil
}

// removeStale deletes a temp file left behind by an interrupted run.
func removeStale(tmp string) error {
	err := os.Remove(tmp)
	if err == nil {
		log.Component("metastore").Info("removed stale temp store file", "path", tmp)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to remove stale temp store file: %w", err)
}

// writeRecord appends a record line. Keys must be strictly ascending.
func (w *storeWriter) writeRecord(key, line string) error {
	if w.count > 0 && key <= w.last {
		return fmt.Errorf("%w: %q after %q", ErrUnsorted, key, w.last)
	}
	w.last = key
	w.count++
	return w.line(line)
}

func (w *storeWriter) line(s string) error {
	if _, err := w.buf.WriteString(s); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}
	return nil
}

// commit finishes the store. It reports whether the store on disk changed;
// a store identical to the existing one is discarded and left untouched.
func (w *storeWriter) commit() (bool, error) {
	if err := w.buf.Flush(); err != nil {
		w.abort()
		return false, fmt.Errorf("failed to write store: %w", err)
	}
	if w.dry {
		return false, nil
	}
	if err := w.f.Close(); err != nil {
		_ = os.Remove(w.tmp)
		return false, fmt.Errorf("failed to close temp store file: %w", err)
	}
	w.f = nil

	if same, _ := sameDigest(w.path, w.hash.Sum(nil)); same {
		_ = os.Remove(w.tmp)
		return false, nil
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		_ = os.Remove(w.tmp)
		return false, fmt.Errorf("failed to replace store file: %w", err)
	}
	return true, nil
}

// abort drops a store that will not be committed.
func (w *storeWriter) abort() {
	if w.dry || w.f == nil {
		return
	}
	_ = w.f.Close()
	_ = os.Remove(w.tmp)
	w.f = nil
}

// sameDigest reports whether the file at path hashes to digest.
func sameDigest(path string, digest []byte) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return bytes.Equal(h.Sum(nil), digest), nil
}
