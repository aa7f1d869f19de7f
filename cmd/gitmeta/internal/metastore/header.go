package metastore

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"golang.org/x/mod/semver"
)

const (
	// headerPrefix starts the first line of every store file.
	headerPrefix = "# generated by"

	// Producer is the producer name written to and expected in headers.
	Producer = "gitmeta"

	// SchemaVersion is the version written by this build.
	SchemaVersion = "2.0.0"
)

// VersionRange is a half-open range [Min, Max) of schema versions.
type VersionRange struct {
	Min string
	Max string
}

var (
	// UpdateVersions are the stores Update can extend.
	UpdateVersions = VersionRange{Min: "2.0.0", Max: "3.0.0"}

	// ApplyVersions are the stores Apply and show can read.
	ApplyVersions = VersionRange{Min: "1.0.0", Max: "3.0.0"}
)

// Contains reports whether version v is inside the range.
func (vr VersionRange) Contains(v string) bool {
	sv := "v" + v
	if !semver.IsValid(sv) {
		return false
	}
	return semver.Compare(sv, "v"+vr.Min) >= 0 && semver.Compare(sv, "v"+vr.Max) < 0
}

func (vr VersionRange) String() string {
	return fmt.Sprintf(">=%s,<%s", vr.Min, vr.Max)
}

// HeaderState describes an existing store file as found at the start of a
// run. It decides which actions may proceed and supplies the default fields.
type HeaderState struct {
	Path       string
	Exists     bool
	Readable   bool
	WellFormed bool
	Producer   string
	Version    string
	Fields     Fields

	cause error
}

// ReadHeader inspects the two header lines of the store at path. Problems
// are recorded in the state, not returned; Check turns them into errors.
func ReadHeader(path string) *HeaderState {
	h := &HeaderState{Path: path}

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return h
	}
	h.Exists = true
	if err != nil {
		h.cause = err
		return h
	}
	defer func() { _ = f.Close() }()

	br := bufio.NewReader(f)
	first, err := readLine(br)
	if err != nil {
		h.Readable = !isReadError(err)
		h.cause = err
		return h
	}
	second, err := readLine(br)
	if err != nil {
		h.Readable = !isReadError(err)
		h.cause = err
		return h
	}
	h.Readable = true

	parts := strings.Split(first, "\t")
	if len(parts) != 3 || parts[0] != headerPrefix {
		h.cause = fmt.Errorf("unexpected first line %q", first)
		return h
	}
	h.Producer = parts[1]
	h.Version = parts[2]

	fields, err := parseFieldLine(second)
	if err != nil {
		h.cause = err
		return h
	}
	h.Fields = fields
	h.WellFormed = true
	return h
}

// Check returns the structural error that stops an action needing a store
// within vr, or nil.
func (h *HeaderState) Check(vr VersionRange) error {
	switch {
	case !h.Exists:
		return fmt.Errorf("%w: %s", ErrStoreMissing, h.Path)
	case !h.Readable:
		return fmt.Errorf("%w: %s: %v", ErrStoreUnreadable, h.Path, h.cause)
	case !h.WellFormed:
		return fmt.Errorf("%w: %s: %v", ErrMalformedHeader, h.Path, h.cause)
	case h.Producer != Producer:
		return fmt.Errorf("%w: %s (producer %q)", ErrForeignProducer, h.Path, h.Producer)
	case !vr.Contains(h.Version):
		return fmt.Errorf("%w: %s has %q, need %s", ErrUnsupportedVersion, h.Path, h.Version, vr)
	}
	return nil
}

func headerLine() string {
	return headerPrefix + "\t" + Producer + "\t" + SchemaVersion
}

// readLine reads one trimmed line. A missing trailing newline is fine; a
// missing line is io.ErrUnexpectedEOF.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err == io.EOF {
		if line == "" {
			return "", io.ErrUnexpectedEOF
		}
		err = nil
	}
	if err != nil {
		return "", err
	}
	return trimLine(line), nil
}

// isReadError separates I/O failures from short files.
func isReadError(err error) bool {
	return !errors.Is(err, io.ErrUnexpectedEOF)
}
