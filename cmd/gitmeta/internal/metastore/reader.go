package metastore

import (
	"bufio"
	"fmt"
	"os"
)

// maxLineSize bounds one store line; ACL columns can be long.
const maxLineSize = 4 << 20

// storeLine is one non-empty record line of a store file.
type storeLine struct {
	num  int // 1-based line number in the file
	text string
}

// readBody returns the trimmed record lines of the store at path, skipping
// the two header lines and blank lines.
func readBody(path string) ([]storeLine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnreadable, err)
	}
	defer func() { _ = f.Close() }()

	var lines []storeLine
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	num := 0
	for sc.Scan() {
		num++
		if num <= 2 {
			continue
		}
		text := trimLine(sc.Text())
		if text == "" {
			continue
		}
		lines = append(lines, storeLine{num: num, text: text})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnreadable, path, err)
	}
	return lines, nil
}

// decodeBody decodes every line with fields. The first undecodable line
// stops the pass with a *ParseError.
func decodeBody(lines []storeLine, fields Fields) ([]*Record, error) {
	records := make([]*Record, 0, len(lines))
	for _, l := range lines {
		r, err := DecodeRecord(l.text, fields)
		if err != nil {
			return nil, &ParseError{Line: l.num, Err: err}
		}
		records = append(records, r)
	}
	return records, nil
}

// Contents is a fully decoded store file.
type Contents struct {
	Version string
	Fields  Fields
	Records []*Record
}

// ReadStore checks the header of the store at path against vr and decodes
// all of its records.
func ReadStore(path string, vr VersionRange) (*Contents, error) {
	h := ReadHeader(path)
	if err := h.Check(vr); err != nil {
		return nil, err
	}
	lines, err := readBody(path)
	if err != nil {
		return nil, err
	}
	records, err := decodeBody(lines, h.Fields)
	if err != nil {
		return nil, err
	}
	return &Contents{Version: h.Version, Fields: h.Fields, Records: records}, nil
}
