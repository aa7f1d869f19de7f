package metastore

import (
	"fmt"
	"strconv"
	"strings"
)

// FileType is the recorded kind of a path.
type FileType byte

const (
	TypeFile FileType = 'f'
	TypeLink FileType = 'l'
	TypeDir  FileType = 'd'
)

func (t FileType) String() string {
	return string(t)
}

func parseFileType(s string) (FileType, error) {
	if len(s) == 1 {
		switch t := FileType(s[0]); t {
		case TypeFile, TypeLink, TypeDir:
			return t, nil
		}
	}
	return 0, fmt.Errorf("invalid type %q", s)
}

// linkMode is written as the mode of every symlink; links have no mode of
// their own.
const linkMode = 0o777

// Record is the metadata of one tracked path. Only the fields the store
// declares are meaningful.
type Record struct {
	Path  string // unescaped, slash-separated, relative to the working tree root
	Type  FileType
	Mtime int64 // epoch seconds
	Atime int64 // epoch seconds
	Mode  uint32
	UID   int
	GID   int
	User  string
	Group string
	ACL   string
}

// Key returns the escaped path records are sorted by.
func (r *Record) Key() string {
	return Escape(r.Path)
}

// Encode renders the record as a line holding the given fields in order.
// Trailing empty columns are dropped; DecodeRecord restores them.
func (r *Record) Encode(fields Fields) string {
	cols := fields.Columns()
	values := make([]string, len(cols))
	for i, f := range cols {
		values[i] = r.Value(f)
	}
	return strings.TrimRight(strings.Join(values, "\t"), " \t")
}

// Value returns the store text of one field; paths are escaped.
func (r *Record) Value(f Field) string {
	switch f {
	case FieldFile:
		return Escape(r.Path)
	case FieldType:
		return r.Type.String()
	case FieldMtime:
		return FormatTime(r.Mtime)
	case FieldAtime:
		return FormatTime(r.Atime)
	case FieldMode:
		return fmt.Sprintf("%04o", r.Mode)
	case FieldUID:
		return strconv.Itoa(r.UID)
	case FieldGID:
		return strconv.Itoa(r.GID)
	case FieldUser:
		return r.User
	case FieldGroup:
		return r.Group
	case FieldACL:
		return r.ACL
	}
	return ""
}

// DecodeRecord parses a record line written with the given fields.
func DecodeRecord(line string, fields Fields) (*Record, error) {
	cols := fields.Columns()
	values := strings.Split(line, "\t")
	if len(values) > len(cols) {
		return nil, fmt.Errorf("record has %d columns, %d declared", len(values), len(cols))
	}

	r := &Record{}
	for i, f := range cols {
		var v string
		if i < len(values) {
			v = values[i]
		}
		if err := r.set(f, v); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
	}
	if r.Path == "" {
		return nil, fmt.Errorf("record has an empty path")
	}
	return r, nil
}

func (r *Record) set(f Field, v string) error {
	var err error
	switch f {
	case FieldFile:
		r.Path = Unescape(v)
	case FieldType:
		r.Type, err = parseFileType(v)
	case FieldMtime:
		r.Mtime, err = ParseTime(v)
	case FieldAtime:
		r.Atime, err = ParseTime(v)
	case FieldMode:
		var m uint64
		m, err = strconv.ParseUint(v, 8, 32)
		if err == nil && m > 0o7777 {
			err = fmt.Errorf("mode %q out of range", v)
		}
		r.Mode = uint32(m)
	case FieldUID:
		r.UID, err = strconv.Atoi(v)
	case FieldGID:
		r.GID, err = strconv.Atoi(v)
	case FieldUser:
		r.User = v
	case FieldGroup:
		r.Group = v
	case FieldACL:
		r.ACL = v
	}
	return err
}

// keyColumn returns the raw file column of a record line.
func keyColumn(line string, fileIdx int) (string, error) {
	rest := line
	for i := 0; ; i++ {
		col, tail, found := strings.Cut(rest, "\t")
		if i == fileIdx {
			if col == "" {
				return "", fmt.Errorf("record has an empty path")
			}
			return col, nil
		}
		if !found {
			return "", fmt.Errorf("record has no file column")
		}
		rest = tail
	}
}

// trimLine removes insignificant whitespace around a store line. Leading
// spaces are kept because they can belong to a path.
func trimLine(s string) string {
	return strings.TrimLeft(strings.TrimRight(s, " \t\r\n"), "\t\r\n")
}
