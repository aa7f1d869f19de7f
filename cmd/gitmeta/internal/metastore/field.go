package metastore

import (
	"fmt"
	"slices"
	"strings"
)

// Field names one attribute column of the store.
type Field string

const (
	FieldFile  Field = "file"
	FieldType  Field = "type"
	FieldMtime Field = "mtime"
	FieldAtime Field = "atime"
	FieldMode  Field = "mode"
	FieldUID   Field = "uid"
	FieldGID   Field = "gid"
	FieldUser  Field = "user"
	FieldGroup Field = "group"
	FieldACL   Field = "acl"

	// FieldDirectory is a flag: it is declared in the field line and makes
	// directories part of the store, but it has no record column.
	FieldDirectory Field = "directory"
)

// canonicalFields is the order fields are written in.
var canonicalFields = []Field{
	FieldFile, FieldType, FieldMtime, FieldAtime, FieldMode,
	FieldUID, FieldGID, FieldUser, FieldGroup, FieldACL, FieldDirectory,
}

// DefaultFields is used when neither the caller nor an existing store
// chooses the fields.
var DefaultFields = Fields{FieldFile, FieldType, FieldMtime}

// Fields is an ordered field list.
type Fields []Field

// ParseFields validates user-supplied field names and returns them in
// canonical order with file and type always present. Entries may themselves
// be comma-separated.
func ParseFields(names []string) (Fields, error) {
	want := map[Field]bool{FieldFile: true, FieldType: true}
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			f := Field(name)
			if !slices.Contains(canonicalFields, f) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
			}
			want[f] = true
		}
	}

	fields := make(Fields, 0, len(want))
	for _, f := range canonicalFields {
		if want[f] {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// Has reports whether f is in the list.
func (fs Fields) Has(f Field) bool {
	return slices.Contains(fs, f)
}

// Columns returns the fields that occupy a record column, in order.
func (fs Fields) Columns() []Field {
	cols := make([]Field, 0, len(fs))
	for _, f := range fs {
		if f != FieldDirectory {
			cols = append(cols, f)
		}
	}
	return cols
}

// Intersect returns the fields of fs that are also in other, in fs order.
func (fs Fields) Intersect(other Fields) Fields {
	out := make(Fields, 0, len(fs))
	for _, f := range fs {
		if other.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

func (fs Fields) String() string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = string(f)
	}
	return strings.Join(names, ",")
}

// fieldLine renders the field declaration line.
func (fs Fields) fieldLine() string {
	tags := make([]string, len(fs))
	for i, f := range fs {
		tags[i] = "<" + string(f) + ">"
	}
	return strings.Join(tags, "\t")
}

// parseFieldLine parses a field declaration line, keeping its order.
func parseFieldLine(line string) (Fields, error) {
	var fields Fields
	for _, tag := range strings.Split(line, "\t") {
		if len(tag) < 3 || tag[0] != '<' || tag[len(tag)-1] != '>' {
			return nil, fmt.Errorf("field %q is not tagged", tag)
		}
		f := Field(tag[1 : len(tag)-1])
		if !slices.Contains(canonicalFields, f) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
		if fields.Has(f) {
			return nil, fmt.Errorf("field %q declared twice", f)
		}
		fields = append(fields, f)
	}
	if !fields.Has(FieldFile) || !fields.Has(FieldType) {
		return nil, fmt.Errorf("fields %q must include file and type", fields)
	}
	return fields, nil
}
