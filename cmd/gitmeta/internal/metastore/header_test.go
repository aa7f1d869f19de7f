package metastore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestVersionRange(t *testing.T) {
	tests := []struct {
		version string
		update  bool
		apply   bool
	}{
		{"1.0.0", false, true},
		{"1.2.3", false, true},
		{"2.0.0", true, true},
		{"2.9.1", true, true},
		{"3.0.0", false, false},
		{"0.9.0", false, false},
		{"two", false, false},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.update, UpdateVersions.Contains(tt.version))
			assert.Equal(t, tt.apply, ApplyVersions.Contains(tt.version))
		})
	}
	assert.Equal(t, ">=2.0.0,<3.0.0", UpdateVersions.String())
}

func TestReadHeader(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content *string
		wantErr error
		fields  Fields
	}{
		{
			name:    "missing",
			wantErr: ErrStoreMissing,
		},
		{
			name:    "valid",
			content: ptr("# generated by\tgitmeta\t2.0.0\n<file>\t<type>\t<mtime>\n"),
			fields:  Fields{FieldFile, FieldType, FieldMtime},
		},
		{
			name:    "valid without trailing newline",
			content: ptr("# generated by\tgitmeta\t2.1.0\r\n<file>\t<type>"),
			fields:  Fields{FieldFile, FieldType},
		},
		{
			name:    "empty",
			content: ptr(""),
			wantErr: ErrMalformedHeader,
		},
		{
			name:    "header only",
			content: ptr("# generated by\tgitmeta\t2.0.0\n"),
			wantErr: ErrMalformedHeader,
		},
		{
			name:    "garbage",
			content: ptr("hello world\n<file>\t<type>\n"),
			wantErr: ErrMalformedHeader,
		},
		{
			name:    "bad field line",
			content: ptr("# generated by\tgitmeta\t2.0.0\nfile\ttype\n"),
			wantErr: ErrMalformedHeader,
		},
		{
			name:    "foreign producer",
			content: ptr("# generated by\tsomething-else\t2.0.0\n<file>\t<type>\n"),
			wantErr: ErrForeignProducer,
		},
		{
			name:    "old version",
			content: ptr("# generated by\tgitmeta\t1.1.0\n<file>\t<type>\n"),
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "future version",
			content: ptr("# generated by\tgitmeta\t3.0.0\n<file>\t<type>\n"),
			wantErr: ErrUnsupportedVersion,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "store", string(rune('a'+i)))
			if tt.content != nil {
				writeFile(t, path, *tt.content)
			}

			h := ReadHeader(path)
			err := h.Check(UpdateVersions)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.fields, h.Fields)
		})
	}
}

func TestReadHeader_ApplyAcceptsOldVersions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	writeFile(t, path, "# generated by\tgitmeta\t1.1.0\n<file>\t<type>\n")

	h := ReadHeader(path)
	assert.Equal(t, "1.1.0", h.Version)
	assert.NoError(t, h.Check(ApplyVersions))
	assert.ErrorIs(t, h.Check(UpdateVersions), ErrUnsupportedVersion)
}

func TestReadStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	writeFile(t, path, "# generated by\tgitmeta\t2.0.0\n"+
		"<file>\t<type>\t<mtime>\n"+
		"a.txt\tf\t2020-01-01T00:00:00Z\n"+
		"\n"+
		"b.txt\tf\t2020-01-02T00:00:00Z  \n")

	c, err := ReadStore(path, ApplyVersions)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", c.Version)
	require.Len(t, c.Records, 2)
	assert.Equal(t, "b.txt", c.Records[1].Path)
	assert.Equal(t, jan2, c.Records[1].Mtime)
}

func TestReadStore_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store")
	writeFile(t, path, "# generated by\tgitmeta\t2.0.0\n"+
		"<file>\t<type>\t<mtime>\n"+
		"a.txt\tf\t2020-01-01T00:00:00Z\n"+
		"b.txt\tf\tnot-a-time\n")

	_, err := ReadStore(path, ApplyVersions)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 4, perr.Line)
	assert.Contains(t, err.Error(), "store line 4")
}

func ptr(s string) *string {
	return &s
}
