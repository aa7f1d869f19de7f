//go:build unix

package metastore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/attr"
)

func TestHost_StoreThenApply(t *testing.T) {
	root := t.TempDir()
	for name, mode := range map[string]os.FileMode{"a.txt": 0o644, "run.sh": 0o755} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte(name), mode))
		require.NoError(t, os.Chmod(filepath.Join(root, name), mode))
	}
	require.NoError(t, os.Symlink("a.txt", filepath.Join(root, "link")))

	stamp := time.Unix(jan1, 0)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), stamp, stamp))
	require.NoError(t, os.Chtimes(filepath.Join(root, "run.sh"), stamp, stamp))

	vcs := &fakeVCS{files: []string{"a.txt", "link", "run.sh"}}
	opts := testOptions(root)
	opts.Fields = mustFields(t, "mtime", "mode")

	_, err := New(opts, vcs, attr.NewHost()).Store(context.Background())
	require.NoError(t, err)

	data := string(readStore(t, opts))
	assert.Contains(t, data, "a.txt\tf\t2020-01-01T00:00:00Z\t0644\n")
	assert.Contains(t, data, "link\tl\t")
	assert.Contains(t, data, "\t0777\n")
	assert.Contains(t, data, "run.sh\tf\t2020-01-01T00:00:00Z\t0755\n")

	// Local edits after checkout.
	later := time.Unix(jan4, 0)
	require.NoError(t, os.Chtimes(filepath.Join(root, "a.txt"), later, later))
	require.NoError(t, os.Chmod(filepath.Join(root, "run.sh"), 0o600))

	opts.Fields = nil
	res, err := New(opts, vcs, attr.NewHost()).Apply(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Warnings)

	st, err := os.Stat(filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, jan1, st.ModTime().Unix())

	st, err = os.Stat(filepath.Join(root, "run.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), st.Mode().Perm())

	// A second run finds nothing to do.
	res, err = New(opts, vcs, attr.NewHost()).Apply(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Changes)
}
