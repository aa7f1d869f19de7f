package metastore

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albertocavalcante/gitmeta/internal/log"
)

const applyHeader = "# generated by\tgitmeta\t2.0.0\n"

func applyFixture(t *testing.T, body string) (Options, *fakeVCS, *fakeSystem) {
	t.Helper()
	root, vcs, sys := fixture(t)
	opts := testOptions(root)
	writeFile(t, opts.StoreFile, applyHeader+body)
	return opts, vcs, sys
}

func TestApply_RestoresMtime(t *testing.T) {
	opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\n"+
		"README.md\tf\t2020-01-01T00:00:00Z\n")
	sys.get("README.md").info.Mtime = time.Unix(jan4, 0)
	sys.get("README.md").info.Atime = time.Unix(jan3, 0)
	opts.Fields = mustFields(t, "mtime")

	res, err := New(opts, vcs, sys).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changes)
	assert.Zero(t, res.Warnings)

	e := sys.get("README.md")
	assert.Equal(t, jan1, e.info.Mtime.Unix())
	assert.Equal(t, jan3, e.info.Atime.Unix(), "atime must be preserved")
	assert.Equal(t, []string{"lutimes README.md 2020-01-03T00:00:00Z 2020-01-01T00:00:00Z"}, sys.calls)
}

func TestApply_Idempotent(t *testing.T) {
	opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\t<atime>\t<mode>\t<uid>\t<gid>\t<user>\t<group>\t<acl>\n"+
		"README.md\tf\t2020-01-02T00:00:00Z\t2020-01-03T00:00:00Z\t0640\t0\t0\troot\troot\tuser:bob:rw-\n"+
		"link\tl\t2020-01-01T00:00:00Z\t2020-01-01T00:00:00Z\t0777\t0\t0\n"+
		"missing.txt\tf\t2020-01-01T00:00:00Z\t2020-01-01T00:00:00Z\t0644\t0\t0\n")

	first, err := New(opts, vcs, sys).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, first.Records)
	assert.Equal(t, 1, first.Skipped)
	assert.Equal(t, 1, first.Warnings)
	assert.Equal(t, []string{
		"lchown README.md 0:0",
		"chmod README.md 0640",
		"setacl README.md user:bob:rw-",
		"lutimes README.md 2020-01-01T00:00:00Z 2020-01-02T00:00:00Z",
		"lutimes README.md 2020-01-03T00:00:00Z 2020-01-02T00:00:00Z",
		"lchown link 0:0",
		"lutimes link 2020-01-03T00:00:00Z 2020-01-01T00:00:00Z",
		"lutimes link 2020-01-01T00:00:00Z 2020-01-01T00:00:00Z",
	}, sys.calls)
	assert.Equal(t, len(sys.calls), first.Changes)

	sys.calls = nil
	second, err := New(opts, vcs, sys).Apply(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sys.calls)
	assert.Zero(t, second.Changes)
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestApply_SymlinkCheckedOutAsFile(t *testing.T) {
	opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\t<mode>\n"+
		"plain\tl\t2020-01-01T00:00:00Z\t0777\n")
	sys.add("plain", 0o644, jan4)

	res, err := New(opts, vcs, sys).Apply(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
	assert.Zero(t, res.Warnings)
	assert.Equal(t, jan1, sys.get("plain").info.Mtime.Unix())
	assert.Equal(t, fs.FileMode(0o644), sys.get("plain").info.Mode, "mode is never applied to links")
}

func TestApply_Skips(t *testing.T) {
	opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\t<directory>\n"+
		DefaultStoreFile+"\tf\t2020-01-02T00:00:00Z\n"+
		"README.md\td\t2020-01-02T00:00:00Z\n"+
		"link\tf\t2020-01-02T00:00:00Z\n"+
		"nowhere\tf\t2020-01-02T00:00:00Z\n"+
		"src\td\t2020-01-02T00:00:00Z\n")

	t.Run("without directories", func(t *testing.T) {
		opts := opts
		opts.Fields = mustFields(t, "mtime")
		res, err := New(opts, vcs, sys).Apply(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 5, res.Skipped)
		assert.Equal(t, 3, res.Warnings, "directory records are skipped silently")
		assert.Empty(t, sys.calls)
	})

	t.Run("with directories", func(t *testing.T) {
		res, err := New(opts, vcs, sys).Apply(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4, res.Skipped)
		assert.Equal(t, 4, res.Warnings)
		assert.Equal(t, []string{"lutimes src 2020-01-04T00:00:00Z 2020-01-02T00:00:00Z"}, sys.calls)
	})
}

func TestApply_Owner(t *testing.T) {
	body := "<file>\t<type>\t<uid>\t<gid>\t<user>\t<group>\n" +
		"README.md\tf\t0\t0\tnobody-here\tstaff\n" +
		"src/main.go\tf\t1000\t50\tmallory\n"

	t.Run("names with numeric fallback", func(t *testing.T) {
		opts, vcs, sys := applyFixture(t, body)
		res, err := New(opts, vcs, sys).Apply(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.Warnings)
		assert.Equal(t, []string{"lchown README.md 0:-1"}, sys.calls)
	})

	t.Run("names only", func(t *testing.T) {
		opts, vcs, sys := applyFixture(t, body)
		opts.Fields = mustFields(t, "user", "group")
		res, err := New(opts, vcs, sys).Apply(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, res.Warnings)
		assert.Empty(t, sys.calls)
	})
}

func TestApply_FailuresAreIsolated(t *testing.T) {
	opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\t<mode>\n"+
		"README.md\tf\t2020-01-03T00:00:00Z\t0600\n"+
		"src/main.go\tf\t2020-01-03T00:00:00Z\t0600\n")
	sys.fail["chmod"] = errors.New("operation not permitted")

	res, err := New(opts, vcs, sys).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Warnings)
	assert.Equal(t, 2, res.Changes)
	assert.Equal(t, jan3, sys.get("README.md").info.Mtime.Unix())
	assert.Equal(t, jan3, sys.get("src/main.go").info.Mtime.Unix())
}

func TestApply_DryRunVerbose(t *testing.T) {
	opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\t<mode>\t<acl>\n"+
		"README.md\tf\t2020-01-03T00:00:00Z\t0600\tuser:bob:r--,mask::r--\n"+
		"tab\\x09name\tf\t2020-01-01T00:00:00Z\t0600\n")
	out := &bytes.Buffer{}
	opts.Output = out
	opts.DryRun = true
	opts.Verbose = true

	res, err := New(opts, vcs, sys).Apply(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sys.calls)
	assert.Equal(t, 4, res.Changes)
	assert.Equal(t, "README.md: set mode to 0600\n"+
		"README.md: set acl to user:bob:r--,mask::r--\n"+
		"README.md: set mtime to 2020-01-03T00:00:00Z\n"+
		"tab\\x09name: set acl to \n", out.String())
	assert.Equal(t, jan1, sys.get("README.md").info.Mtime.Unix())
}

func TestApply_Preconditions(t *testing.T) {
	t.Run("missing store", func(t *testing.T) {
		root, vcs, sys := fixture(t)
		vcs.dirty = true
		res, err := New(testOptions(root), vcs, sys).Apply(context.Background())
		require.NoError(t, err)
		assert.True(t, res.Missing)
	})

	t.Run("dirty tree", func(t *testing.T) {
		opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\n")
		vcs.dirty = true
		_, err := New(opts, vcs, sys).Apply(context.Background())
		assert.ErrorIs(t, err, ErrDirtyTree)

		opts.Force = true
		_, err = New(opts, vcs, sys).Apply(context.Background())
		assert.NoError(t, err)
	})

	t.Run("old schema accepted", func(t *testing.T) {
		root, vcs, sys := fixture(t)
		opts := testOptions(root)
		writeFile(t, opts.StoreFile, "# generated by\tgitmeta\t1.0.0\n<file>\t<type>\t<mtime>\nREADME.md\tf\t2020-01-02T00:00:00Z\n")
		res, err := New(opts, vcs, sys).Apply(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, res.Changes)
	})

	t.Run("foreign producer", func(t *testing.T) {
		root, vcs, sys := fixture(t)
		opts := testOptions(root)
		writeFile(t, opts.StoreFile, "# generated by\tother\t2.0.0\n<file>\t<type>\n")
		_, err := New(opts, vcs, sys).Apply(context.Background())
		assert.ErrorIs(t, err, ErrForeignProducer)
	})

	t.Run("parse error before any change", func(t *testing.T) {
		opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\n"+
			"README.md\tf\t2020-01-03T00:00:00Z\n"+
			"src/main.go\tf\tsoon\n")
		_, err := New(opts, vcs, sys).Apply(context.Background())
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, 4, perr.Line)
		assert.Empty(t, sys.calls)
	})
}

func TestApply_StatFailureReason(t *testing.T) {
	var buf bytes.Buffer
	log.InitWithWriter(1, "text", &buf)
	t.Cleanup(func() { log.Init(1, "text") })

	opts, vcs, sys := applyFixture(t, "<file>\t<type>\t<mtime>\n"+
		"README.md\tf\t2020-01-01T00:00:00Z\n"+
		"nowhere\tf\t2020-01-01T00:00:00Z\n")

	res, err := New(opts, vcs, sys).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Contains(t, buf.String(), "target does not exist")

	buf.Reset()
	sys.fail["lstat"] = syscall.EACCES
	res, err = New(opts, vcs, sys).Apply(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, res.Warnings)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "cannot stat target"), out)
	assert.Contains(t, out, syscall.EACCES.Error())
	assert.NotContains(t, out, "target does not exist")
	assert.Empty(t, sys.calls)
}
