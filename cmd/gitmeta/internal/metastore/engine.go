package metastore

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/attr"
	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/git"
	"github.com/albertocavalcante/gitmeta/internal/log"
)

// DefaultStoreFile is the store file name relative to the working tree root.
const DefaultStoreFile = ".git_store_meta"

// VCS is the read-only view of the version-control system the engine needs.
// Paths are slash-separated and relative to the working tree root.
type VCS interface {
	TrackedFiles(ctx context.Context) ([]string, error)
	TrackedDirs(ctx context.Context) ([]string, error)
	StagedChanges(ctx context.Context) (*git.ChangeSet, error)
	IsDirty(ctx context.Context) (bool, error)
}

// Options is the configuration of one run. It is built once by the caller
// and not modified afterwards.
type Options struct {
	// Root is the absolute path of the working tree.
	Root string

	// StoreFile is the absolute path of the store file.
	StoreFile string

	// Fields requested by the caller. Nil means inherit them from the
	// existing store, or DefaultFields when there is none.
	Fields Fields

	// DryRun computes everything but changes nothing on disk.
	DryRun bool

	// Verbose reports every attribute Apply attempts to Output.
	Verbose bool

	// Force lets Apply run on a working tree with uncommitted changes.
	Force bool

	// Output receives dry-run stores and verbose reports. Defaults to stdout.
	Output io.Writer
}

// Engine runs the Store, Update and Apply actions.
type Engine struct {
	opts   Options
	vcs    VCS
	sys    attr.System
	self   string
	logger *slog.Logger

	aclWarned bool
}

// New creates an Engine.
func New(opts Options, vcs VCS, sys attr.System) *Engine {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Engine{
		opts:   opts,
		vcs:    vcs,
		sys:    sys,
		self:   selfPath(opts.Root, opts.StoreFile),
		logger: log.Component("metastore"),
	}
}

// selfPath returns the store file relative to root, or "" when it lies
// outside the working tree.
func selfPath(root, store string) string {
	rel, err := filepath.Rel(root, store)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

// abs maps a relative slash path to the filesystem.
func (e *Engine) abs(rel string) string {
	return filepath.Join(e.opts.Root, filepath.FromSlash(rel))
}

// resolveFields picks the fields a new store declares.
func (e *Engine) resolveFields(h *HeaderState) Fields {
	if e.opts.Fields != nil {
		return e.opts.Fields
	}
	if h.Check(UpdateVersions) == nil {
		return h.Fields
	}
	return DefaultFields
}
