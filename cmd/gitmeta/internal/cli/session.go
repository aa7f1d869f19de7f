package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/attr"
	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/git"
	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/metastore"
)

// session is the repository and store a command works on.
type session struct {
	repo  *git.Repo
	store string // absolute path of the store file
}

// openSession finds the working tree around the current directory and
// resolves the store path from --target or the configuration.
func openSession(ctx context.Context) (*session, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to determine working directory: %w", err)
	}
	repo, err := git.Open(ctx, wd)
	if err != nil {
		return nil, err
	}
	return &session{
		repo:  repo,
		store: resolveStorePath(wd, repo.Root(), globalFlags.target, cfg.Store.File),
	}, nil
}

// resolveStorePath returns the absolute store path. A --target value is
// relative to the current directory, a configured one to the working tree
// root.
func resolveStorePath(wd, root, target, configured string) string {
	var p string
	switch {
	case target != "" && filepath.IsAbs(target):
		p = target
	case target != "":
		p = filepath.Join(wd, target)
	case configured != "" && filepath.IsAbs(configured):
		p = configured
	case configured != "":
		p = filepath.Join(root, configured)
	default:
		p = filepath.Join(root, metastore.DefaultStoreFile)
	}

	// git reports the root with symlinks resolved; do the same so the store
	// is recognized as a path inside the tree.
	if dir, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		p = filepath.Join(dir, filepath.Base(p))
	}
	return filepath.Clean(p)
}

// resolveFields parses --fields, falling back to the configured list when
// useConfig is set. Nil means the engine picks the fields.
func resolveFields(names []string, useConfig bool) (metastore.Fields, error) {
	if len(names) == 0 && useConfig {
		names = cfg.Store.Fields
	}
	if len(names) == 0 {
		return nil, nil
	}
	return metastore.ParseFields(names)
}

// engine builds the engine for one run. opts carries the per-command
// settings; the location and output are filled in here.
func (s *session) engine(cmd *cobra.Command, opts metastore.Options) *metastore.Engine {
	opts.Root = s.repo.Root()
	opts.StoreFile = s.store
	opts.Output = cmd.OutOrStdout()
	return metastore.New(opts, s.repo, attr.NewHost())
}

// relStore returns the store path as shown to the user.
func (s *session) relStore() string {
	rel, err := filepath.Rel(s.repo.Root(), s.store)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return s.store
	}
	return rel
}
