// Package git queries the version-control state gitmeta works against.
//
// All queries are read-only: gitmeta never writes to the object store or
// the index.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/gitmeta/internal/log"
	"github.com/albertocavalcante/gitmeta/pkg/util"
)

var (
	// ErrNotRepository is returned when the directory is not inside a git working tree.
	ErrNotRepository = errors.New("not inside a git working tree")

	// ErrGitNotFound is returned when the git binary cannot be located.
	ErrGitNotFound = errors.New("git binary not found")
)

// Repo is a git working tree.
type Repo struct {
	root    string
	gitPath string
}

// Option configures a Repo.
type Option func(*Repo)

// WithGitPath sets the git executable to use.
// Used primarily for testing.
func WithGitPath(path string) Option {
	return func(r *Repo) {
		r.gitPath = path
	}
}

// Open finds the working tree containing dir.
func Open(ctx context.Context, dir string, opts ...Option) (*Repo, error) {
	r := &Repo{gitPath: "git"}
	for _, opt := range opts {
		opt(r)
	}

	if _, err := exec.LookPath(r.gitPath); err != nil {
		return nil, ErrGitNotFound
	}

	cmd := exec.CommandContext(ctx, r.gitPath, "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	top := strings.TrimSpace(string(out))
	if top == "" {
		// Inside .git or a bare repository.
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, dir)
	}
	r.root = filepath.FromSlash(top)
	return r, nil
}

// Root returns the absolute path of the working tree.
func (r *Repo) Root() string {
	return r.root
}

// IndexPath returns the absolute path of the index file.
func (r *Repo) IndexPath(ctx context.Context) (string, error) {
	out, err := r.output(ctx, "rev-parse", "--git-path", "index")
	if err != nil {
		return "", err
	}
	p := filepath.FromSlash(strings.TrimSpace(string(out)))
	if !filepath.IsAbs(p) {
		p = filepath.Join(r.root, p)
	}
	return p, nil
}

// TrackedFiles lists every path in the index, slash-separated and relative
// to the root.
func (r *Repo) TrackedFiles(ctx context.Context) ([]string, error) {
	out, err := r.output(ctx, "ls-files", "-z")
	if err != nil {
		return nil, err
	}

	// Unmerged paths are listed once per stage.
	return util.SortedSet(splitNUL(out)), nil
}

// TrackedDirs lists every directory that contains a tracked path, as staged.
// Git records no empty directories, so this is the directory set of the
// tree the next commit would have.
func (r *Repo) TrackedDirs(ctx context.Context) ([]string, error) {
	files, err := r.TrackedFiles(ctx)
	if err != nil {
		return nil, err
	}

	dirs := make(map[string]struct{})
	for _, f := range files {
		for _, dir := range Ancestors(f) {
			if _, seen := dirs[dir]; seen {
				break
			}
			dirs[dir] = struct{}{}
		}
	}
	return util.SortedKeys(dirs), nil
}

// StagedChanges reports the staged path-level changes against HEAD.
func (r *Repo) StagedChanges(ctx context.Context) (*ChangeSet, error) {
	out, err := r.output(ctx, "diff", "--cached", "--name-status", "--no-renames", "-z")
	if err != nil {
		return nil, err
	}
	return parseNameStatus(out)
}

// IsDirty reports whether tracked files have staged or unstaged changes.
// Untracked files are ignored.
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.output(ctx, "status", "--porcelain", "-z", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return len(out) > 0, nil
}

func (r *Repo) output(ctx context.Context, args ...string) ([]byte, error) {
	log.Debug("running git", "args", args)

	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = r.root
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("git %s: %w", args[0], err)
		}
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, msg)
	}
	log.Trace("git finished", "args", args, "bytes", len(out))
	return out, nil
}
