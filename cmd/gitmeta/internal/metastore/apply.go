package metastore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/attr"
)

// ApplyResult summarizes an Apply run.
type ApplyResult struct {
	Fields   Fields
	Records  int // records read from the store
	Skipped  int // records not applied at all
	Changes  int // attributes changed, or that would change in dry-run
	Warnings int
	Missing  bool // there was no store to apply
	DryRun   bool
}

// Apply restores the recorded attributes onto the working tree. Problems
// with single paths or attributes are logged and counted; only structural
// problems with the store or the working tree are returned.
func (e *Engine) Apply(ctx context.Context) (*ApplyResult, error) {
	res := &ApplyResult{DryRun: e.opts.DryRun}

	h := ReadHeader(e.opts.StoreFile)
	if !h.Exists {
		e.logger.Info("no store file, nothing to apply", "path", e.opts.StoreFile)
		res.Missing = true
		return res, nil
	}
	if err := h.Check(ApplyVersions); err != nil {
		return nil, err
	}
	if !e.opts.Force {
		dirty, err := e.vcs.IsDirty(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check working tree status: %w", err)
		}
		if dirty {
			return nil, ErrDirtyTree
		}
	}

	fields := h.Fields
	if e.opts.Fields != nil {
		fields = h.Fields.Intersect(e.opts.Fields)
	}
	res.Fields = fields

	lines, err := readBody(e.opts.StoreFile)
	if err != nil {
		return nil, err
	}
	records, err := decodeBody(lines, h.Fields)
	if err != nil {
		return nil, err
	}
	res.Records = len(records)

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e.applyRecord(r, fields, res)
	}

	e.logger.Info("store applied", "path", e.opts.StoreFile, "records", res.Records, "skipped", res.Skipped,
		"changes", res.Changes, "warnings", res.Warnings, "dry_run", e.opts.DryRun)
	return res, nil
}

// target is the live state of one path while it is being restored.
type target struct {
	rel   string
	path  string
	link  bool
	info  *attr.Info
	atime time.Time
	mtime time.Time
}

func (e *Engine) applyRecord(r *Record, fields Fields, res *ApplyResult) {
	if r.Type == TypeDir && !fields.Has(FieldDirectory) {
		res.Skipped++
		return
	}
	if e.self != "" && r.Path == e.self {
		e.skip(res, r.Path, "path is the store file")
		return
	}

	path := e.abs(r.Path)
	info, err := e.sys.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		e.skip(res, r.Path, "target does not exist")
		return
	}
	if err != nil {
		e.skip(res, r.Path, fmt.Sprintf("cannot stat target: %v", err))
		return
	}
	live, ok := typeOf(info.Mode)
	if !ok || (live != r.Type && !(r.Type == TypeLink && live == TypeFile)) {
		e.skip(res, r.Path, fmt.Sprintf("type mismatch: recorded %s, found %s", r.Type, info.Mode.Type()))
		return
	}

	t := &target{
		rel:   r.Path,
		path:  path,
		link:  r.Type == TypeLink || live == TypeLink,
		info:  info,
		atime: info.Atime,
		mtime: info.Mtime,
	}

	if fields.Has(FieldUser) || fields.Has(FieldUID) || fields.Has(FieldGroup) || fields.Has(FieldGID) {
		e.applyOwner(t, r, fields, res)
	}
	if fields.Has(FieldMode) && !t.link {
		e.applyMode(t, r, res)
	}
	if fields.Has(FieldACL) && !t.link {
		e.applyACL(t, r, res)
	}
	if fields.Has(FieldMtime) && t.mtime.Unix() != r.Mtime {
		want := time.Unix(r.Mtime, 0)
		if e.attempt(t, res, "mtime", FormatTime(r.Mtime), func() error {
			return e.sys.Lutimes(t.path, t.atime, want)
		}) {
			t.mtime = want
		}
	}
	if fields.Has(FieldAtime) && t.atime.Unix() != r.Atime {
		want := time.Unix(r.Atime, 0)
		if e.attempt(t, res, "atime", FormatTime(r.Atime), func() error {
			return e.sys.Lutimes(t.path, want, t.mtime)
		}) {
			t.atime = want
		}
	}
}

// applyOwner changes ownership, preferring names over numeric ids.
func (e *Engine) applyOwner(t *target, r *Record, fields Fields, res *ApplyResult) {
	uid := e.ownerID(t, res, "user", fields.Has(FieldUser), r.User, fields.Has(FieldUID), r.UID, e.sys.LookupUser)
	gid := e.ownerID(t, res, "group", fields.Has(FieldGroup), r.Group, fields.Has(FieldGID), r.GID, e.sys.LookupGroup)
	if uid == t.info.UID {
		uid = -1
	}
	if gid == t.info.GID {
		gid = -1
	}
	if uid == -1 && gid == -1 {
		return
	}
	e.attempt(t, res, "owner", strconv.Itoa(uid)+":"+strconv.Itoa(gid), func() error {
		return e.sys.Lchown(t.path, uid, gid)
	})
}

// ownerID resolves the wanted uid or gid, or -1 to leave it alone.
func (e *Engine) ownerID(t *target, res *ApplyResult, attrName string, useName bool, name string, useID bool, id int, lookup func(string) (int, error)) int {
	if useName && name != "" {
		resolved, err := lookup(name)
		if err == nil {
			return resolved
		}
		if !useID {
			e.warn(res, t.rel, attrName, fmt.Errorf("unknown %s %q: %w", attrName, name, err))
			return -1
		}
		e.logger.Debug("falling back to numeric id", "path", t.rel, "attr", attrName, "name", name, "id", id)
	}
	if useID {
		return id
	}
	return -1
}

func (e *Engine) applyMode(t *target, r *Record, res *ApplyResult) {
	if attr.PermBits(t.info.Mode) == r.Mode {
		return
	}
	e.attempt(t, res, "mode", fmt.Sprintf("%04o", r.Mode), func() error {
		return e.sys.Chmod(t.path, attr.ModeFromBits(r.Mode))
	})
}

func (e *Engine) applyACL(t *target, r *Record, res *ApplyResult) {
	if !e.opts.DryRun {
		if cur, err := e.sys.GetACL(t.path); err == nil && cur == r.ACL {
			return
		}
	}
	e.attempt(t, res, "acl", r.ACL, func() error {
		return e.sys.SetACL(t.path, r.ACL)
	})
}

// attempt reports and performs one attribute change. In dry-run nothing is
// called and the change counts as successful.
func (e *Engine) attempt(t *target, res *ApplyResult, attrName, value string, fn func() error) bool {
	if e.opts.Verbose {
		_, _ = fmt.Fprintf(e.opts.Output, "%s: set %s to %s\n", Escape(t.rel), attrName, value)
	}
	if !e.opts.DryRun {
		if err := fn(); err != nil {
			e.warn(res, t.rel, attrName, err)
			return false
		}
	}
	res.Changes++
	return true
}

func (e *Engine) warn(res *ApplyResult, path, attrName string, err error) {
	res.Warnings++
	e.logger.Warn("failed to apply attribute", "path", path, "attr", attrName, "error", err)
}

func (e *Engine) skip(res *ApplyResult, path, reason string) {
	res.Skipped++
	res.Warnings++
	e.logger.Warn("skipping record", "path", path, "reason", reason)
}
