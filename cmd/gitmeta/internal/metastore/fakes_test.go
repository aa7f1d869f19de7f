package metastore

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/attr"
	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/git"
)

// Epoch seconds of midnight UTC on 2020-01-01 .. 2020-01-04.
const (
	jan1 = int64(1577836800)
	jan2 = jan1 + 86400
	jan3 = jan2 + 86400
	jan4 = jan3 + 86400
)

type fakeVCS struct {
	files   []string
	dirs    []string
	changes *git.ChangeSet
	dirty   bool
	err     error
}

func (v *fakeVCS) TrackedFiles(context.Context) ([]string, error) {
	return append([]string(nil), v.files...), v.err
}

func (v *fakeVCS) TrackedDirs(context.Context) ([]string, error) {
	return append([]string(nil), v.dirs...), v.err
}

func (v *fakeVCS) StagedChanges(context.Context) (*git.ChangeSet, error) {
	if v.changes == nil {
		return git.NewChangeSet(), v.err
	}
	return v.changes, v.err
}

func (v *fakeVCS) IsDirty(context.Context) (bool, error) {
	return v.dirty, v.err
}

// fakeSystem is an in-memory attr.System rooted at root.
type fakeSystem struct {
	root    string
	entries map[string]*fakeEntry
	users   map[string]int
	groups  map[string]int
	calls   []string
	fail    map[string]error // by operation name: lstat, lchown, chmod, lutimes, getacl, setacl
}

type fakeEntry struct {
	info attr.Info
	acl  string
}

func newFakeSystem(root string) *fakeSystem {
	return &fakeSystem{
		root:    root,
		entries: make(map[string]*fakeEntry),
		users:   map[string]int{"root": 0, "alice": 1000},
		groups:  map[string]int{"root": 0, "staff": 50},
		fail:    make(map[string]error),
	}
}

// add creates rel with the given type bits and permissions, owned by
// alice:staff, with atime and mtime both set to mtime.
func (s *fakeSystem) add(rel string, mode fs.FileMode, mtime int64) *fakeEntry {
	e := &fakeEntry{info: attr.Info{
		Mode:  mode,
		UID:   1000,
		GID:   50,
		Atime: time.Unix(mtime, 0),
		Mtime: time.Unix(mtime, 0),
	}}
	s.entries[s.abs(rel)] = e
	return e
}

func (s *fakeSystem) get(rel string) *fakeEntry {
	return s.entries[s.abs(rel)]
}

func (s *fakeSystem) remove(rel string) {
	delete(s.entries, s.abs(rel))
}

func (s *fakeSystem) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// call records "op rel detail" and returns the injected failure, if any.
func (s *fakeSystem) call(op, path, detail string) error {
	rel, _ := filepath.Rel(s.root, path)
	s.calls = append(s.calls, op+" "+filepath.ToSlash(rel)+" "+detail)
	if err := s.fail[op]; err != nil {
		return err
	}
	if _, ok := s.entries[path]; !ok {
		return fs.ErrNotExist
	}
	return nil
}

func (s *fakeSystem) Lstat(path string) (*attr.Info, error) {
	if err := s.fail["lstat"]; err != nil {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}
	e, ok := s.entries[path]
	if !ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	info := e.info
	return &info, nil
}

func (s *fakeSystem) Lchown(path string, uid, gid int) error {
	if err := s.call("lchown", path, fmt.Sprintf("%d:%d", uid, gid)); err != nil {
		return err
	}
	e := s.entries[path]
	if uid != -1 {
		e.info.UID = uid
	}
	if gid != -1 {
		e.info.GID = gid
	}
	return nil
}

func (s *fakeSystem) Chmod(path string, mode fs.FileMode) error {
	if err := s.call("chmod", path, fmt.Sprintf("%04o", attr.PermBits(mode))); err != nil {
		return err
	}
	e := s.entries[path]
	e.info.Mode = e.info.Mode.Type() | mode
	return nil
}

func (s *fakeSystem) Lutimes(path string, atime, mtime time.Time) error {
	if err := s.call("lutimes", path, FormatTime(atime.Unix())+" "+FormatTime(mtime.Unix())); err != nil {
		return err
	}
	e := s.entries[path]
	e.info.Atime = atime
	e.info.Mtime = mtime
	return nil
}

func (s *fakeSystem) GetACL(path string) (string, error) {
	if err := s.fail["getacl"]; err != nil {
		return "", err
	}
	e, ok := s.entries[path]
	if !ok {
		return "", fs.ErrNotExist
	}
	return e.acl, nil
}

func (s *fakeSystem) SetACL(path, acl string) error {
	if err := s.call("setacl", path, acl); err != nil {
		return err
	}
	s.entries[path].acl = acl
	return nil
}

func (s *fakeSystem) UserName(uid int) (string, error) {
	for name, id := range s.users {
		if id == uid {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown uid %d", uid)
}

func (s *fakeSystem) GroupName(gid int) (string, error) {
	for name, id := range s.groups {
		if id == gid {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown gid %d", gid)
}

func (s *fakeSystem) LookupUser(name string) (int, error) {
	if id, ok := s.users[name]; ok {
		return id, nil
	}
	return -1, fmt.Errorf("unknown user %q", name)
}

func (s *fakeSystem) LookupGroup(name string) (int, error) {
	if id, ok := s.groups[name]; ok {
		return id, nil
	}
	return -1, fmt.Errorf("unknown group %q", name)
}
