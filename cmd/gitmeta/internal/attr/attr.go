// Package attr is the filesystem attribute layer of gitmeta.
//
// Every operation is a single call with its own success or failure; callers
// decide whether a failure is fatal. Link-aware operations (ownership and
// timestamps) act on a symbolic link itself and never follow it. They are
// delegated to a LinkSetter, which is either backed by direct syscalls or by
// external tools; callers never branch on which one is active.
package attr

import (
	"errors"
	"io/fs"
	"os"
	"os/user"
	"strconv"
	"sync"
	"time"
)

// ErrUnsupported is returned by operations the platform cannot perform.
var ErrUnsupported = errors.New("operation not supported on this platform")

// Info is the link-aware stat result of one path.
type Info struct {
	Mode  fs.FileMode // type bits plus permission, setuid, setgid and sticky bits
	UID   int
	GID   int
	Atime time.Time
	Mtime time.Time
}

// System is the capability interface the metadata store talks to.
type System interface {
	Lstat(path string) (*Info, error)
	Lchown(path string, uid, gid int) error
	Chmod(path string, mode fs.FileMode) error
	Lutimes(path string, atime, mtime time.Time) error
	GetACL(path string) (string, error)
	SetACL(path, acl string) error
	UserName(uid int) (string, error)
	GroupName(gid int) (string, error)
	LookupUser(name string) (int, error)
	LookupGroup(name string) (int, error)
}

// LinkSetter changes ownership and timestamps without dereferencing links.
// A uid or gid of -1 leaves that id unchanged.
type LinkSetter interface {
	Lchown(path string, uid, gid int) error
	Lutimes(path string, atime, mtime time.Time) error
}

// Host implements System against the local machine.
type Host struct {
	links LinkSetter
	acl   ACLTool

	mu     sync.Mutex
	users  map[int]string
	groups map[int]string
}

// FallbackLinkSetter uses Primary and retries with Fallback when Primary
// reports the operation as unsupported (ENOSYS, EOPNOTSUPP, or
// ErrUnsupported). Other errors are returned as they are.
type FallbackLinkSetter struct {
	Primary  LinkSetter
	Fallback LinkSetter
}

// Lchown implements LinkSetter.
func (f FallbackLinkSetter) Lchown(path string, uid, gid int) error {
	err := f.Primary.Lchown(path, uid, gid)
	if f.Fallback != nil && isUnsupported(err) {
		return f.Fallback.Lchown(path, uid, gid)
	}
	return err
}

// Lutimes implements LinkSetter.
func (f FallbackLinkSetter) Lutimes(path string, atime, mtime time.Time) error {
	err := f.Primary.Lutimes(path, atime, mtime)
	if f.Fallback != nil && isUnsupported(err) {
		return f.Fallback.Lutimes(path, atime, mtime)
	}
	return err
}

// isUnsupported matches errno values through syscall.Errno.Is.
func isUnsupported(err error) bool {
	return err != nil && (errors.Is(err, errors.ErrUnsupported) || errors.Is(err, ErrUnsupported))
}

// Option configures a Host.
type Option func(*Host)

// WithLinkSetter overrides the link-aware setter.
func WithLinkSetter(ls LinkSetter) Option {
	return func(h *Host) {
		h.links = ls
	}
}

// NewHost creates a Host. Without options it uses direct syscalls for
// link-aware changes where the platform has them and getfacl/setfacl for ACLs.
func NewHost(opts ...Option) *Host {
	h := &Host{
		links:  defaultLinkSetter(),
		acl:    ACLTool{},
		users:  make(map[int]string),
		groups: make(map[int]string),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Lstat stats path without following a final symlink.
func (h *Host) Lstat(path string) (*Info, error) {
	return lstat(path)
}

// Lchown changes the owner of path itself.
func (h *Host) Lchown(path string, uid, gid int) error {
	return h.links.Lchown(path, uid, gid)
}

// Chmod changes permission bits. It follows symlinks.
func (h *Host) Chmod(path string, mode fs.FileMode) error {
	return os.Chmod(path, mode)
}

// Lutimes sets access and modification time on path itself.
func (h *Host) Lutimes(path string, atime, mtime time.Time) error {
	return h.links.Lutimes(path, atime, mtime)
}

// GetACL returns the extended ACL entries of path, comma-joined.
func (h *Host) GetACL(path string) (string, error) {
	return h.acl.Get(path)
}

// SetACL replaces the extended ACL entries of path.
func (h *Host) SetACL(path, acl string) error {
	return h.acl.Set(path, acl)
}

// UserName resolves a uid to a user name. Results are cached.
func (h *Host) UserName(uid int) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if name, ok := h.users[uid]; ok {
		return name, nil
	}
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return "", err
	}
	h.users[uid] = u.Username
	return u.Username, nil
}

// GroupName resolves a gid to a group name. Results are cached.
func (h *Host) GroupName(gid int) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if name, ok := h.groups[gid]; ok {
		return name, nil
	}
	g, err := user.LookupGroupId(strconv.Itoa(gid))
	if err != nil {
		return "", err
	}
	h.groups[gid] = g.Name
	return g.Name, nil
}

// LookupUser resolves a user name to its uid.
func (h *Host) LookupUser(name string) (int, error) {
	u, err := user.Lookup(name)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(u.Uid)
}

// LookupGroup resolves a group name to its gid.
func (h *Host) LookupGroup(name string) (int, error) {
	g, err := user.LookupGroup(name)
	if err != nil {
		return -1, err
	}
	return strconv.Atoi(g.Gid)
}

// PermBits returns the 12 permission bits of m in their unix positions.
func PermBits(m fs.FileMode) uint32 {
	bits := uint32(m.Perm())
	if m&fs.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if m&fs.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if m&fs.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}

// ModeFromBits is the inverse of PermBits.
func ModeFromBits(bits uint32) fs.FileMode {
	m := fs.FileMode(bits & 0o777)
	if bits&0o4000 != 0 {
		m |= fs.ModeSetuid
	}
	if bits&0o2000 != 0 {
		m |= fs.ModeSetgid
	}
	if bits&0o1000 != 0 {
		m |= fs.ModeSticky
	}
	return m
}
