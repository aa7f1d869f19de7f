//go:build unix

package attr

import (
	"io/fs"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

func lstat(path string) (*Info, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: err}
	}

	return &Info{
		Mode:  fileMode(uint32(st.Mode)),
		UID:   int(st.Uid),
		GID:   int(st.Gid),
		Atime: time.Unix(st.Atim.Unix()),
		Mtime: time.Unix(st.Mtim.Unix()),
	}, nil
}

func fileMode(raw uint32) fs.FileMode {
	m := ModeFromBits(raw & 0o7777)
	switch raw & unix.S_IFMT {
	case unix.S_IFDIR:
		m |= fs.ModeDir
	case unix.S_IFLNK:
		m |= fs.ModeSymlink
	case unix.S_IFIFO:
		m |= fs.ModeNamedPipe
	case unix.S_IFSOCK:
		m |= fs.ModeSocket
	case unix.S_IFCHR:
		m |= fs.ModeDevice | fs.ModeCharDevice
	case unix.S_IFBLK:
		m |= fs.ModeDevice
	}
	return m
}

// SyscallLinkSetter uses lchown(2) and utimensat(2) with AT_SYMLINK_NOFOLLOW.
type SyscallLinkSetter struct{}

// Lchown implements LinkSetter.
func (SyscallLinkSetter) Lchown(path string, uid, gid int) error {
	return os.Lchown(path, uid, gid)
}

// Lutimes implements LinkSetter.
func (SyscallLinkSetter) Lutimes(path string, atime, mtime time.Time) error {
	ts := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, path, ts, unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return &fs.PathError{Op: "lutimes", Path: path, Err: err}
	}
	return nil
}

// defaultLinkSetter prefers syscalls and falls back to chown -h and
// touch -h on filesystems that reject them for links.
func defaultLinkSetter() LinkSetter {
	return FallbackLinkSetter{Primary: SyscallLinkSetter{}, Fallback: NewToolLinkSetter()}
}
