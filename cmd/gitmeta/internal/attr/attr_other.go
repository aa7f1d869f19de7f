//go:build !unix

package attr

import (
	"os"
)

// Ownership and access time are not available here; they are reported as
// zero and as the modification time.
func lstat(path string) (*Info, error) {
	fi, err := os.Lstat(path)
	if err != nil {
		return nil, err
	}
	return &Info{
		Mode:  fi.Mode(),
		Atime: fi.ModTime(),
		Mtime: fi.ModTime(),
	}, nil
}

func defaultLinkSetter() LinkSetter {
	return NewToolLinkSetter()
}
