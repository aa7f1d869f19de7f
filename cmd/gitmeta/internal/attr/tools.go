package attr

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrToolNotFound is returned when an external attribute tool is missing.
var ErrToolNotFound = errors.New("attribute tool not found")

// touchLayout is the [[CC]YY]MMDDhhmm[.SS] form accepted by both GNU and BSD touch.
const touchLayout = "200601021504.05"

// ToolLinkSetter changes link attributes by running chown -h and touch -h.
type ToolLinkSetter struct {
	chown string
	touch string
}

// NewToolLinkSetter creates a ToolLinkSetter using chown and touch from PATH.
func NewToolLinkSetter() *ToolLinkSetter {
	return &ToolLinkSetter{chown: "chown", touch: "touch"}
}

// Lchown implements LinkSetter.
func (t *ToolLinkSetter) Lchown(path string, uid, gid int) error {
	var owner string
	switch {
	case uid >= 0 && gid >= 0:
		owner = fmt.Sprintf("%d:%d", uid, gid)
	case uid >= 0:
		owner = strconv.Itoa(uid)
	case gid >= 0:
		owner = ":" + strconv.Itoa(gid)
	default:
		return nil
	}
	return runTool(nil, t.chown, "-h", owner, "--", path)
}

// Lutimes implements LinkSetter. Sub-second precision is dropped.
func (t *ToolLinkSetter) Lutimes(path string, atime, mtime time.Time) error {
	env := append(os.Environ(), "TZ=UTC0")
	if err := runTool(env, t.touch, "-h", "-a", "-t", atime.UTC().Format(touchLayout), "--", path); err != nil {
		return err
	}
	return runTool(env, t.touch, "-h", "-m", "-t", mtime.UTC().Format(touchLayout), "--", path)
}

// ACLTool reads and writes POSIX ACLs with getfacl and setfacl.
type ACLTool struct{}

// Get returns the extended entries of path's ACL, comma-joined.
func (ACLTool) Get(path string) (string, error) {
	out, err := toolOutput("getfacl", "-c", "-p", "-E", "--", path)
	if err != nil {
		return "", err
	}
	return ParseACL(out), nil
}

// Set replaces the extended entries of path's ACL with acl.
// An empty acl removes all extended entries.
func (ACLTool) Set(path, acl string) error {
	if err := runTool(nil, "setfacl", "-b", "--", path); err != nil {
		return err
	}
	if acl == "" {
		return nil
	}
	return runTool(nil, "setfacl", "-m", acl, "--", path)
}

// ParseACL extracts extended entries from getfacl output. The base
// user::, group:: and other:: entries are dropped; named entries, the mask
// and default entries are kept in output order.
func ParseACL(out []byte) string {
	var entries []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		// Strip trailing comments such as "#effective:r--".
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if isBaseEntry(line) {
			continue
		}
		entries = append(entries, line)
	}
	return strings.Join(entries, ",")
}

func isBaseEntry(entry string) bool {
	for _, prefix := range []string{"user::", "group::", "other:"} {
		if strings.HasPrefix(entry, prefix) {
			return true
		}
	}
	return false
}

func runTool(env []string, name string, args ...string) error {
	path, err := exec.LookPath(name)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	cmd := exec.Command(path, args...)
	cmd.Env = env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return toolError(name, err, stderr.Bytes())
	}
	return nil
}

func toolOutput(name string, args ...string) ([]byte, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	cmd := exec.Command(path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, toolError(name, err, stderr.Bytes())
	}
	return out, nil
}

func toolError(name string, err error, stderr []byte) error {
	msg := strings.TrimSpace(string(stderr))
	if msg == "" {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return fmt.Errorf("%s failed: %w: %s", name, err, msg)
}
