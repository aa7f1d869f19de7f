package git

import (
	"fmt"
	"path"
	"slices"
)

// ChangeSet is the path-level content of the staging area relative to HEAD.
// Renames are reported as a deletion plus an addition.
type ChangeSet struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Deleted  []string `json:"deleted"`
}

// NewChangeSet creates an empty ChangeSet.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{
		Added:    []string{},
		Modified: []string{},
		Deleted:  []string{},
	}
}

// IsEmpty returns true if there are no changes.
func (cs *ChangeSet) IsEmpty() bool {
	if cs == nil {
		return true
	}
	return len(cs.Added) == 0 && len(cs.Modified) == 0 && len(cs.Deleted) == 0
}

// TotalChanges returns the total number of changed paths.
func (cs *ChangeSet) TotalChanges() int {
	if cs == nil {
		return 0
	}
	return len(cs.Added) + len(cs.Modified) + len(cs.Deleted)
}

// sort sorts all slices for deterministic output.
func (cs *ChangeSet) sort() {
	if cs == nil {
		return
	}
	slices.Sort(cs.Added)
	slices.Sort(cs.Modified)
	slices.Sort(cs.Deleted)
}

// parseNameStatus parses `git diff --name-status --no-renames -z` output,
// which alternates status and path fields separated by NUL.
func parseNameStatus(out []byte) (*ChangeSet, error) {
	cs := NewChangeSet()
	fields := splitNUL(out)
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("unexpected name-status output: %d fields", len(fields))
	}

	for i := 0; i < len(fields); i += 2 {
		status, p := fields[i], fields[i+1]
		if status == "" {
			return nil, fmt.Errorf("empty status for %q", p)
		}
		switch status[0] {
		case 'A':
			cs.Added = append(cs.Added, p)
		case 'D':
			cs.Deleted = append(cs.Deleted, p)
		case 'M', 'T', 'U':
			cs.Modified = append(cs.Modified, p)
		default:
			return nil, fmt.Errorf("unsupported status %q for %q", status, p)
		}
	}

	cs.sort()
	return cs, nil
}

// Ancestors returns the parent directories of a slash-separated relative
// path, nearest first. The repository root is not included.
func Ancestors(p string) []string {
	var dirs []string
	for dir := path.Dir(p); dir != "." && dir != "/"; dir = path.Dir(dir) {
		dirs = append(dirs, dir)
	}
	return dirs
}

func splitNUL(out []byte) []string {
	var fields []string
	start := 0
	for i, b := range out {
		if b == 0 {
			fields = append(fields, string(out[start:i]))
			start = i + 1
		}
	}
	if start < len(out) {
		fields = append(fields, string(out[start:]))
	}
	return fields
}
