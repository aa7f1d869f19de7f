package metastore

import (
	"cmp"
	"slices"
	"strings"

	"github.com/albertocavalcante/gitmeta/cmd/gitmeta/internal/git"
)

// mergeKind tags an entry of the update merge stream. The order is the
// tie-break for equal keys: events sort before prior store lines.
type mergeKind int

const (
	// mergeKeep retains a directory despite an inferred deletion.
	mergeKeep mergeKind = iota
	// mergeModify re-measures the path.
	mergeModify
	// mergeDelete omits the path.
	mergeDelete
	// mergeLine is a record line of the prior store.
	mergeLine
)

func (k mergeKind) String() string {
	switch k {
	case mergeKeep:
		return "keep"
	case mergeModify:
		return "modify"
	case mergeDelete:
		return "delete"
	case mergeLine:
		return "line"
	}
	return "unknown"
}

// mergeEntry is one element of the update merge stream.
type mergeEntry struct {
	key  string // escaped path
	path string // unescaped path, events only
	kind mergeKind
	text string // record line, mergeLine only
}

func compareEntries(a, b mergeEntry) int {
	if c := strings.Compare(a.key, b.key); c != 0 {
		return c
	}
	return cmp.Compare(a.kind, b.kind)
}

func event(p string, kind mergeKind) mergeEntry {
	return mergeEntry{key: Escape(p), path: p, kind: kind}
}

// changeEvents turns staged changes into merge events. With withDirs the
// ancestors of changed paths are included: ancestors of an addition are
// modified; the parent of a deletion is modified while it is still tracked
// and deeper ancestors are deleted speculatively. Every tracked directory
// then gets a keep event that cancels a speculative deletion.
func changeEvents(cs *git.ChangeSet, trackedDirs []string, withDirs bool) []mergeEntry {
	var events []mergeEntry

	tracked := make(map[string]bool, len(trackedDirs))
	for _, d := range trackedDirs {
		tracked[d] = true
	}

	for _, group := range [][]string{cs.Added, cs.Modified} {
		for _, p := range group {
			events = append(events, event(p, mergeModify))
			if !withDirs {
				continue
			}
			for _, dir := range git.Ancestors(p) {
				events = append(events, event(dir, mergeModify))
			}
		}
	}

	for _, p := range cs.Deleted {
		events = append(events, event(p, mergeDelete))
		if !withDirs {
			continue
		}
		for i, dir := range git.Ancestors(p) {
			if i == 0 && tracked[dir] {
				events = append(events, event(dir, mergeModify))
				continue
			}
			events = append(events, event(dir, mergeDelete))
		}
	}

	if withDirs {
		for _, d := range trackedDirs {
			events = append(events, event(d, mergeKeep))
		}
	}
	return events
}

// outcome is what a merge group resolves to.
type outcome int

const (
	outcomeDrop outcome = iota
	outcomeMeasure
	outcomeCopy
)

// resolve decides the fate of one path from all of its merge entries. A
// keep cancels any deletion; a cancelled deletion or a keep without a prior
// record re-measures the path, as does any modification. Otherwise the prior
// line is copied.
func resolve(group []mergeEntry) (outcome, string) {
	var keep, modify, del bool
	prior := ""
	for _, m := range group {
		switch m.kind {
		case mergeKeep:
			keep = true
		case mergeModify:
			modify = true
		case mergeDelete:
			del = true
		case mergeLine:
			if prior == "" {
				prior = m.text
			}
		}
	}

	switch {
	case modify:
		return outcomeMeasure, ""
	case del && !keep:
		return outcomeDrop, ""
	case keep && (del || prior == ""):
		return outcomeMeasure, ""
	case prior != "":
		return outcomeCopy, prior
	}
	return outcomeDrop, ""
}

// sortEntries orders the stream by key and kind, keeping input order for
// equal entries.
func sortEntries(entries []mergeEntry) {
	slices.SortStableFunc(entries, compareEntries)
}

// groups calls fn for each run of entries sharing a key, in order.
func groups(entries []mergeEntry, fn func(key string, group []mergeEntry) error) error {
	for start := 0; start < len(entries); {
		end := start + 1
		for end < len(entries) && entries[end].key == entries[start].key {
			end++
		}
		if err := fn(entries[start].key, entries[start:end]); err != nil {
			return err
		}
		start = end
	}
	return nil
}
