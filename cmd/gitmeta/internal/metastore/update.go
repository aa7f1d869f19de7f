package metastore

import (
	"context"
	"fmt"
	"slices"

	"github.com/albertocavalcante/gitmeta/internal/log"
)

// Update rebuilds the store from the prior store and the staged changes.
// Changed paths are re-measured; every other record is copied unchanged.
// The fields are those of the prior store.
func (e *Engine) Update(ctx context.Context) (*Result, error) {
	if e.opts.Fields != nil {
		return nil, ErrFieldsOverride
	}

	h := ReadHeader(e.opts.StoreFile)
	if err := h.Check(UpdateVersions); err != nil {
		return nil, err
	}
	fields := h.Fields

	lines, err := readBody(e.opts.StoreFile)
	if err != nil {
		return nil, err
	}
	changes, err := e.vcs.StagedChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged changes: %w", err)
	}
	withDirs := fields.Has(FieldDirectory)
	var dirs []string
	if withDirs {
		if dirs, err = e.vcs.TrackedDirs(ctx); err != nil {
			return nil, fmt.Errorf("failed to list tracked directories: %w", err)
		}
	}

	entries := changeEvents(changes, dirs, withDirs)
	fileIdx := slices.Index(fields.Columns(), FieldFile)
	for _, l := range lines {
		key, err := keyColumn(l.text, fileIdx)
		if err != nil {
			return nil, &ParseError{Line: l.num, Err: err}
		}
		entries = append(entries, mergeEntry{key: key, kind: mergeLine, text: l.text})
	}
	sortEntries(entries)
	e.logger.Debug("merging staged changes", "changes", changes.TotalChanges(), "prior_records", len(lines), "entries", len(entries))

	w, err := newStoreWriter(e.opts.StoreFile, fields, e.opts.DryRun, e.opts.Output)
	if err != nil {
		return nil, err
	}
	selfKey := Escape(e.self)
	count := 0
	err = groups(entries, func(key string, group []mergeEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.self != "" && key == selfKey {
			return nil
		}

		out, line := resolve(group)
		switch out {
		case outcomeDrop:
			e.logger.Log(ctx, log.LevelTrace, "dropping path", "path", key, "events", len(group))
			return nil
		case outcomeMeasure:
			e.logger.Log(ctx, log.LevelTrace, "measuring path", "path", key, "events", len(group))
			r := e.measure(Unescape(key), fields)
			if r == nil {
				return nil
			}
			line = r.Encode(fields)
		}
		count++
		return w.writeRecord(key, line)
	})
	if err != nil {
		w.abort()
		return nil, err
	}
	changed, err := w.commit()
	if err != nil {
		return nil, err
	}

	e.logger.Info("store updated", "path", e.opts.StoreFile, "records", count, "changes", changes.TotalChanges(), "changed", changed, "dry_run", e.opts.DryRun)
	return &Result{Fields: fields, Records: count, Changed: changed, DryRun: e.opts.DryRun}, nil
}
