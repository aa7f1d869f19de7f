package metastore

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Result summarizes a Store or Update run.
type Result struct {
	Fields  Fields
	Records int
	Changed bool
	DryRun  bool
}

// Store measures every tracked path and writes a new store.
func (e *Engine) Store(ctx context.Context) (*Result, error) {
	fields := e.resolveFields(ReadHeader(e.opts.StoreFile))

	paths, err := e.vcs.TrackedFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked files: %w", err)
	}
	if fields.Has(FieldDirectory) {
		dirs, err := e.vcs.TrackedDirs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tracked directories: %w", err)
		}
		paths = append(paths, dirs...)
	}

	records := make([]*Record, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if r := e.measure(p, fields); r != nil {
			records = append(records, r)
		}
	}
	slices.SortFunc(records, func(a, b *Record) int {
		return strings.Compare(a.Key(), b.Key())
	})
	records = slices.CompactFunc(records, func(a, b *Record) bool {
		return a.Key() == b.Key()
	})

	w, err := newStoreWriter(e.opts.StoreFile, fields, e.opts.DryRun, e.opts.Output)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.writeRecord(r.Key(), r.Encode(fields)); err != nil {
			w.abort()
			return nil, err
		}
	}
	changed, err := w.commit()
	if err != nil {
		return nil, err
	}

	e.logger.Info("store written", "path", e.opts.StoreFile, "records", len(records), "fields", fields.String(), "changed", changed, "dry_run", e.opts.DryRun)
	return &Result{Fields: fields, Records: len(records), Changed: changed, DryRun: e.opts.DryRun}, nil
}
