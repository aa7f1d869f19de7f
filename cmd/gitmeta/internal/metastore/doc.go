// Package metastore keeps file metadata that git does not track (timestamps,
// permissions, ownership and ACLs) in a side-channel store file inside the
// working tree, and restores it after checkouts.
//
// # Store file format
//
// The store is a text file. The first line identifies the producer and the
// schema version, the second declares the fields, and every following line is
// one record:
//
//	# generated by<TAB>gitmeta<TAB>2.0.0
//	<file><TAB><type><TAB><mtime>
//	README.md<TAB>f<TAB>2020-01-01T00:00:00Z
//
// Records are sorted by escaped path using byte-wise comparison and contain
// no duplicate paths. Paths are escaped so that any byte sequence fits on
// one line (see Escape).
//
// # Actions
//
// An Engine runs one of three actions. Store measures every tracked path
// and writes a fresh store. Update merges the staged changes with the
// previous store and re-measures only what changed. Apply restores the
// recorded attributes onto the working tree, isolating failures per file and
// per attribute.
//
// # Concurrency
//
// Each action is a single sequential pass. The store file is replaced
// atomically, so readers never see a partial store, but nothing locks it:
// running two actions against the same store at the same time is undefined
// and must be prevented by the caller.
package metastore
