// Package diskcache provides a journaled, size-bounded, on-disk LRU cache.
//
// A cache entry is keyed by a string matching [ValidKey] and holds a fixed
// number of value slots, each backed by its own file. Writes go through a
// scoped [Editor]: callers write to per-index "dirty" files and then either
// Commit (atomically promoting the dirty files to "clean" files and
// recording the change in an append-only journal) or Abort. Reads return an
// immutable [Snapshot] of the clean files and their lengths as of the read.
//
// The cache enforces a byte budget across all entries' clean files,
// evicting least-recently-used entries in the background once the budget is
// exceeded. The journal is periodically compacted to bound its own size.
//
// # Basic usage
//
//	c, err := diskcache.Open(diskcache.Options{
//	    Dir:         "/tmp/mycache",
//	    AppVersion:  1,
//	    ValueCount:  1,
//	    MaxSize:     10 << 20,
//	})
//	if err != nil { ... }
//	defer c.Close()
//
//	ed, err := c.Edit("entry-key")
//	_ = os.WriteFile(ed.File(0), []byte("hello"), 0o644)
//	err = ed.Commit()
//
//	snap, err := c.Get("entry-key")
//	data, _ := os.ReadFile(snap.File(0))
//
// # Concurrency
//
// A Cache uses one process-wide lock per instance (spec §5): every public
// method acquires it, including the background trimmer. This is not a
// cross-process cache: only one OS process should open a given directory
// at a time.
package diskcache
