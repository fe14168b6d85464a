package diskcache

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/calvinalkan/cachekit/internal/cachefs"
	"github.com/calvinalkan/cachekit/internal/execpool"
)

// Options configures a Cache.
type Options struct {
	// Dir is the cache directory. Created if it does not exist.
	Dir string

	// AppVersion is stamped into the journal header. Opening a directory
	// whose journal carries a different app_version wipes and restarts it,
	// the same as any other header mismatch.
	AppVersion int

	// ValueCount is the fixed number of value slots per entry.
	ValueCount int

	// MaxSize is the byte budget across all entries' clean files.
	MaxSize int64

	// KeepDirtyFiles, if true, preserves dangling dirty files discovered on
	// open instead of deleting them. The zero value deletes them.
	KeepDirtyFiles bool

	// AppendMode, if true, a new editor on a key with a preserved dirty
	// file (see KeepDirtyFiles) appends to it instead of truncating.
	AppendMode bool

	// FS is the filesystem the cache reads and writes through. Defaults to
	// cachefs.NewReal().
	FS cachefs.FS

	// Executor runs background trim/compaction passes. Defaults to a
	// dedicated single-worker executor.
	Executor execpool.Executor

	// Logger receives non-fatal diagnostics (e.g. journal recovery).
	// Defaults to a no-op logger.
	Logger Logger
}

func (o Options) validate() error {
	if o.Dir == "" {
		return fmt.Errorf("%w: Dir must not be empty", ErrInvalidOptions)
	}

	if o.ValueCount <= 0 {
		return fmt.Errorf("%w: ValueCount must be > 0", ErrInvalidOptions)
	}

	if o.MaxSize <= 0 {
		return fmt.Errorf("%w: MaxSize must be > 0", ErrInvalidOptions)
	}

	return nil
}

// Cache is a journaled, size-bounded, on-disk LRU cache of multi-file
// entries. See the package doc comment for a usage example. All exported
// methods are safe for concurrent use.
type Cache struct {
	mu sync.Mutex

	dir        string
	appVersion int
	valueCount int
	maxSize    int64
	appendMode bool

	fsys  cachefs.FS
	exec  execpool.Executor
	log   Logger
	guard *cachefs.DirGuard

	journal *journalWriter

	entries          map[string]*entry
	lru              lruList
	size             int64
	redundantOpCount int
	nextSeq          int64

	closed bool
}

// Open opens or creates a cache at opts.Dir, recovering from any prior
// crash before returning.
func Open(opts Options) (*Cache, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	fsys := opts.FS
	if fsys == nil {
		fsys = cachefs.NewReal()
	}

	exec := opts.Executor
	if exec == nil {
		exec = execpool.NewWorker()
	}

	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}

	if err := fsys.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, err
	}

	// The advisory directory guard only makes sense against the real
	// filesystem: a caller supplying its own FS collaborator (tests, or any
	// other in-process emulation) is opting out of real flock semantics.
	var guard *cachefs.DirGuard

	if opts.FS == nil {
		g, err := cachefs.AcquireDirGuard(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("acquiring cache directory guard: %w", err)
		}

		guard = g
	}

	state, err := loadOrInit(fsys, opts.Dir, opts, log)
	if err != nil {
		guard.Release()
		return nil, err
	}

	jw, err := openJournalWriterForAppend(fsys, opts.Dir)
	if err != nil {
		guard.Release()
		return nil, err
	}

	var maxSeq int64

	for _, e := range state.entries {
		if e.readable {
			maxSeq++
			e.sequence = maxSeq
		}
	}

	c := &Cache{
		dir:              opts.Dir,
		appVersion:       opts.AppVersion,
		valueCount:       opts.ValueCount,
		maxSize:          opts.MaxSize,
		appendMode:       opts.AppendMode,
		fsys:             fsys,
		exec:             exec,
		log:              log,
		guard:            guard,
		journal:          jw,
		entries:          state.entries,
		lru:              state.lru,
		size:             state.size,
		redundantOpCount: state.redundantOpCount,
		nextSeq:          maxSeq,
	}

	if state.needsCompaction {
		if err := c.compactLocked(); err != nil {
			guard.Release()
			return nil, err
		}
	}

	c.maybeScheduleTrim()

	return c, nil
}

// Get returns a snapshot of key's published value, or (nil, nil) if the
// entry is absent or not yet readable.
func (c *Cache) Get(key string) (*Snapshot, error) {
	defer c.maybeScheduleTrim()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if err := validateKey(key); err != nil {
		return nil, err
	}

	e, ok := c.entries[key]
	if !ok || !e.readable {
		return nil, nil
	}

	c.lru.moveToBack(e)

	if err := c.journal.writeRead(key); err != nil {
		return nil, err
	}

	c.bumpRedundant(e)

	snap := &Snapshot{
		cache:    c,
		key:      key,
		sequence: e.sequence,
		paths:    make([]string, c.valueCount),
		lengths:  append([]int64(nil), e.lengths...),
	}

	for i := range snap.paths {
		snap.paths[i] = e.cleanPath(c.dir, i)
	}

	return snap, nil
}

// Edit opens a new editor for key, creating the entry if absent. Returns
// (nil, nil), not an error, if key is already being edited: at most one
// non-absent Edit result exists for a key at a time.
func (c *Cache) Edit(key string) (*Editor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.editLocked(key, -1, false)
}

// editIfSequenceMatches backs Snapshot.Edit's stale-check.
func (c *Cache) editIfSequenceMatches(key string, sequence int64) (*Editor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.editLocked(key, sequence, true)
}

// editLocked is the shared implementation of Edit and Snapshot.Edit.
// checkSeq, when true, requires the existing entry's sequence to equal
// wantSeq or returns (nil, nil) without creating anything.
func (c *Cache) editLocked(key string, wantSeq int64, checkSeq bool) (*Editor, error) {
	if c.closed {
		return nil, ErrClosed
	}

	if err := validateKey(key); err != nil {
		return nil, err
	}

	e, ok := c.entries[key]

	if checkSeq {
		if !ok || e.sequence != wantSeq {
			return nil, nil
		}
	}

	if ok && e.editor != nil {
		return nil, nil
	}

	if !ok {
		e = newEntry(key, c.valueCount)
		c.entries[key] = e
	}

	ed := &Editor{cache: c, entry: e}
	e.editor = ed

	if err := c.journal.writeDirty(key); err != nil {
		e.editor = nil

		if !e.readable {
			delete(c.entries, key)
		}

		return nil, err
	}

	return ed, nil
}

// completeEdit is the shared implementation of Editor.Commit and
// Editor.Abort, driving the entry state machine's commit/abort transitions.
func (c *Cache) completeEdit(ed *Editor, success bool) error {
	defer c.maybeScheduleTrim()

	c.mu.Lock()
	defer c.mu.Unlock()

	if ed.done {
		return ErrNotAnEditor
	}

	e := ed.entry
	wasReadable := e.readable

	if success {
		if !wasReadable {
			for i := 0; i < c.valueCount; i++ {
				exists, err := c.fsys.Exists(e.dirtyPath(c.dir, i))
				if err != nil {
					ed.done = true
					e.editor = nil

					return err
				}

				if !exists {
					ed.done = true
					e.editor = nil

					for j := 0; j < c.valueCount; j++ {
						_ = c.fsys.Remove(e.dirtyPath(c.dir, j))
					}

					c.abortNewEntryLocked(e)

					if err := c.journal.writeRemove(e.key); err != nil {
						return err
					}

					c.bumpRedundant(e)

					return fmt.Errorf("%w: index %d was never written", ErrIllegalState, i)
				}
			}
		}

		for i := 0; i < c.valueCount; i++ {
			dirty := e.dirtyPath(c.dir, i)

			exists, err := c.fsys.Exists(dirty)
			if err != nil {
				ed.done = true
				e.editor = nil

				return err
			}

			if !exists {
				continue
			}

			info, err := c.fsys.Stat(dirty)
			if err != nil {
				ed.done = true
				e.editor = nil

				return err
			}

			clean := e.cleanPath(c.dir, i)

			c.size -= e.lengths[i]

			if err := c.fsys.Rename(dirty, clean); err != nil {
				ed.done = true
				e.editor = nil

				return err
			}

			e.lengths[i] = info.Size()
			c.size += e.lengths[i]
		}

		e.readable = true
		e.editor = nil
		ed.done = true

		c.nextSeq++
		e.sequence = c.nextSeq

		if wasReadable {
			c.lru.moveToBack(e)
		} else {
			c.lru.pushBack(e)
		}

		if err := c.journal.writeClean(e.key, e.lengths); err != nil {
			return err
		}

		c.bumpRedundant(e)

		return nil
	}

	for i := 0; i < c.valueCount; i++ {
		_ = c.fsys.Remove(e.dirtyPath(c.dir, i))
	}

	e.editor = nil
	ed.done = true

	if wasReadable {
		if err := c.journal.writeClean(e.key, e.lengths); err != nil {
			return err
		}
	} else {
		c.abortNewEntryLocked(e)

		if err := c.journal.writeRemove(e.key); err != nil {
			return err
		}
	}

	c.bumpRedundant(e)

	return nil
}

// abortNewEntryLocked drops a never-published entry from the index. Its
// dirty files are assumed already removed by the caller.
func (c *Cache) abortNewEntryLocked(e *entry) {
	delete(c.entries, e.key)
}

// Remove deletes key's entry. Rejected (returns ErrIllegalState) if key is
// currently being edited.
func (c *Cache) Remove(key string) error {
	defer c.maybeScheduleTrim()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if err := validateKey(key); err != nil {
		return err
	}

	e, ok := c.entries[key]
	if !ok {
		return nil
	}

	if e.editor != nil {
		return fmt.Errorf("%w: %q is being edited", ErrIllegalState, key)
	}

	if !e.readable {
		delete(c.entries, key)
		return nil
	}

	return c.evictLocked(e)
}

// Size returns the current sum of all readable entries' clean file bytes.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.size
}

// MaxSize returns the configured byte budget.
func (c *Cache) MaxSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.maxSize
}

// SetMaxSize changes the byte budget and schedules a trim if now over it.
func (c *Cache) SetMaxSize(maxSize int64) {
	defer c.maybeScheduleTrim()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxSize = maxSize
}

// Flush synchronously trims to the byte budget and compacts the journal if
// due, instead of leaving it to the background executor. Useful in tests
// and before Close to obtain a deterministic on-disk state.
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	c.trimToSizeLocked()

	if c.journalRebuildRequired() {
		return c.compactLocked()
	}

	return nil
}

// Close aborts all in-flight editors, stops the background executor, and
// closes the journal. After Close, Get, Edit, Remove, Flush and Delete
// return ErrClosed, and a second Close returns nil. Size, MaxSize and
// SetMaxSize do not check the closed state and keep working on the
// in-memory values.
func (c *Cache) Close() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return nil
	}

	for _, e := range c.entries {
		if e.editor == nil {
			continue
		}

		for i := 0; i < c.valueCount; i++ {
			_ = c.fsys.Remove(e.dirtyPath(c.dir, i))
		}

		e.editor.done = true
		e.editor = nil
	}

	c.closed = true

	c.mu.Unlock()

	// exec.Close must run with c.mu NOT held, same reason as
	// maybeScheduleTrim: a queued trim/compaction task takes c.mu itself
	// to drain, and it checks c.closed (now true) as its first statement
	// and returns immediately, so it is safe to close the journal below
	// without racing a task still touching it.
	c.exec.Close()
	c.guard.Release()

	return c.journal.close()
}

// Delete discards the entire cache directory's contents and reinitializes
// an empty, still-open cache. Distinct from Remove, which deletes one key.
func (c *Cache) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if err := c.journal.close(); err != nil {
		return err
	}

	if err := wipeDirectory(c.fsys, c.dir); err != nil {
		return err
	}

	header := journalHeader{appVersion: c.appVersion, valueCount: c.valueCount}

	journalPath := filepath.Join(c.dir, journalFileName)
	if err := writeJournalHeader(c.fsys, journalPath, header); err != nil {
		return err
	}

	jw, err := openJournalWriterForAppend(c.fsys, c.dir)
	if err != nil {
		return err
	}

	c.journal = jw
	c.entries = map[string]*entry{}
	c.lru = lruList{}
	c.size = 0
	c.redundantOpCount = 0

	return nil
}
