package diskcache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// journalRebuildRequired is the compaction trigger: a dual condition that
// prevents pathological rebuilds on tiny caches.
func (c *Cache) journalRebuildRequired() bool {
	return c.redundantOpCount >= 2000 && c.redundantOpCount >= len(c.entries)
}

// bumpRedundant tracks redundant_op_count: the first journal record written
// for a key in the current journal generation is canonical, every record
// after that (until the next compaction) is redundant. It is called for
// CLEAN, REMOVE and READ records; the DIRTY record that opens an edit is
// not counted on its own, the CLEAN or REMOVE that closes the edit stands
// for the pair.
func (c *Cache) bumpRedundant(e *entry) {
	if e.seenThisGen {
		c.redundantOpCount++
	} else {
		e.seenThisGen = true
	}
}

// maybeScheduleTrim submits a trim-and-maybe-compact pass to the executor
// if the byte budget is exceeded or the journal has grown redundant. It
// must be called with c.mu NOT held (idiomatically via a deferred call
// registered before the lock is acquired, so it runs after the deferred
// Unlock). The Inline executor runs the submitted task synchronously on
// the calling goroutine, which would deadlock against a non-reentrant
// mutex still held by the caller.
func (c *Cache) maybeScheduleTrim() {
	c.mu.Lock()
	trigger := !c.closed && (c.size > c.maxSize || c.journalRebuildRequired())
	c.mu.Unlock()

	if !trigger {
		return
	}

	c.exec.Submit(func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.closed {
			return
		}

		c.trimToSizeLocked()

		if c.journalRebuildRequired() {
			if err := c.compactLocked(); err != nil {
				c.log.Logf("diskcache: compaction: %v", err)
			}
		}
	})
}

// trimToSizeLocked evicts least-recently-used readable entries (skipping
// any currently being edited) until size fits within max_size or no more
// idle entries remain.
func (c *Cache) trimToSizeLocked() {
	e := c.lru.head
	for c.size > c.maxSize && e != nil {
		next := e.next

		if e.editor == nil {
			if err := c.evictLocked(e); err != nil {
				c.log.Logf("diskcache: trim: %v", err)
				return
			}
		}

		e = next
	}
}

// evictLocked removes a readable entry's clean files, unlinks it from the
// index, and appends a flushed REMOVE record.
func (c *Cache) evictLocked(e *entry) error {
	for i := 0; i < c.valueCount; i++ {
		_ = c.fsys.Remove(e.cleanPath(c.dir, i))
	}

	c.lru.remove(e)
	delete(c.entries, e.key)
	c.size -= e.totalLength()

	if err := c.journal.writeRemove(e.key); err != nil {
		return err
	}

	c.bumpRedundant(e)

	return nil
}

// compactLocked rewrites the journal to contain exactly one record per
// in-memory entry (CLEAN for readable/idle entries, DIRTY for entries with
// an edit currently in flight), then atomically promotes it via a
// temp-file-plus-two-renames sequence.
func (c *Cache) compactLocked() error {
	tmpPath := filepath.Join(c.dir, journalTmpFileName)
	journalPath := filepath.Join(c.dir, journalFileName)
	bkpPath := filepath.Join(c.dir, journalBkpFileName)

	header := journalHeader{appVersion: c.appVersion, valueCount: c.valueCount}
	if err := writeJournalHeader(c.fsys, tmpPath, header); err != nil {
		return err
	}

	f, err := c.fsys.OpenFile(tmpPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	written := make(map[string]bool, len(c.entries))

	writeEntry := func(e *entry) {
		if e.editor != nil {
			fmt.Fprintf(w, "%s %s\n", opDirty, e.key)
		} else {
			fmt.Fprintf(w, "%s %s", opClean, e.key)

			for _, l := range e.lengths {
				fmt.Fprintf(w, " %d", l)
			}

			fmt.Fprint(w, "\n")
		}

		written[e.key] = true
		e.seenThisGen = true
	}

	for e := c.lru.head; e != nil; e = e.next {
		writeEntry(e)
	}

	for key, e := range c.entries {
		if !written[key] {
			writeEntry(e)
		}
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}

	if err := c.journal.close(); err != nil {
		return err
	}

	if exists, err := c.fsys.Exists(journalPath); err != nil {
		return err
	} else if exists {
		if err := c.fsys.Rename(journalPath, bkpPath); err != nil {
			return err
		}
	}

	if err := c.fsys.Rename(tmpPath, journalPath); err != nil {
		return err
	}

	if exists, err := c.fsys.Exists(bkpPath); err == nil && exists {
		_ = c.fsys.Remove(bkpPath)
	}

	jw, err := openJournalWriterForAppend(c.fsys, c.dir)
	if err != nil {
		return err
	}

	c.journal = jw
	c.redundantOpCount = 0

	return nil
}
