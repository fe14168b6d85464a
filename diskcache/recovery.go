package diskcache

import (
	"path/filepath"
	"sort"

	"github.com/calvinalkan/cachekit/internal/cachefs"
)

// reconcileBackup implements the startup half of the compaction protocol:
// if journal.bkp survives a crash mid-compaction, either promote it (no
// journal present) or discard it (journal already promoted). Any stray
// journal.tmp from a crash even earlier in the sequence is removed.
func reconcileBackup(fsys cachefs.FS, dir string) error {
	journalPath := filepath.Join(dir, journalFileName)
	bkpPath := filepath.Join(dir, journalBkpFileName)
	tmpPath := filepath.Join(dir, journalTmpFileName)

	if ok, err := fsys.Exists(tmpPath); err != nil {
		return err
	} else if ok {
		if err := fsys.Remove(tmpPath); err != nil {
			return err
		}
	}

	bkpExists, err := fsys.Exists(bkpPath)
	if err != nil {
		return err
	}

	if !bkpExists {
		return nil
	}

	journalExists, err := fsys.Exists(journalPath)
	if err != nil {
		return err
	}

	if journalExists {
		return fsys.Remove(bkpPath)
	}

	return fsys.Rename(bkpPath, journalPath)
}

// wipeDirectory discards every file in dir, for the corrupt-journal
// recovery path: a damaged journal means starting the directory over.
func wipeDirectory(fsys cachefs.FS, dir string) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, de := range entries {
		if err := fsys.RemoveAll(filepath.Join(dir, de.Name())); err != nil {
			return err
		}
	}

	return nil
}

// loadedState is what Open needs to initialize a Cache from disk.
type loadedState struct {
	header           journalHeader
	entries          map[string]*entry
	lru              lruList
	size             int64
	redundantOpCount int
	needsCompaction  bool // final line was truncated; compact immediately
}

// loadOrInit reconciles any in-progress compaction, then either replays an
// existing journal or creates a brand-new one. On a corrupt journal, it
// wipes the directory and starts fresh rather than failing Open.
func loadOrInit(fsys cachefs.FS, dir string, opts Options, log Logger) (loadedState, error) {
	if err := reconcileBackup(fsys, dir); err != nil {
		return loadedState{}, err
	}

	journalPath := filepath.Join(dir, journalFileName)

	exists, err := fsys.Exists(journalPath)
	if err != nil {
		return loadedState{}, err
	}

	header := journalHeader{appVersion: opts.AppVersion, valueCount: opts.ValueCount}

	if !exists {
		if err := writeJournalHeader(fsys, journalPath, header); err != nil {
			return loadedState{}, err
		}

		return loadedState{header: header, entries: map[string]*entry{}}, nil
	}

	pj, err := readJournal(fsys, journalPath)
	if err != nil {
		log.Logf("diskcache: %v, rebuilding %s from scratch", err, dir)

		if wipeErr := wipeDirectory(fsys, dir); wipeErr != nil {
			return loadedState{}, wipeErr
		}

		if err := writeJournalHeader(fsys, journalPath, header); err != nil {
			return loadedState{}, err
		}

		return loadedState{header: header, entries: map[string]*entry{}}, nil
	}

	if pj.header.appVersion != opts.AppVersion || pj.header.valueCount != opts.ValueCount {
		log.Logf("diskcache: journal header mismatch (app_version/value_count), rebuilding %s from scratch", dir)

		if wipeErr := wipeDirectory(fsys, dir); wipeErr != nil {
			return loadedState{}, wipeErr
		}

		if err := writeJournalHeader(fsys, journalPath, header); err != nil {
			return loadedState{}, err
		}

		return loadedState{header: header, entries: map[string]*entry{}}, nil
	}

	state, err := replay(fsys, dir, pj, opts)
	if err != nil {
		return loadedState{}, err
	}

	state.header = pj.header
	state.needsCompaction = pj.truncated

	return state, nil
}

// replay rebuilds the in-memory index from a parsed journal, dropping any
// entry left mid-edit and accumulating byte totals and the redundant-record
// count for entries that survive.
func replay(fsys cachefs.FS, dir string, pj parsedJournal, opts Options) (loadedState, error) {
	entries := map[string]*entry{}
	pending := map[string]bool{} // key -> has an unterminated DIRTY
	lastSeen := map[string]int{}
	redundantOpCount := 0

	bump := func(e *entry) {
		if e.seenThisGen {
			redundantOpCount++
		} else {
			e.seenThisGen = true
		}
	}

	getOrCreate := func(key string) *entry {
		e, ok := entries[key]
		if !ok {
			e = newEntry(key, pj.header.valueCount)
			entries[key] = e
		}

		return e
	}

	for i, rec := range pj.records {
		switch rec.op {
		case opDirty:
			e := getOrCreate(rec.key)
			bump(e)
			pending[rec.key] = true
			lastSeen[rec.key] = i

		case opClean:
			e := getOrCreate(rec.key)
			bump(e)
			e.lengths = append([]int64(nil), rec.lens...)
			e.readable = true
			pending[rec.key] = false
			lastSeen[rec.key] = i

		case opRemove:
			if e, ok := entries[rec.key]; ok {
				bump(e)
			}

			delete(entries, rec.key)
			delete(pending, rec.key)
			delete(lastSeen, rec.key)

		case opRead:
			if e, ok := entries[rec.key]; ok {
				bump(e)
				lastSeen[rec.key] = i
			}
		}
	}

	for key, isPending := range pending {
		if !isPending {
			continue
		}

		e := entries[key]
		delete(entries, key)
		delete(lastSeen, key)

		if !opts.KeepDirtyFiles {
			for i := 0; i < pj.header.valueCount; i++ {
				_ = fsys.Remove(e.cleanPath(dir, i))
				_ = fsys.Remove(e.dirtyPath(dir, i))
			}
		}
	}

	keys := make([]string, 0, len(lastSeen))
	for key := range lastSeen {
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool { return lastSeen[keys[i]] < lastSeen[keys[j]] })

	var lru lruList

	var size int64

	for _, key := range keys {
		e := entries[key]
		if !e.readable {
			continue
		}

		lru.pushBack(e)
		size += e.totalLength()
	}

	return loadedState{entries: entries, lru: lru, size: size, redundantOpCount: redundantOpCount}, nil
}
