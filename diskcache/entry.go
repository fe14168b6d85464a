package diskcache

import (
	"fmt"
	"path/filepath"
)

// entry is one per key. The LRU ordering is an intrusive doubly-linked
// list threaded through prev/next: touching an entry on read or commit is
// an O(1) unlink + relink to the list tail (most-recently-used end), and
// eviction walks from the head (least-recently-used end).
type entry struct {
	key      string
	lengths  []int64 // length of each clean file; 0 if never published
	readable bool
	editor   *Editor // non-nil iff an edit is in flight
	sequence int64   // bumped on every successful commit

	// seenThisGen is true once a counted journal record (see bumpRedundant)
	// has been written for this key since the last compaction. It drives
	// the redundant-record count:
	// the first record for a key in a generation is its canonical entry,
	// every record after that is redundant.
	seenThisGen bool

	prev, next *entry // intrusive LRU links; nil when not in the list
}

func newEntry(key string, valueCount int) *entry {
	return &entry{key: key, lengths: make([]int64, valueCount)}
}

func (e *entry) cleanPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d", e.key, i))
}

func (e *entry) dirtyPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("%s.%d.tmp", e.key, i))
}

// totalLength sums the lengths of all of this entry's clean files.
func (e *entry) totalLength() int64 {
	var total int64
	for _, l := range e.lengths {
		total += l
	}

	return total
}

// lruList is an intrusive doubly-linked list of *entry values, ordered from
// least-recently-used (front) to most-recently-used (back). Reading or
// committing moves an entry to the most-recent end; eviction removes from
// the least-recent end.
type lruList struct {
	head, tail *entry // head = LRU end, tail = MRU end
}

// pushBack appends e to the MRU end. e must not already be in a list.
func (l *lruList) pushBack(e *entry) {
	e.prev, e.next = l.tail, nil

	if l.tail != nil {
		l.tail.next = e
	} else {
		l.head = e
	}

	l.tail = e
}

// remove unlinks e from the list. No-op if e isn't linked (and isn't the
// sole element).
func (l *lruList) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else if l.head == e {
		l.head = e.next
	}

	if e.next != nil {
		e.next.prev = e.prev
	} else if l.tail == e {
		l.tail = e.prev
	}

	e.prev, e.next = nil, nil
}

// moveToBack moves e (already linked) to the MRU end.
func (l *lruList) moveToBack(e *entry) {
	if l.tail == e {
		return
	}

	l.remove(e)
	l.pushBack(e)
}
