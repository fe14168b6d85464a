package diskcache

import (
	"errors"
	"io"
	"os"
)

// Editor is a scoped write handle for one entry, returned by [Cache.Edit].
// Every Edit must be paired with exactly one of Commit or Abort on every
// control-flow exit; AbortUnlessCommitted is the idiomatic defer-time
// terminator.
type Editor struct {
	cache *Cache
	entry *entry
	done  bool
}

// File returns the dirty file path for value index i. Safe to pass to
// ordinary os file operations when the cache was opened against the real
// filesystem; callers exercising a fake/injected filesystem should use
// [Editor.Writer] or [Editor.SetBytes] instead so the write is visible to it.
func (ed *Editor) File(i int) string {
	return ed.entry.dirtyPath(ed.cache.dir, i)
}

// Writer opens the dirty file for index i for writing. A preserved dirty
// file from a prior, not-fully-cleaned-up edit (see Options.KeepDirtyFiles)
// is appended to rather than truncated when Options.AppendMode is set;
// otherwise any previous content is discarded.
func (ed *Editor) Writer(i int) (io.WriteCloser, error) {
	if ed.done {
		return nil, ErrNotAnEditor
	}

	if err := ed.cache.fsys.MkdirAll(ed.cache.dir, 0o755); err != nil {
		return nil, err
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if ed.cache.appendMode {
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}

	return ed.cache.fsys.OpenFile(ed.File(i), flag, 0o644)
}

// SetBytes writes data to the dirty file for index i in one call.
func (ed *Editor) SetBytes(i int, data []byte) error {
	w, err := ed.Writer(i)
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}

	return w.Close()
}

// SetString is SetBytes for a string value.
func (ed *Editor) SetString(i int, s string) error {
	return ed.SetBytes(i, []byte(s))
}

// String returns the last committed clean value for index i, or "" if the
// entry has never been published. There is no way to read back an
// uncommitted write from this or any other editor.
func (ed *Editor) String(i int) (string, error) {
	if ed.done {
		return "", ErrNotAnEditor
	}

	data, err := ed.cache.fsys.ReadFile(ed.entry.cleanPath(ed.cache.dir, i))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}

	return string(data), err
}

// Commit publishes every index written during this edit, retains the prior
// clean file for any index left untouched (only legal when re-editing an
// already-readable entry), and appends a flushed CLEAN record.
func (ed *Editor) Commit() error {
	return ed.cache.completeEdit(ed, true)
}

// Abort discards the edit: dirty files are deleted, and the entry reverts
// to its prior state (readable, with a re-affirming CLEAN record) or is
// dropped entirely (brand-new entry, with a REMOVE record).
func (ed *Editor) Abort() error {
	return ed.cache.completeEdit(ed, false)
}

// AbortUnlessCommitted aborts the edit if it hasn't already been committed
// or aborted. Intended for defer; errors are not surfaced because a
// caller's main control-flow error, if any, was already returned.
func (ed *Editor) AbortUnlessCommitted() {
	if !ed.done {
		_ = ed.Abort()
	}
}
