package diskcache

import "errors"

// Error classification. Callers should classify with errors.Is.
var (
	// ErrClosed is returned by any operation after Close.
	ErrClosed = errors.New("diskcache: cache is closed")

	// ErrCorruptJournal indicates the journal failed to parse on Open. Open
	// recovers from this internally (rebuilds the directory from scratch)
	// and does not return it to the caller; it is exported so tests and
	// the injected Logger can classify the recovery reason.
	ErrCorruptJournal = errors.New("diskcache: corrupt journal")

	// ErrInvalidKey is returned when a key doesn't match ValidKey's pattern.
	ErrInvalidKey = errors.New("diskcache: invalid key")

	// ErrIllegalState is returned by Editor.Commit when a newly created
	// entry is missing a value for one of its indices, and by Cache.Remove
	// for a key that is being edited. A second Commit or Abort returns
	// ErrNotAnEditor.
	ErrIllegalState = errors.New("diskcache: illegal state")

	// ErrNotAnEditor is returned by Editor methods called after the editor
	// has already been committed or aborted.
	ErrNotAnEditor = errors.New("diskcache: editor no longer active")

	// ErrInvalidOptions is returned by Open for malformed Options.
	ErrInvalidOptions = errors.New("diskcache: invalid options")
)
