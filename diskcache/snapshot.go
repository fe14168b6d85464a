package diskcache

// Snapshot is an immutable capture of one entry's published files and
// lengths, returned by [Cache.Get]. The paths and lengths remain valid to
// read even if a concurrent trim later evicts the entry; the underlying
// files may vanish mid-read, which callers must tolerate since reads never
// mutate cache state.
type Snapshot struct {
	cache    *Cache
	key      string
	sequence int64
	paths    []string
	lengths  []int64
}

// ValueCount returns the number of value slots captured.
func (s *Snapshot) ValueCount() int {
	return len(s.paths)
}

// File returns the clean file path for value index i, as of the read.
func (s *Snapshot) File(i int) string {
	return s.paths[i]
}

// Length returns the byte length of value index i, as of the read.
func (s *Snapshot) Length(i int) int64 {
	return s.lengths[i]
}

// String reads value index i through the cache's configured filesystem.
func (s *Snapshot) String(i int) (string, error) {
	data, err := s.cache.fsys.ReadFile(s.paths[i])
	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Edit opens a new editor for this snapshot's key, but only if the entry's
// sequence number still matches the one captured at read time. Returns
// (nil, nil), not an error, if the snapshot is stale or the key is
// already being edited by someone else.
func (s *Snapshot) Edit() (*Editor, error) {
	return s.cache.editIfSequenceMatches(s.key, s.sequence)
}
