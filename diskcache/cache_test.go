package diskcache_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/cachekit/diskcache"
	"github.com/calvinalkan/cachekit/internal/cachefs"
	"github.com/calvinalkan/cachekit/internal/execpool"
)

func openTestCache(t *testing.T, opts diskcache.Options) *diskcache.Cache {
	t.Helper()

	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}

	if opts.AppVersion == 0 {
		opts.AppVersion = 1
	}

	if opts.ValueCount == 0 {
		opts.ValueCount = 1
	}

	if opts.MaxSize == 0 {
		opts.MaxSize = 5120
	}

	if opts.Executor == nil {
		opts.Executor = execpool.Inline{}
	}

	c, err := diskcache.Open(opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	t.Cleanup(func() { _ = c.Close() })

	return c
}

func mustEditAndCommit(t *testing.T, c *diskcache.Cache, key string, values ...string) {
	t.Helper()

	ed, err := c.Edit(key)
	if err != nil {
		t.Fatalf("Edit(%q): %v", key, err)
	}

	if ed == nil {
		t.Fatalf("Edit(%q): got nil editor", key)
	}

	for i, v := range values {
		if err := ed.SetString(i, v); err != nil {
			t.Fatalf("SetString(%d): %v", i, err)
		}
	}

	if err := ed.Commit(); err != nil {
		t.Fatalf("Commit(%q): %v", key, err)
	}
}

// Test_Write_Read_Round_Trip covers S1: committed values survive a close
// and reopen.
func Test_Write_Read_Round_Trip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	c := openTestCache(t, diskcache.Options{Dir: dir, MaxSize: 5120})

	for i := 1; i <= 10; i++ {
		key := fmt.Sprintf("file%d", i)
		mustEditAndCommit(t, c, key, fmt.Sprintf("%s.0,", key))
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2 := openTestCache(t, diskcache.Options{Dir: dir, MaxSize: 5120})

	snap, err := c2.Get("file10")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if snap == nil {
		t.Fatal("Get(file10): got nil snapshot after reopen")
	}

	got, err := snap.String(0)
	if err != nil {
		t.Fatalf("String: %v", err)
	}

	if want := "file10.0,"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

// Test_Dirty_On_Open_Is_Absent_And_Cleaned_Up covers S2's default config
// path: a crash mid-edit leaves the entry absent and its dirty file gone.
func Test_Dirty_On_Open_Is_Absent_And_Cleaned_Up(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fsys := cachefs.NewReal()

	c := openTestCache(t, diskcache.Options{Dir: dir, FS: fsys})

	ed, err := c.Edit("dirtyfile")
	if err != nil || ed == nil {
		t.Fatalf("Edit: %v, %v", ed, err)
	}

	if err := ed.SetString(0, "partial"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	dirtyPath := ed.File(0)
	// Simulate the process dying: never commit or abort, just reopen.

	c2 := openTestCache(t, diskcache.Options{Dir: dir, FS: fsys})

	snap, err := c2.Get("dirtyfile")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if snap != nil {
		t.Fatal("Get(dirtyfile): want nil after crash-recovery, got a snapshot")
	}

	if exists, _ := fsys.Exists(dirtyPath); exists {
		t.Fatal("dirty file should have been deleted on recovery")
	}
}

// Test_Dirty_On_Open_Preserved_With_KeepDirtyFiles covers S2's
// KeepDirtyFiles=true path: the dirty file survives, but the entry is
// still not readable.
func Test_Dirty_On_Open_Preserved_With_KeepDirtyFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fsys := cachefs.NewReal()

	c := openTestCache(t, diskcache.Options{Dir: dir, FS: fsys, KeepDirtyFiles: true})

	ed, err := c.Edit("dirtyfile")
	if err != nil || ed == nil {
		t.Fatalf("Edit: %v, %v", ed, err)
	}

	if err := ed.SetString(0, "partial"); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	dirtyPath := ed.File(0)

	c2 := openTestCache(t, diskcache.Options{Dir: dir, FS: fsys, KeepDirtyFiles: true})

	snap, err := c2.Get("dirtyfile")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if snap != nil {
		t.Fatal("Get(dirtyfile): want nil, entry must not be readable")
	}

	if exists, _ := fsys.Exists(dirtyPath); !exists {
		t.Fatal("dirty file should have been preserved")
	}
}

// Test_Eviction_Under_Pressure covers S3: ten 10-byte entries committed
// against a 30-byte budget leave only the three most recent readable.
func Test_Eviction_Under_Pressure(t *testing.T) {
	t.Parallel()

	c := openTestCache(t, diskcache.Options{MaxSize: 30, ValueCount: 1})

	for i := 1; i <= 10; i++ {
		key := fmt.Sprintf("k%d", i)
		mustEditAndCommit(t, c, key, "0123456789") // exactly 10 bytes
	}

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if got := c.Size(); got > 30 {
		t.Fatalf("Size() = %d, want <= 30", got)
	}

	for i := 8; i <= 10; i++ {
		key := fmt.Sprintf("k%d", i)

		snap, err := c.Get(key)
		if err != nil {
			t.Fatalf("Get(%q): %v", key, err)
		}

		if snap == nil {
			t.Fatalf("Get(%q): want readable, got absent", key)
		}
	}
}

// Test_Crash_During_Compact_Promotes_Backup covers S4: a journal.bkp left
// behind with no journal present (crash between the two compaction
// renames) is promoted on open, and previously committed entries survive.
func Test_Crash_During_Compact_Promotes_Backup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fsys := cachefs.NewReal()

	c := openTestCache(t, diskcache.Options{Dir: dir, FS: fsys})
	mustEditAndCommit(t, c, "alpha", "hello")

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	journalPath := filepath.Join(dir, "journal")
	bkpPath := filepath.Join(dir, "journal.bkp")

	data, err := fsys.ReadFile(journalPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if err := fsys.WriteFileAtomic(bkpPath, data, 0o644); err != nil {
		t.Fatalf("seed bkp: %v", err)
	}

	if err := fsys.Remove(journalPath); err != nil {
		t.Fatalf("remove journal: %v", err)
	}

	c2 := openTestCache(t, diskcache.Options{Dir: dir, FS: fsys})

	snap, err := c2.Get("alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if snap == nil {
		t.Fatal("Get(alpha): want readable after backup promotion")
	}

	if exists, _ := fsys.Exists(bkpPath); exists {
		t.Fatal("journal.bkp should be gone after promotion")
	}
}

func Test_Single_Editor_Per_Key(t *testing.T) {
	t.Parallel()

	c := openTestCache(t, diskcache.Options{})

	ed1, err := c.Edit("k")
	if err != nil || ed1 == nil {
		t.Fatalf("first Edit: %v, %v", ed1, err)
	}

	ed2, err := c.Edit("k")
	if err != nil {
		t.Fatalf("second Edit: %v", err)
	}

	if ed2 != nil {
		t.Fatal("second concurrent Edit on same key should return nil")
	}

	if err := ed1.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}

	ed3, err := c.Edit("k")
	if err != nil || ed3 == nil {
		t.Fatalf("Edit after abort: %v, %v", ed3, err)
	}
}

func Test_Stale_Snapshot_Cannot_Be_Edited(t *testing.T) {
	t.Parallel()

	c := openTestCache(t, diskcache.Options{})

	mustEditAndCommit(t, c, "k", "v1")

	snap, err := c.Get("k")
	if err != nil || snap == nil {
		t.Fatalf("Get: %v, %v", snap, err)
	}

	mustEditAndCommit(t, c, "k", "v2")

	staleEd, err := snap.Edit()
	if err != nil {
		t.Fatalf("Edit on stale snapshot: %v", err)
	}

	if staleEd != nil {
		t.Fatal("Edit on a stale snapshot should return nil")
	}

	freshSnap, err := c.Get("k")
	if err != nil || freshSnap == nil {
		t.Fatalf("Get: %v, %v", freshSnap, err)
	}

	freshEd, err := freshSnap.Edit()
	if err != nil {
		t.Fatalf("Edit on fresh snapshot: %v", err)
	}

	if freshEd == nil {
		t.Fatal("Edit on a fresh snapshot should succeed")
	}

	_ = freshEd.Abort()
}

// Test_LRU_Eviction_Order covers invariant 5: with room for two entries,
// inserting A, B, C in order, reading A, then inserting D leaves {A, D}
// readable once a Flush has run.
func Test_LRU_Eviction_Order(t *testing.T) {
	t.Parallel()

	c := openTestCache(t, diskcache.Options{MaxSize: 20, ValueCount: 1})

	mustEditAndCommit(t, c, "a", "0123456789")
	mustEditAndCommit(t, c, "b", "0123456789")
	mustEditAndCommit(t, c, "c", "0123456789")

	if _, err := c.Get("a"); err != nil {
		t.Fatalf("Get(a): %v", err)
	}

	mustEditAndCommit(t, c, "d", "0123456789")

	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for _, key := range []string{"a", "d"} {
		snap, err := c.Get(key)
		if err != nil {
			t.Fatalf("Get(%q): %v", key, err)
		}

		if snap == nil {
			t.Fatalf("Get(%q): want readable", key)
		}
	}

	if snap, _ := c.Get("b"); snap != nil {
		t.Fatal("Get(b): want evicted")
	}
}

func Test_Invalid_Key_Rejected(t *testing.T) {
	t.Parallel()

	c := openTestCache(t, diskcache.Options{})

	if _, err := c.Get("Has Spaces"); err == nil {
		t.Fatal("Get with invalid key should error")
	}

	if _, err := c.Edit("UPPERCASE"); err == nil {
		t.Fatal("Edit with invalid key should error")
	}
}

func Test_Closed_Cache_Rejects_Operations(t *testing.T) {
	t.Parallel()

	c := openTestCache(t, diskcache.Options{})

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := c.Get("k"); err == nil {
		t.Fatal("Get after Close should error")
	}

	if _, err := c.Edit("k"); err == nil {
		t.Fatal("Edit after Close should error")
	}
}
