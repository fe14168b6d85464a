package cachefs

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrWouldBlock indicates the lock is already held.
var ErrWouldBlock = errors.New("cachefs: lock held")

// DirGuard is an advisory, in-process-friendly single-opener assertion for a
// cache directory. It is NOT cross-process coordination (the disk cache's
// Non-goals exclude that); it only guards against two unrelated Cache values
// in the same process opening the same directory, which would otherwise
// silently double-account size and race on the journal.
//
// Implemented with golang.org/x/sys/unix.Flock on a ".guard" file next to
// the journal, rather than syscall.Flock directly, for the same portability
// reason x/sys is vendored for elsewhere in the corpus this module is
// grounded on.
type DirGuard struct {
	file *os.File
}

// AcquireDirGuard opens (creating if needed) dir/.guard and takes a
// non-blocking exclusive flock on it.
func AcquireDirGuard(dir string) (*DirGuard, error) {
	path := dir + string(os.PathSeparator) + ".guard"

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // dir is caller-controlled
	if err != nil {
		return nil, fmt.Errorf("open guard file: %w", err)
	}

	flockErr := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if flockErr != nil {
		_ = f.Close()

		if errors.Is(flockErr, unix.EWOULDBLOCK) {
			return nil, ErrWouldBlock
		}

		return nil, fmt.Errorf("flock guard file: %w", flockErr)
	}

	return &DirGuard{file: f}, nil
}

// Release unlocks and closes the guard file. Safe to call on nil. Does not
// delete the guard file: lock files persist across releases so a later
// AcquireDirGuard can reuse the same inode.
func (g *DirGuard) Release() {
	if g == nil || g.file == nil {
		return
	}

	_ = unix.Flock(int(g.file.Fd()), unix.LOCK_UN)
	_ = g.file.Close()
}
