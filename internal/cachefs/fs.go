// Package cachefs provides the filesystem abstraction the disk cache builds
// on. The disk cache never calls os.* directly; it goes through FS so tests
// can substitute a fault-injecting fake to exercise crash-recovery paths.
//
// Paths use OS semantics (like the os package), not the slash-separated
// paths used by io/fs.
package cachefs

import (
	"io"
	"os"
)

// File is an open OS-backed file descriptor. Satisfied by *os.File.
type File interface {
	io.ReadWriteCloser
	io.Seeker

	// Fd returns the OS file descriptor, used for syscall.Flock.
	Fd() uintptr

	Stat() (os.FileInfo, error)
	Sync() error
}

// FS is the set of filesystem operations the disk cache needs.
//
// All methods mirror their os package equivalents. Implementations must be
// safe for concurrent use by multiple goroutines.
type FS interface {
	// Open opens a file for reading. See os.Open.
	Open(path string) (File, error)

	// OpenFile opens a file with explicit flags/perm. See os.OpenFile.
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads an entire file into memory. See os.ReadFile.
	ReadFile(path string) ([]byte, error)

	// WriteFileAtomic writes data to path such that readers never observe a
	// partial write: write to a temp file in the same directory, then
	// rename over path.
	WriteFileAtomic(path string, data []byte, perm os.FileMode) error

	// MkdirAll creates a directory and all parents. See os.MkdirAll.
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See os.Stat.
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a path exists. Returns (false, nil) if not
	// found, (false, err) on any other Stat error.
	Exists(path string) (bool, error)

	// Remove deletes a file. Returns nil if the file does not exist.
	Remove(path string) error

	// RemoveAll deletes a path and any children. No error if it doesn't
	// exist. See os.RemoveAll.
	RemoveAll(path string) error

	// Rename moves oldpath to newpath. See os.Rename.
	Rename(oldpath, newpath string) error

	// ReadDir lists directory entries, sorted by name. See os.ReadDir.
	ReadDir(path string) ([]os.DirEntry, error)
}

// Compile-time interface check.
var _ File = (*os.File)(nil)
