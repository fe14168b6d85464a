package cachefs

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Fake is an in-memory FS for deterministic crash-recovery tests. It is not
// test-file-gated (no _test.go suffix) so it can be imported from another
// package's own test files without a test-only build boundary. It supports
// two fault injections a disk cache's crash-recovery tests need: a rename
// that "never happens" (crash before promote) and a write that is
// truncated partway through (crash mid-append).
type Fake struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// FailRename, if set, is called before every Rename; returning an error
	// simulates a crash between writing a temp file and promoting it.
	FailRename func(oldpath, newpath string) error

	// TruncateWrites, if non-negative, caps every WriteFileAtomic/append to
	// at most N bytes, simulating a crash mid-write that leaves a short,
	// potentially unterminated file on disk.
	TruncateWrites int
}

// NewFake returns an empty in-memory filesystem.
func NewFake() *Fake {
	return &Fake{
		files:          make(map[string][]byte),
		dirs:           map[string]bool{".": true},
		TruncateWrites: -1,
	}
}

type fakeFile struct {
	fs       *Fake
	path     string
	buf      *bytes.Buffer
	readonly bool
	pos      int
	closed   bool
}

func (f *fakeFile) Read(p []byte) (int, error) {
	data := f.buf.Bytes()
	if f.pos >= len(data) {
		return 0, io.EOF
	}

	n := copy(p, data[f.pos:])
	f.pos += n

	return n, nil
}

func (f *fakeFile) Write(p []byte) (int, error) {
	if f.readonly {
		return 0, errors.New("cachefs: file not opened for writing")
	}

	n, err := f.buf.Write(p)
	if err != nil {
		return n, err
	}

	if f.fs.TruncateWrites >= 0 && f.buf.Len() > f.fs.TruncateWrites {
		f.buf.Truncate(f.fs.TruncateWrites)
	}

	f.fs.mu.Lock()
	f.fs.files[f.path] = append([]byte(nil), f.buf.Bytes()...)
	f.fs.mu.Unlock()

	return n, nil
}

func (f *fakeFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		f.pos = int(offset)
	case io.SeekCurrent:
		f.pos += int(offset)
	case io.SeekEnd:
		f.pos = f.buf.Len() + int(offset)
	}

	return int64(f.pos), nil
}

func (f *fakeFile) Close() error {
	f.closed = true
	return nil
}

func (f *fakeFile) Fd() uintptr { return 0 }

func (f *fakeFile) Stat() (os.FileInfo, error) {
	return nil, errors.New("cachefs: Stat unsupported on Fake file handles; use Fake.Stat")
}

func (f *fakeFile) Sync() error { return nil }

func (fs *Fake) Open(path string) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, ok := fs.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}

	return &fakeFile{fs: fs, path: path, buf: bytes.NewBuffer(append([]byte(nil), data...)), readonly: true}, nil
}

func (fs *Fake) OpenFile(path string, flag int, _ os.FileMode) (File, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, ok := fs.files[path]

	if flag&os.O_TRUNC != 0 || !ok {
		data = nil
	}

	f := &fakeFile{fs: fs, path: path, buf: bytes.NewBuffer(append([]byte(nil), data...))}
	if flag&os.O_APPEND != 0 {
		f.pos = f.buf.Len()
	}

	fs.files[path] = append([]byte(nil), data...)
	fs.dirs[filepath.Dir(path)] = true

	return f, nil
}

func (fs *Fake) ReadFile(path string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, ok := fs.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}

	return append([]byte(nil), data...), nil
}

func (fs *Fake) WriteFileAtomic(path string, data []byte, _ os.FileMode) error {
	fs.mu.Lock()

	if fs.TruncateWrites >= 0 && len(data) > fs.TruncateWrites {
		data = data[:fs.TruncateWrites]
	}

	fs.files[path] = append([]byte(nil), data...)
	fs.dirs[filepath.Dir(path)] = true
	fs.mu.Unlock()

	return nil
}

func (fs *Fake) MkdirAll(path string, _ os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.dirs[path] = true

	return nil
}

func (fs *Fake) Stat(path string) (os.FileInfo, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, ok := fs.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}

	return fakeFileInfo{name: filepath.Base(path), size: int64(len(data))}, nil
}

func (fs *Fake) Exists(path string) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	_, ok := fs.files[path]

	return ok, nil
}

func (fs *Fake) Remove(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	delete(fs.files, path)

	return nil
}

func (fs *Fake) RemoveAll(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	for p := range fs.files {
		if p == path || hasPrefixDir(p, path) {
			delete(fs.files, p)
		}
	}

	return nil
}

func (fs *Fake) Rename(oldpath, newpath string) error {
	if fs.FailRename != nil {
		if err := fs.FailRename(oldpath, newpath); err != nil {
			return err
		}
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, ok := fs.files[oldpath]
	if !ok {
		return os.ErrNotExist
	}

	fs.files[newpath] = data
	delete(fs.files, oldpath)

	return nil
}

func (fs *Fake) ReadDir(dir string) ([]os.DirEntry, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	names := map[string]int64{}

	for p, data := range fs.files {
		if filepath.Dir(p) == dir {
			names[filepath.Base(p)] = int64(len(data))
		}
	}

	entries := make([]os.DirEntry, 0, len(names))
	for name, size := range names {
		entries = append(entries, fakeDirEntry{fakeFileInfo{name: name, size: size}})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	return entries, nil
}

func hasPrefixDir(p, dir string) bool {
	return len(p) > len(dir) && p[:len(dir)] == dir && p[len(dir)] == os.PathSeparator
}

type fakeFileInfo struct {
	name string
	size int64
}

func (fi fakeFileInfo) Name() string         { return fi.name }
func (fi fakeFileInfo) Size() int64          { return fi.size }
func (fi fakeFileInfo) Mode() os.FileMode    { return 0o644 }
func (fi fakeFileInfo) ModTime() time.Time   { return time.Time{} }
func (fi fakeFileInfo) IsDir() bool          { return false }
func (fi fakeFileInfo) Sys() any             { return nil }

type fakeDirEntry struct{ info fakeFileInfo }

func (e fakeDirEntry) Name() string              { return e.info.name }
func (e fakeDirEntry) IsDir() bool                { return false }
func (e fakeDirEntry) Type() os.FileMode          { return 0 }
func (e fakeDirEntry) Info() (os.FileInfo, error) { return e.info, nil }

var _ FS = (*Fake)(nil)
