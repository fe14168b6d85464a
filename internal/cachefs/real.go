package cachefs

import (
	"bytes"
	"os"

	"github.com/natefinch/atomic"
)

// Real implements FS using the real filesystem. All methods are passthroughs
// to the os package, except WriteFileAtomic, Exists, and Remove (which
// treats a missing file as success).
type Real struct{}

// NewReal returns a new Real filesystem.
func NewReal() *Real {
	return &Real{}
}

func (r *Real) Open(path string) (File, error) {
	return os.Open(path) //nolint:gosec // path is validated by caller
}

func (r *Real) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(path, flag, perm) //nolint:gosec // path is validated by caller
}

func (r *Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path) //nolint:gosec // path is validated by caller
}

// WriteFileAtomic writes via a temp file + rename so readers never observe
// a partial write.
func (r *Real) WriteFileAtomic(path string, data []byte, _ os.FileMode) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (r *Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path) //nolint:gosec // path is validated by caller
}

func (r *Real) Exists(path string) (bool, error) {
	_, err := os.Stat(path) //nolint:gosec // path is validated by caller
	if err == nil {
		return true, nil
	}

	if os.IsNotExist(err) {
		return false, nil
	}

	return false, err
}

func (r *Real) Remove(path string) error {
	err := os.Remove(path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}

	return err
}

func (r *Real) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (r *Real) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (r *Real) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path) //nolint:gosec // path is validated by caller
}

var _ FS = (*Real)(nil)
