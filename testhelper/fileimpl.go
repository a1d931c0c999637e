package testhelper

import (
	"fmt"
	"os"

	"github.com/sgivol/efsx/backend"
)

type reader func(b []byte, offset int64) (int, error)

// FileImpl implements github.com/sgivol/efsx/backend.Storage, used in tests
// to stub out an image backend over an in-memory byte slice.
type FileImpl struct {
	Reader reader
}

var _ backend.Storage = (*FileImpl)(nil)

// Sys has no OS file backing a FileImpl.
func (f *FileImpl) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

func (f *FileImpl) Stat() (os.FileInfo, error) {
	return nil, nil
}

func (f *FileImpl) Read(b []byte) (int, error) {
	return f.Reader(b, 0)
}

func (f *FileImpl) Close() error {
	return nil
}

// ReadAt read at a particular offset
func (f *FileImpl) ReadAt(b []byte, offset int64) (int, error) {
	return f.Reader(b, offset)
}

// Seek seek a particular offset - does not actually work
//
//nolint:unused,revive // to implement the interface
func (f *FileImpl) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("FileImpl does not implement Seek()")
}
