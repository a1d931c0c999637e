package efs

import (
	"io"
	"io/fs"
	"os"

	"github.com/sgivol/efsx/backend"
)

// memStorage is a minimal backend.Storage over an in-memory byte slice, used
// to synthesize test images without real files.
type memStorage struct {
	data []byte
	pos  int64
}

var _ backend.Storage = (*memStorage)(nil)

func newTestStorage(data []byte) *memStorage {
	return &memStorage{data: data}
}

func (m *memStorage) Stat() (fs.FileInfo, error) { return nil, nil }

func (m *memStorage) Read(p []byte) (int, error) {
	n, err := m.ReadAt(p, m.pos)
	m.pos += int64(n)
	return n, err
}

func (m *memStorage) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memStorage) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		m.pos = offset
	case io.SeekCurrent:
		m.pos += offset
	case io.SeekEnd:
		m.pos = int64(len(m.data)) + offset
	}
	return m.pos, nil
}

func (m *memStorage) Close() error { return nil }

func (m *memStorage) Sys() (*os.File, error) { return nil, backend.ErrNotSuitable }
