package efs

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/sgivol/efsx/filesystem"
)

// File is an open handle onto one EFS inode's data, implementing
// filesystem.File. It carries a one-block hot cache, matching the
// reference's per-handle cache but correcting the bug where the cache was
// populated from the caller's destination buffer after the copy: here it is
// always filled from an internal buffer and then copied out.
type File struct {
	fs       *FileSystem
	ino      int32
	in       *inode
	extents  *extentMap
	pos      int64
	size     int64
	eof      bool
	errFlag  bool

	cacheValid bool
	cacheLBN   int64
	cacheBlock [blockSize]byte
}

var _ filesystem.File = (*File)(nil)

// openFile opens a handle on ino, rejecting version/nlink/type violations
// per the reference's open-time validation.
func openFile(f *FileSystem, ino int32) (*File, error) {
	in, err := getInode(f.partition, f.sb, ino)
	if err != nil {
		return nil, err
	}
	if in.version != 0 {
		return nil, corruptf("inode %d has non-zero version %d", ino, in.version)
	}
	if in.nlink == 0 {
		return nil, corruptf("inode %d has nlink 0", ino)
	}
	switch in.fileType() {
	case modeRegular, modeDir, modeSymlink:
	default:
		return nil, ErrUnsupportedFileType
	}

	em, err := buildExtentMap(f.partition, in)
	if err != nil {
		return nil, err
	}

	return &File{
		fs:       f,
		ino:      ino,
		in:       in,
		extents:  em,
		size:     int64(in.size),
		cacheLBN: -1,
	}, nil
}

// readBlocks serves block-granular, extent-aware reads of count basic
// blocks starting at logical file block fileLBN.
func (f *File) readBlocks(dst []byte, fileLBN int64, count int) (int, error) {
	if count == 1 && f.cacheValid && f.cacheLBN == fileLBN {
		copy(dst[:blockSize], f.cacheBlock[:])
		return 1, nil
	}

	blocksRead := 0
	for blocksRead < count {
		lbn := fileLBN + int64(blocksRead)
		ext := f.extents.find(lbn * blockSize)
		if ext == nil {
			return blocksRead, corruptf("no extent covers file block %d", lbn)
		}
		offsetInExtent := lbn - int64(ext.offset)
		runLen := int64(count-blocksRead)
		if maxRun := int64(ext.length) - offsetInExtent; runLen > maxRun {
			runLen = maxRun
		}
		partitionLBN := int64(ext.bn) + offsetInExtent

		out := dst[blocksRead*blockSize : (blocksRead+int(runLen))*blockSize]
		if count == 1 {
			out = f.cacheBlock[:]
			f.cacheValid = false
		}
		if _, err := f.fs.partition.ReadAt(out, partitionLBN*blockSize); err != nil {
			return blocksRead, fmt.Errorf("efs: read block: %w", ErrReadFailure)
		}
		blocksRead += int(runLen)
	}

	if count == 1 {
		copy(dst[:blockSize], f.cacheBlock[:])
		f.cacheLBN = fileLBN
		f.cacheValid = true
	}

	return blocksRead, nil
}

// readBytes serves byte-granular reads, splitting into a leading partial
// block, whole aligned blocks, and a trailing partial block.
func (f *File) readBytes(dst []byte) (int, error) {
	remaining := int64(f.size) - f.pos
	if remaining <= 0 {
		f.eof = true
		return 0, io.EOF
	}
	if int64(len(dst)) > remaining {
		dst = dst[:remaining]
	}
	total := 0
	want := len(dst)

	if off := f.pos % blockSize; off != 0 && want > 0 {
		lbn := f.pos / blockSize
		var blk [blockSize]byte
		if _, err := f.readBlocks(blk[:], lbn, 1); err != nil {
			return total, err
		}
		n := copy(dst, blk[off:])
		total += n
		f.pos += int64(n)
		dst = dst[n:]
		want -= n
	}

	if wholeBlocks := want / blockSize; wholeBlocks > 0 {
		lbn := f.pos / blockSize
		n, err := f.readBlocks(dst[:wholeBlocks*blockSize], lbn, wholeBlocks)
		total += n * blockSize
		f.pos += int64(n) * blockSize
		if err != nil {
			return total, err
		}
		dst = dst[n*blockSize:]
		want -= n * blockSize
	}

	if want > 0 {
		lbn := f.pos / blockSize
		var blk [blockSize]byte
		if _, err := f.readBlocks(blk[:], lbn, 1); err != nil {
			return total, err
		}
		n := copy(dst, blk[:want])
		total += n
		f.pos += int64(n)
	}

	if f.pos >= f.size {
		f.eof = true
	}
	return total, nil
}

// Read implements io.Reader.
func (f *File) Read(p []byte) (int, error) {
	n, err := f.readBytes(p)
	if err != nil && err != io.EOF {
		f.errFlag = true
	}
	return n, err
}

// Write always fails: the filesystem is read-only.
func (f *File) Write(p []byte) (int, error) {
	return 0, filesystem.ErrReadonlyFilesystem
}

// Seek implements io.Seeker. whence=io.SeekEnd positions exactly at size,
// correcting the reference's off-by-one (which computed size-1).
func (f *File) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = f.size
	default:
		return f.pos, ErrInvalidArgument
	}
	newPos := base + offset
	if newPos < 0 {
		return f.pos, ErrInvalidArgument
	}
	f.pos = newPos
	f.eof = false
	return f.pos, nil
}

// Close releases the handle.
func (f *File) Close() error {
	f.extents = nil
	return nil
}

// Stat returns file metadata in io/fs form.
func (f *File) Stat() (fs.FileInfo, error) {
	return &fileInfo{ino: f.ino, in: f.in}, nil
}

// ReadDir is not supported on a regular file handle.
func (f *File) ReadDir(n int) ([]fs.DirEntry, error) {
	return nil, filesystem.ErrNotSupported
}
