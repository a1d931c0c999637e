// Package backend abstracts the byte source an SGI disk image is read from:
// a plain file, a raw device, or a bounded slice of one (a DVH partition).
// Every reader in dvh/ and filesystem/efs operates on a Storage, never on an
// *os.File directly, so a volume header or an EFS superblock can be parsed
// equally well from a whole image or from one partition's byte range.
package backend

import (
	"errors"
	"io"
	"io/fs"
	"os"
)

// ErrNotSuitable is returned when an operation has no sensible backing: a
// Seek whence this Storage doesn't support, or Sys() on a Storage with no
// underlying *os.File (an in-memory or sub-range view).
var ErrNotSuitable = errors.New("backing file is not suitable")

// File is the minimum an SGI image source must support: random-access reads
// plus seeking. dvh.Read and efs.Read only use ReadAt.
type File interface {
	fs.File
	io.ReaderAt
	io.Seeker
	io.Closer
}

// Storage is a File that can additionally expose its underlying *os.File,
// for the rare case (none yet in this module) where a caller needs the raw
// file descriptor rather than the ReaderAt view.
type Storage interface {
	File
	Sys() (*os.File, error)
}
