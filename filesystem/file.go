package filesystem

import (
	"io"
	"io/fs"
)

// File is an open handle within a FileSystem. io.Writer is part of the
// contract even for a read-only implementation like efs.File, whose Write
// always returns ErrReadonlyFilesystem: callers that only hold a File, not
// the concrete type, still need a uniform way to find that out.
type File interface {
	fs.ReadDirFile
	io.Writer
	io.Seeker
}
