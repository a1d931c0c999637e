package efs

import (
	"io/fs"
	"time"
)

// Stat is the public metadata record surfaced to callers.
type Stat struct {
	Inode int32
	Mode  uint16
	Nlink int16
	UID   uint16
	GID   uint16
	Size  int64
	Gen   uint32
	Major uint32
	Minor uint32
	Atime time.Time
	Mtime time.Time
	Ctime time.Time
}

func (s Stat) isDir() bool { return s.Mode&modeTypeMask == modeDir }

func statFromInode(ino int32, in *inode) Stat {
	s := Stat{
		Inode: ino,
		Mode:  in.mode,
		Nlink: in.nlink,
		UID:   in.uid,
		GID:   in.gid,
		Size:  int64(in.size),
		Gen:   in.gen,
		Atime: time.Unix(int64(in.atime), 0).UTC(),
		Mtime: time.Unix(int64(in.mtime), 0).UTC(),
		Ctime: time.Unix(int64(in.ctime), 0).UTC(),
	}
	if in.isCharOrBlock() {
		// major/minor split matches the reference's (odev&0xff00)>>8 /
		// odev&0x00ff formula; the wider ndev field is not consulted.
		s.Major = (uint32(in.odev) & 0xff00) >> 8
		s.Minor = uint32(in.odev) & 0x00ff
	}
	return s
}

// statByInode fetches and decodes a fresh inode and returns its Stat.
func statByInode(fsys *FileSystem, ino int32) (Stat, error) {
	in, err := getInode(fsys.partition, fsys.sb, ino)
	if err != nil {
		return Stat{}, err
	}
	return statFromInode(ino, in), nil
}

// statPath resolves path and returns its Stat.
func statPath(fsys *FileSystem, path string) (Stat, error) {
	ino, err := namei(fsys, path)
	if err != nil {
		return Stat{}, err
	}
	return statByInode(fsys, ino)
}

// fileInfo adapts a Stat/inode pair to io/fs.FileInfo.
type fileInfo struct {
	ino  int32
	in   *inode
	name string
}

var _ fs.FileInfo = (*fileInfo)(nil)

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(fi.in.size) }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.in.goFileMode() }
func (fi *fileInfo) ModTime() time.Time { return time.Unix(int64(fi.in.mtime), 0).UTC() }
func (fi *fileInfo) IsDir() bool        { return fi.in.fileType() == modeDir }
func (fi *fileInfo) Sys() interface{}   { return statFromInode(fi.ino, fi.in) }

// dirEntryInfo adapts a dirent plus its freshly-read inode to fs.DirEntry.
type dirEntryInfo struct {
	*fileInfo
}

func (d dirEntryInfo) Type() fs.FileMode          { return d.in.goFileMode().Type() }
func (d dirEntryInfo) Info() (fs.FileInfo, error) { return d.fileInfo, nil }
