// Package efs implements a read-only reader for the SGI EFS (Extent File
// System), the filesystem format used inside an SGI disk volume header's EFS
// and SysV-typed partitions.
package efs

import (
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/sgivol/efsx/backend"
	"github.com/sgivol/efsx/filesystem"
)

// FileSystem is a reference to an EFS filesystem within one partition of a
// disk image. It owns the partition's Storage slice exclusively; it does
// not own the underlying volume-header handle (the image package does, when
// the convenience open path is used).
type FileSystem struct {
	partition backend.Storage
	sb        *superblock

	// Logger receives warnings about locally-recovered corruption (bad
	// dirblk magic). Defaults to logrus's standard logger when nil.
	Logger logrus.FieldLogger
}

var _ filesystem.FileSystem = (*FileSystem)(nil)

// Read opens an EFS filesystem on the given partition-relative Storage.
func Read(partition backend.Storage) (*FileSystem, error) {
	sb, err := readSuperblock(partition)
	if err != nil {
		return nil, err
	}
	return &FileSystem{partition: partition, sb: sb}, nil
}

// Type implements filesystem.FileSystem.
func (f *FileSystem) Type() filesystem.Type { return filesystem.TypeEFS }

// Mkdir, Mknod, Link, Symlink, Rename, Remove, SetLabel: the filesystem is
// read-only.
func (f *FileSystem) Mkdir(string) error                      { return filesystem.ErrReadonlyFilesystem }
func (f *FileSystem) Mknod(string, uint32, int) error         { return filesystem.ErrReadonlyFilesystem }
func (f *FileSystem) Link(string, string) error               { return filesystem.ErrReadonlyFilesystem }
func (f *FileSystem) Symlink(string, string) error             { return filesystem.ErrReadonlyFilesystem }
func (f *FileSystem) Rename(string, string) error             { return filesystem.ErrReadonlyFilesystem }
func (f *FileSystem) Remove(string) error                     { return filesystem.ErrReadonlyFilesystem }
func (f *FileSystem) SetLabel(string) error                   { return filesystem.ErrReadonlyFilesystem }
func (f *FileSystem) Chmod(string, os.FileMode) error         { return filesystem.ErrReadonlyFilesystem }
func (f *FileSystem) Chown(string, int, int) error            { return filesystem.ErrReadonlyFilesystem }

// Label returns the superblock's fname, the closest EFS analogue of a
// volume label.
func (f *FileSystem) Label() string { return f.sb.fname }

// ReadDir reads the contents of a directory.
func (f *FileSystem) ReadDir(pathname string) ([]os.FileInfo, error) {
	d, err := opendir(f, pathname)
	if err != nil {
		return nil, err
	}
	defer d.Closedir()

	var out []os.FileInfo
	for {
		e, err := d.Readdir()
		if err != nil {
			break
		}
		in, err := getInode(f.partition, f.sb, e.Inode)
		if err != nil {
			return nil, err
		}
		out = append(out, &fileInfo{ino: e.Inode, in: in, name: e.Name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// OpenFile opens a handle to read a file. Only os.O_RDONLY is meaningful;
// any write-intent flag is rejected since the filesystem is read-only.
func (f *FileSystem) OpenFile(pathname string, flag int) (filesystem.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, filesystem.ErrReadonlyFilesystem
	}
	ino, err := namei(f, pathname)
	if err != nil {
		return nil, err
	}
	return openFile(f, ino)
}

// Stat resolves pathname and returns its Stat record.
func (f *FileSystem) Stat(pathname string) (Stat, error) {
	return statPath(f, pathname)
}

// StatInode returns the Stat record for a known inode number.
func (f *FileSystem) StatInode(ino int32) (Stat, error) {
	return statByInode(f, ino)
}

// Walk performs a breadth-first traversal rooted at path.
func (f *FileSystem) Walk(path string, visit VisitFunc) error {
	return Walk(f, path, visit)
}

// ReadLink returns the target of a symlink inode's data, used by extraction.
func (f *FileSystem) ReadLink(pathname string) (string, error) {
	ino, err := namei(f, pathname)
	if err != nil {
		return "", err
	}
	in, err := getInode(f.partition, f.sb, ino)
	if err != nil {
		return "", err
	}
	if in.fileType() != modeSymlink {
		return "", fmt.Errorf("efs: %s is not a symlink", pathname)
	}
	fh, err := openFile(f, ino)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	buf := make([]byte, fh.size)
	if _, err := fh.readBytes(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
