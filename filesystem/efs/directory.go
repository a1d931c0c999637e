package efs

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

const dirblkMagic = 0xbeef

// dirent is an owned-by-value directory entry. The reference hands out
// pointers into a single shared buffer from opendir; here every entry is an
// independent copy so callers need not reason about buffer lifetime.
type dirent struct {
	Inode int32
	Name  string
}

// readDirblks reads every 512-byte directory page of the directory inode
// ino and decodes its entries, terminating the returned slice conceptually
// at its length (callers range over it directly; there is no sentinel
// element in the Go API, unlike the reference's sentinel-terminated array).
func readDirblks(fsys *FileSystem, ino int32) ([]dirent, error) {
	in, err := getInode(fsys.partition, fsys.sb, ino)
	if err != nil {
		return nil, err
	}
	if in.fileType() != modeDir {
		return nil, corruptf("inode %d is not a directory", ino)
	}

	f, err := openFile(fsys, ino)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []dirent
	numBlocks := f.size / blockSize
	for blk := int64(0); blk < numBlocks; blk++ {
		var page [blockSize]byte
		if _, err := f.readBlocks(page[:], blk, 1); err != nil {
			return nil, err
		}

		pageEntries, ok := decodeDirblkPage(page[:])
		if !ok {
			fsys.logger().Warnf("efs: skipping directory page %d of inode %d: bad magic", blk, ino)
			continue
		}
		entries = append(entries, pageEntries...)
	}

	return entries, nil
}

// decodeDirblkPage decodes one 512-byte directory page. It returns ok=false
// if the page's magic does not match, in which case the caller should warn
// and skip the page.
func decodeDirblkPage(page []byte) (entries []dirent, ok bool) {
	magic := binary.BigEndian.Uint16(page[0:2])
	if magic != dirblkMagic {
		return nil, false
	}
	firstused := page[2]
	slots := page[3]

	for s := 0; s < int(slots); s++ {
		slotVal := page[4+s]
		if slotVal < firstused {
			continue
		}
		byteOffset := int(slotVal) << 1
		if byteOffset+5 > blockSize {
			continue
		}
		entInode := int32(binary.BigEndian.Uint32(page[byteOffset : byteOffset+4]))
		namelen := int(page[byteOffset+4])
		if byteOffset+5+namelen > blockSize {
			continue
		}
		name := string(page[byteOffset+5 : byteOffset+5+namelen])
		entries = append(entries, dirent{Inode: entInode, Name: name})
	}
	return entries, true
}

// Directory is an open directory iterator, analogous to the reference's
// opendir/readdir/rewinddir/closedir quartet.
type Directory struct {
	entries []dirent
	cursor  int
}

// opendir resolves path, reads its entries, and returns a cursor over them
// sorted lexicographically by name.
func opendir(fsys *FileSystem, path string) (*Directory, error) {
	ino, err := namei(fsys, path)
	if err != nil {
		return nil, err
	}
	entries, err := readDirblks(fsys, ino)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &Directory{entries: entries}, nil
}

// Readdir returns the entry at the cursor and advances it. It returns
// io.EOF once every entry has been returned.
func (d *Directory) Readdir() (dirent, error) {
	if d.cursor >= len(d.entries) {
		return dirent{}, io.EOF
	}
	e := d.entries[d.cursor]
	d.cursor++
	return e, nil
}

// Rewinddir resets the cursor to the start of the entry list.
func (d *Directory) Rewinddir() {
	d.cursor = 0
}

// Closedir releases the entry buffer.
func (d *Directory) Closedir() {
	d.entries = nil
}

func (f *FileSystem) logger() logrus.FieldLogger {
	if f.Logger != nil {
		return f.Logger
	}
	return logrus.StandardLogger()
}
