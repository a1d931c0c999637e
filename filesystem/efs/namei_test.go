package efs

import (
	"encoding/binary"
	"testing"
)

// buildTestImage constructs a minimal in-memory partition image with a
// two-level directory tree: root contains "a" -> ino 100, ino 100 contains
// "b" -> ino 150, and ino 150 is a small regular file. Matches the path
// resolution scenario: namei("a/b") == 150, namei("a/c") is no-such-entry.
func buildTestImage(t *testing.T) (*FileSystem, []byte) {
	t.Helper()

	const (
		firstCG = 2
		cgFSize = 1000
		cgISize = 64

		rootDirBB = 200
		subDirBB  = 201
		fileBB    = 202

		rootIno = 2
		subIno  = 100
		fileIno = 150
	)

	buf := make([]byte, 300*blockSize)

	sb := &superblock{firstCG: firstCG, cgFSize: cgFSize, cgISize: cgISize}

	writeInode := func(ino int32, mode uint16, nlink int16, size int32, numExtents int16, extents [][3]int32) {
		diskBB, slot := sb.locateInode(ino)
		off := int(diskBB)*blockSize + int(slot)*inodeSize
		raw := buf[off : off+inodeSize]
		binary.BigEndian.PutUint16(raw[0:2], mode)
		binary.BigEndian.PutUint16(raw[2:4], uint16(nlink))
		binary.BigEndian.PutUint32(raw[8:12], uint32(size))
		binary.BigEndian.PutUint16(raw[28:30], uint16(numExtents))
		for i, e := range extents {
			s := raw[32+i*8 : 32+i*8+8]
			s[0] = 0
			s[1] = byte(e[0] >> 16)
			s[2] = byte(e[0] >> 8)
			s[3] = byte(e[0])
			s[4] = byte(e[1])
			s[5] = byte(e[2] >> 16)
			s[6] = byte(e[2] >> 8)
			s[7] = byte(e[2])
		}
	}

	writeDirblkPage := func(bb int32, firstused, slots byte, slotValues []byte, entries []struct {
		offset int
		ino    int32
		name   string
	}) {
		page := buf[int(bb)*blockSize : int(bb)*blockSize+blockSize]
		binary.BigEndian.PutUint16(page[0:2], dirblkMagic)
		page[2] = firstused
		page[3] = slots
		for i, v := range slotValues {
			page[4+i] = v
		}
		for _, e := range entries {
			binary.BigEndian.PutUint32(page[e.offset:e.offset+4], uint32(e.ino))
			page[e.offset+4] = byte(len(e.name))
			copy(page[e.offset+5:], e.name)
		}
	}

	// root directory: one dirblk, entry "a" -> 100, at byte offset 40 (slot value 20)
	writeInode(rootIno, modeDir|0o755, 2, blockSize, 1, [][3]int32{{rootDirBB, 1, 0}})
	writeDirblkPage(rootDirBB, 20, 1, []byte{20}, []struct {
		offset int
		ino    int32
		name   string
	}{{40, subIno, "a"}})

	// ino 100 directory: entry "b" -> 150
	writeInode(subIno, modeDir|0o755, 2, blockSize, 1, [][3]int32{{subDirBB, 1, 0}})
	writeDirblkPage(subDirBB, 20, 1, []byte{20}, []struct {
		offset int
		ino    int32
		name   string
	}{{40, fileIno, "b"}})

	// ino 150: regular file, 3 bytes "hi\n"
	writeInode(fileIno, modeRegular|0o644, 1, 3, 1, [][3]int32{{fileBB, 1, 0}})
	copy(buf[fileBB*blockSize:], "hi\n")

	storage := newTestStorage(buf)
	return &FileSystem{partition: storage, sb: sb}, buf
}

func TestNameiResolvesNestedPath(t *testing.T) {
	fsys, _ := buildTestImage(t)

	ino, err := namei(fsys, "a/b")
	if err != nil {
		t.Fatalf("namei(a/b): %v", err)
	}
	if ino != 150 {
		t.Errorf("namei(a/b) = %d, want 150", ino)
	}
}

func TestNameiNoSuchEntry(t *testing.T) {
	fsys, _ := buildTestImage(t)

	_, err := namei(fsys, "a/c")
	if err != ErrNoSuchEntry {
		t.Fatalf("namei(a/c) = %v, want ErrNoSuchEntry", err)
	}
}

func TestStatMatchesOpenSize(t *testing.T) {
	fsys, _ := buildTestImage(t)

	st, err := statPath(fsys, "a/b")
	if err != nil {
		t.Fatalf("statPath: %v", err)
	}
	if st.Inode != 150 {
		t.Errorf("st.Inode = %d, want 150", st.Inode)
	}

	f, err := openFile(fsys, 150)
	if err != nil {
		t.Fatalf("openFile: %v", err)
	}
	defer f.Close()
	if st.Size != f.size {
		t.Errorf("stat size %d != open handle size %d", st.Size, f.size)
	}
}
