package efs

import (
	"encoding/binary"
	"testing"
)

func buildDirblkPage(t *testing.T, firstused, slots byte, slotValues []byte, put func(page []byte)) []byte {
	t.Helper()
	page := make([]byte, blockSize)
	binary.BigEndian.PutUint16(page[0:2], dirblkMagic)
	page[2] = firstused
	page[3] = slots
	for i, v := range slotValues {
		page[4+i] = v
	}
	put(page)
	return page
}

func putEntry(page []byte, byteOffset int, inode int32, name string) {
	binary.BigEndian.PutUint32(page[byteOffset:byteOffset+4], uint32(inode))
	page[byteOffset+4] = byte(len(name))
	copy(page[byteOffset+5:], name)
}

func TestDecodeDirblkPageScenario(t *testing.T) {
	page := buildDirblkPage(t, 20, 3, []byte{20, 30, 40}, func(page []byte) {
		putEntry(page, 40, 100, "a")
		putEntry(page, 60, 200, "bb")
		putEntry(page, 80, 300, "ccc")
	})

	entries, ok := decodeDirblkPage(page)
	if !ok {
		t.Fatal("decodeDirblkPage: bad magic, want ok")
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	want := []dirent{{100, "a"}, {200, "bb"}, {300, "ccc"}}
	for i, w := range want {
		if entries[i] != w {
			t.Errorf("entries[%d] = %+v, want %+v", i, entries[i], w)
		}
	}
}

func TestDecodeDirblkPageSkipsUnusedSlot(t *testing.T) {
	page := buildDirblkPage(t, 20, 2, []byte{10, 30}, func(page []byte) {
		putEntry(page, 60, 200, "bb")
	})

	entries, ok := decodeDirblkPage(page)
	if !ok {
		t.Fatal("decodeDirblkPage: bad magic, want ok")
	}
	if len(entries) != 1 || entries[0].Name != "bb" {
		t.Errorf("entries = %+v, want single entry %q (slot 0 below firstused should be skipped)", entries, "bb")
	}
}

func TestDecodeDirblkPageBadMagic(t *testing.T) {
	page := make([]byte, blockSize)
	_, ok := decodeDirblkPage(page)
	if ok {
		t.Error("decodeDirblkPage: want ok=false for zeroed page")
	}
}
