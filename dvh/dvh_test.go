package dvh

import (
	"encoding/binary"
	"testing"

	"github.com/sgivol/efsx/testhelper"
)

// buildValidHeader constructs a 512-byte header with a valid magic and a
// checksum that sums to zero.
func buildValidHeader() []byte {
	raw := make([]byte, blockSize)
	binary.BigEndian.PutUint32(raw[0:4], Magic)
	binary.BigEndian.PutUint16(raw[4:6], 0)  // root partition
	binary.BigEndian.PutUint16(raw[6:8], 1)  // swap partition
	copy(raw[8:8+bootfileSize], "sash")

	// partition 7: EFS, 100 blocks starting at block 10
	ptOff := 8 + bootfileSize + dpSize + numBootfiles*16
	e := raw[ptOff+7*12 : ptOff+8*12]
	binary.BigEndian.PutUint32(e[0:4], 100)
	binary.BigEndian.PutUint32(e[4:8], 10)
	binary.BigEndian.PutUint32(e[8:12], uint32(TypeEFS))

	fixChecksum(raw)
	return raw
}

// fixChecksum adjusts the last word so the whole header sums to zero.
func fixChecksum(raw []byte) {
	binary.BigEndian.PutUint32(raw[blockSize-4:], 0)
	var sum uint32
	for i := 0; i < blockSize; i += 4 {
		sum += binary.BigEndian.Uint32(raw[i : i+4])
	}
	binary.BigEndian.PutUint32(raw[blockSize-4:], -sum)
}

func newFakeStorage(t *testing.T, data []byte) *testhelper.FileImpl {
	t.Helper()
	return &testhelper.FileImpl{
		Reader: func(b []byte, offset int64) (int, error) {
			n := copy(b, data[offset:])
			return n, nil
		},
	}
}

func TestReadValidHeader(t *testing.T) {
	raw := buildValidHeader()
	storage := newFakeStorage(t, raw)

	h, err := Read(storage)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if h.BootFile != "sash" {
		t.Errorf("BootFile = %q, want %q", h.BootFile, "sash")
	}
	p := h.Partition(7)
	if p.NumBlocks != 100 || p.FirstLBN != 10 || p.Type != TypeEFS {
		t.Errorf("Partition(7) = %+v, want {100 10 EFS}", p)
	}
}

func TestReadBadChecksum(t *testing.T) {
	raw := buildValidHeader()
	raw[100] ^= 0x01 // flip a bit inside the header, away from the magic

	storage := newFakeStorage(t, raw)
	_, err := Read(storage)
	if err != ErrBadVolumeHeader {
		t.Fatalf("Read: got %v, want ErrBadVolumeHeader", err)
	}
}

func TestReadISO9660Signature(t *testing.T) {
	raw := make([]byte, 0x8000+8)
	copy(raw[0:4], []byte{0xff, 0xff, 0xff, 0xff}) // not the DVH magic
	copy(raw[0x8000:0x8000+8], isoSignatureBytes())

	storage := newFakeStorage(t, raw)
	_, err := Read(storage)
	if err != ErrIsISO9660 {
		t.Fatalf("Read: got %v, want ErrIsISO9660", err)
	}
}

func isoSignatureBytes() []byte {
	return isoSig[:]
}

var isoSig = [8]byte{0x01, 0x43, 0x44, 0x30, 0x30, 0x31, 0x01, 0x00}

func TestPartitionOutOfRange(t *testing.T) {
	h := &Header{}
	if p := h.Partition(-1); p != (Partition{}) {
		t.Errorf("Partition(-1) = %+v, want zero value", p)
	}
	if p := h.Partition(16); p != (Partition{}) {
		t.Errorf("Partition(16) = %+v, want zero value", p)
	}
}
