// Package dvh parses the SGI disk volume header, the fixed 512-byte record
// at the start of an SGI disk image that carries the partition table and a
// small directory of named boot files.
package dvh

import (
	"encoding/binary"
	"fmt"

	"github.com/sgivol/efsx/backend"
)

const (
	// Magic is the big-endian magic number at offset 0 of a valid header.
	Magic = 0x0be5a941

	// HeaderSize is the fixed on-disk size of a volume header block.
	HeaderSize = 512

	blockSize   = 512
	vdNameSize  = 8
	bootfileSize = 16
	numPartitions = 16
	numBootfiles  = 15

	dpSize = 48
)

// PartitionType identifies the content a partition table entry points at.
type PartitionType int32

const (
	TypeVolumeHeader PartitionType = 0
	TypeBSD          PartitionType = 4
	TypeSysV         PartitionType = 5
	TypeVolume       PartitionType = 6
	TypeEFS          PartitionType = 7
	TypeXFS          PartitionType = 10
)

func (t PartitionType) String() string {
	switch t {
	case TypeVolumeHeader:
		return "volhdr"
	case TypeBSD:
		return "bsd"
	case TypeSysV:
		return "sysv"
	case TypeVolume:
		return "volume"
	case TypeEFS:
		return "efs"
	case TypeXFS:
		return "xfs"
	default:
		return fmt.Sprintf("unknown(%d)", int32(t))
	}
}

// Partition is one of the 16 fixed partition-table entries.
type Partition struct {
	NumBlocks int32
	FirstLBN  int32
	Type      PartitionType
}

// Bootfile is one of the 15 named-bootfile directory entries.
type Bootfile struct {
	Name   string
	LBN    int32
	NBytes int32
}

// Header is the decoded, byte-order-normalised volume header.
type Header struct {
	RootPartition int16
	SwapPartition int16
	BootFile      string

	partitions [numPartitions]Partition
	bootfiles  [numBootfiles]Bootfile
}

// isISO9660Signature is the 8-byte prefix of an ISO9660 primary volume
// descriptor, read at byte offset 0x8000 when the DVH magic mismatches.
var isISO9660Signature = [8]byte{0x01, 0x43, 0x44, 0x30, 0x30, 0x31, 0x01, 0x00}

// Read reads and validates the 512-byte volume header at the start of b.
func Read(b backend.Storage) (*Header, error) {
	raw := make([]byte, blockSize)
	if _, err := b.ReadAt(raw, 0); err != nil {
		return nil, fmt.Errorf("dvh: read header: %w", ErrReadFailure)
	}

	magic := binary.BigEndian.Uint32(raw[0:4])
	if magic != Magic {
		probe := make([]byte, 8)
		if _, err := b.ReadAt(probe, 0x8000); err == nil {
			if [8]byte{probe[0], probe[1], probe[2], probe[3], probe[4], probe[5], probe[6], probe[7]} == isISO9660Signature {
				return nil, ErrIsISO9660
			}
		}
		return nil, ErrNoVolumeHeader
	}

	if !checksumsToZero(raw) {
		return nil, ErrBadVolumeHeader
	}

	h := &Header{
		RootPartition: int16(binary.BigEndian.Uint16(raw[4:6])),
		SwapPartition: int16(binary.BigEndian.Uint16(raw[6:8])),
		BootFile:      cString(raw[8 : 8+bootfileSize]),
	}

	vdOff := 8 + bootfileSize + dpSize
	for i := 0; i < numBootfiles; i++ {
		e := raw[vdOff+i*16 : vdOff+(i+1)*16]
		h.bootfiles[i] = Bootfile{
			Name:   cString(e[0:vdNameSize]),
			LBN:    int32(binary.BigEndian.Uint32(e[8:12])),
			NBytes: int32(binary.BigEndian.Uint32(e[12:16])),
		}
	}

	ptOff := vdOff + numBootfiles*16
	for i := 0; i < numPartitions; i++ {
		e := raw[ptOff+i*12 : ptOff+(i+1)*12]
		h.partitions[i] = Partition{
			NumBlocks: int32(binary.BigEndian.Uint32(e[0:4])),
			FirstLBN:  int32(binary.BigEndian.Uint32(e[4:8])),
			Type:      PartitionType(int32(binary.BigEndian.Uint32(e[8:12]))),
		}
	}

	return h, nil
}

// checksumsToZero verifies the two's-complement wraparound sum of the
// header's 128 big-endian 32-bit words equals zero.
func checksumsToZero(raw []byte) bool {
	var sum uint32
	for i := 0; i < blockSize; i += 4 {
		sum += binary.BigEndian.Uint32(raw[i : i+4])
	}
	return sum == 0
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Partition returns the i'th partition table entry, or a zero entry if i is
// out of range.
func (h *Header) Partition(i int) Partition {
	if i < 0 || i >= numPartitions {
		return Partition{}
	}
	return h.partitions[i]
}

// Bootfile returns the i'th named bootfile entry, or a zero entry if i is
// out of range.
func (h *Header) Bootfile(i int) Bootfile {
	if i < 0 || i >= numBootfiles {
		return Bootfile{}
	}
	return h.bootfiles[i]
}

// PartitionSlice returns a Storage view bounded to partition i's byte range
// within b. It returns ErrPartitionNotFound for an out-of-range index or a
// partition with zero blocks.
func (h *Header) PartitionSlice(b backend.Storage, i int) (backend.Storage, error) {
	p := h.Partition(i)
	if i < 0 || i >= numPartitions || p.NumBlocks == 0 {
		return nil, ErrPartitionNotFound
	}
	offset := int64(p.FirstLBN) * blockSize
	size := int64(p.NumBlocks) * blockSize
	return backend.Sub(b, offset, size), nil
}

// ReadBootfile loads the nbytes bytes of named bootfile i.
func (h *Header) ReadBootfile(b backend.Storage, i int) ([]byte, error) {
	bf := h.Bootfile(i)
	if i < 0 || i >= numBootfiles || bf.NBytes == 0 {
		return nil, ErrNoSuchEntry
	}
	buf := make([]byte, bf.NBytes)
	if _, err := b.ReadAt(buf, int64(bf.LBN)*blockSize); err != nil {
		return nil, fmt.Errorf("dvh: read bootfile %q: %w", bf.Name, ErrReadFailure)
	}
	return buf, nil
}
