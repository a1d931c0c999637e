package efs

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/sgivol/efsx/backend"
)

// File-type bits, carried in the high bits of the on-disk mode.
const (
	modeTypeMask = 0170000
	modeFifo     = 0010000
	modeChar     = 0020000
	modeDir      = 0040000
	modeBlock    = 0060000
	modeRegular  = 0100000
	modeSymlink  = 0120000
	modeSocket   = 0140000

	maxDirectExtents = 12
	maxIndirectBBs   = 128 // some efs_internal.h variants use 64; 128 matches this image format's indirect-extent limit
	maxExtents       = 32767
	maxExtentLen     = 248
)

// extentDescriptor is the decoded form of one 8-byte, bit-packed on-disk
// extent. Decoded strictly from raw bytes per the accessor formulas below —
// never from a native bitfield layout.
type extentDescriptor struct {
	magic  byte
	bn     int32
	length int32
	offset int32
}

// decodeExtent decodes one 8-byte descriptor using raw-byte accessors,
// independent of host or compiler bitfield ordering.
func decodeExtent(b []byte) extentDescriptor {
	return extentDescriptor{
		magic:  b[0],
		bn:     int32(b[1])<<16 | int32(b[2])<<8 | int32(b[3]),
		length: int32(b[4]),
		offset: int32(b[5])<<16 | int32(b[6])<<8 | int32(b[7]),
	}
}

// inode is the decoded on-disk inode. The 12 raw extent-or-device union
// slots are kept undecoded until the ExtentMap consumes them, so fetching an
// inode never allocates beyond the fixed-size value itself.
type inode struct {
	mode        uint16
	nlink       int16
	uid         uint16
	gid         uint16
	size        int32
	atime       int32
	mtime       int32
	ctime       int32
	gen         uint32
	numExtents  int16
	version     uint8

	rawUnion [96]byte // 12 * 8 bytes: either 12 extent descriptors or {odev:2, ndev:4, ...padding}

	odev uint16
	ndev uint32
}

func (i *inode) fileType() uint16 { return i.mode & modeTypeMask }
func (i *inode) perm() os.FileMode {
	return os.FileMode(i.mode & 0o7777)
}

func (i *inode) isCharOrBlock() bool {
	t := i.fileType()
	return t == modeChar || t == modeBlock
}

func (i *inode) goFileMode() os.FileMode {
	m := i.perm()
	switch i.fileType() {
	case modeDir:
		m |= os.ModeDir
	case modeSymlink:
		m |= os.ModeSymlink
	case modeFifo:
		m |= os.ModeNamedPipe
	case modeChar:
		m |= os.ModeCharDevice | os.ModeDevice
	case modeBlock:
		m |= os.ModeDevice
	case modeSocket:
		m |= os.ModeSocket
	}
	return m
}

// directExtent returns the i'th (0..11) direct extent slot, decoded.
func (i *inode) directExtent(slot int) extentDescriptor {
	return decodeExtent(i.rawUnion[slot*8 : slot*8+8])
}

// getInode reads and byte-swaps the on-disk inode numbered ino out of disk
// basic block diskBB, record slot.
func getInode(b backend.Storage, sb *superblock, ino int32) (*inode, error) {
	diskBB, slot := sb.locateInode(ino)
	blk := make([]byte, blockSize)
	if _, err := b.ReadAt(blk, int64(diskBB)*blockSize); err != nil {
		return nil, fmt.Errorf("efs: read inode %d: %w", ino, ErrReadFailure)
	}
	raw := blk[slot*inodeSize : slot*inodeSize+inodeSize]

	in := &inode{
		mode:       binary.BigEndian.Uint16(raw[0:2]),
		nlink:      int16(binary.BigEndian.Uint16(raw[2:4])),
		uid:        binary.BigEndian.Uint16(raw[4:6]),
		gid:        binary.BigEndian.Uint16(raw[6:8]),
		size:       int32(binary.BigEndian.Uint32(raw[8:12])),
		atime:      int32(binary.BigEndian.Uint32(raw[12:16])),
		mtime:      int32(binary.BigEndian.Uint32(raw[16:20])),
		ctime:      int32(binary.BigEndian.Uint32(raw[20:24])),
		gen:        binary.BigEndian.Uint32(raw[24:28]),
		numExtents: int16(binary.BigEndian.Uint16(raw[28:30])),
		version:    raw[30],
	}
	copy(in.rawUnion[:], raw[32:128])

	if in.isCharOrBlock() {
		in.odev = binary.BigEndian.Uint16(raw[32:34])
		in.ndev = binary.BigEndian.Uint32(raw[34:38])
	}

	return in, nil
}
