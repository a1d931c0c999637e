package efs

import (
	"encoding/binary"
	"fmt"

	"github.com/sgivol/efsx/backend"
)

const (
	blockSize = 512

	// superblockBB is the basic block number of the superblock within an
	// EFS partition.
	superblockBB = 1

	oldMagic = 0x00072959
	newMagic = 0x0007295a

	// inodesPerBBShift/inodesPerBB: the on-disk inode is 128 bytes, the
	// addressing unit is a 512-byte basic block, so 4 inodes pack into one.
	inodesPerBBShift = 2
	inodesPerBB      = 1 << inodesPerBBShift
	inodesPerBBMask  = inodesPerBB - 1

	inodeSize = 128

	rootIno = 2
)

// superblock is the byte-order-normalised EFS superblock.
type superblock struct {
	size        int32
	firstCG     int32
	cgFSize     int32
	cgISize     int16
	sectors     int16
	heads       int16
	ncg         int16
	magic       int32
	fname       string
	fpack       string
	bmsize      int32
	tfree       int32
	tinode      int32
}

// readSuperblock reads and validates basic block 1 of an EFS partition.
func readSuperblock(b backend.Storage) (*superblock, error) {
	raw := make([]byte, blockSize)
	if _, err := b.ReadAt(raw, superblockBB*blockSize); err != nil {
		return nil, fmt.Errorf("efs: read superblock: %w", ErrReadFailure)
	}

	magic := int32(binary.BigEndian.Uint32(raw[28:32]))
	if magic != oldMagic && magic != newMagic {
		return nil, ErrBadSuperblockMagic
	}

	return &superblock{
		size:    int32(binary.BigEndian.Uint32(raw[0:4])),
		firstCG: int32(binary.BigEndian.Uint32(raw[4:8])),
		cgFSize: int32(binary.BigEndian.Uint32(raw[8:12])),
		cgISize: int16(binary.BigEndian.Uint16(raw[12:14])),
		sectors: int16(binary.BigEndian.Uint16(raw[14:16])),
		heads:   int16(binary.BigEndian.Uint16(raw[16:18])),
		ncg:     int16(binary.BigEndian.Uint16(raw[18:20])),
		magic:   magic,
		fname:   cString(raw[32:38]),
		fpack:   cString(raw[38:44]),
		bmsize:  int32(binary.BigEndian.Uint32(raw[44:48])),
		tfree:   int32(binary.BigEndian.Uint32(raw[48:52])),
		tinode:  int32(binary.BigEndian.Uint32(raw[52:56])),
	}, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// inodesPerCG is the number of inodes packed into one cylinder group.
func (sb *superblock) inodesPerCG() int32 {
	return int32(sb.cgISize) * inodesPerBB
}

// locateInode computes the basic block holding inode number ino, and the
// slot (0..3) within that block's four 128-byte inode records.
func (sb *superblock) locateInode(ino int32) (diskBB int32, slot int32) {
	ipcg := sb.inodesPerCG()
	cg := ino / ipcg
	cgbb := (ino >> inodesPerBBShift) % int32(sb.cgISize)
	slot = ino & inodesPerBBMask
	diskBB = sb.firstCG + cg*sb.cgFSize + cgbb
	return diskBB, slot
}
