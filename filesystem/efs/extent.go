package efs

import "github.com/sgivol/efsx/backend"

// extentMap is the materialised, ordered list of data extents for one open
// file, plus the query used by the reader to locate the extent containing a
// given byte offset.
type extentMap struct {
	extents []extentDescriptor
}

// buildExtentMap materialises inode's extent list, following the
// direct/indirect indirection switch.
func buildExtentMap(b backend.Storage, in *inode) (*extentMap, error) {
	n := int(in.numExtents)
	if n < 0 || n > maxExtents {
		return nil, corruptf("numextents out of range: %d", n)
	}

	var out []extentDescriptor

	switch {
	case n <= maxDirectExtents:
		out = make([]extentDescriptor, n)
		for i := 0; i < n; i++ {
			out[i] = in.directExtent(i)
		}

	default:
		first := in.directExtent(0)
		numIndirect := int(first.offset)
		if numIndirect > maxDirectExtents {
			return nil, corruptf("indirect pointer count %d exceeds %d", numIndirect, maxDirectExtents)
		}

		var totalBBs int32
		for i := 0; i < numIndirect; i++ {
			totalBBs += in.directExtent(i).length
		}
		if totalBBs > maxIndirectBBs {
			return nil, corruptf("indirect block count %d exceeds %d", totalBBs, maxIndirectBBs)
		}

		scratch := make([]byte, int64(totalBBs)*blockSize)
		cursor := int64(0)
		for i := 0; i < numIndirect; i++ {
			ptr := in.directExtent(i)
			nbytes := int64(ptr.length) * blockSize
			if _, err := b.ReadAt(scratch[cursor:cursor+nbytes], int64(ptr.bn)*blockSize); err != nil {
				return nil, ErrReadFailure
			}
			cursor += nbytes
		}

		out = make([]extentDescriptor, n)
		for i := 0; i < n; i++ {
			out[i] = decodeExtent(scratch[i*8 : i*8+8])
		}
	}

	for i := 1; i < len(out); i++ {
		if out[i].offset <= out[i-1].offset {
			return nil, corruptf("extent list not strictly ascending at index %d", i)
		}
	}

	return &extentMap{extents: out}, nil
}

// find returns the extent covering file-relative byte position pos, or nil
// if none does.
func (m *extentMap) find(pos int64) *extentDescriptor {
	for i := range m.extents {
		e := &m.extents[i]
		start := int64(e.offset) * blockSize
		end := int64(e.offset+e.length) * blockSize
		if pos >= start && pos < end {
			return e
		}
	}
	return nil
}
