// Package image ties together the volume header, partition dispatch, and
// filesystem opening into the single convenience entry point a consumer
// (the CLI, or an embedder) actually wants: open a path, get back a
// filesystem to read from, without juggling ByteSlice/VolumeHeader/
// Superblock wiring by hand. This is the Go analogue of the reference's
// "easy-open" combinator.
package image

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	diskfsfs "github.com/diskfs/go-diskfs/filesystem"
	diskfsiso "github.com/diskfs/go-diskfs/filesystem/iso9660"

	"github.com/sgivol/efsx/backend"
	bfile "github.com/sgivol/efsx/backend/file"
	"github.com/sgivol/efsx/dvh"
	"github.com/sgivol/efsx/filesystem/efs"
)

// Image owns the underlying backend and, when present, the decoded volume
// header. Open exclusively owns both and releases them on Close.
type Image struct {
	backend backend.Storage
	header  *dvh.Header // nil when the image is a bare ISO9660 source
	tmpPath string      // set when a .xz source was spooled to a temp file
}

// Open opens path, transparently decompressing a .xz-compressed source into
// a spooled temp file first, then reads the volume header. If no DVH magic
// is present but an ISO9660 signature is found at 0x8000, Open succeeds with
// a nil header; callers should use OpenISO9660 in that case.
func Open(path string) (*Image, error) {
	realPath := path
	var tmpPath string
	if strings.HasSuffix(strings.ToLower(path), ".xz") {
		spooled, err := spoolDecompressed(path)
		if err != nil {
			return nil, err
		}
		realPath = spooled
		tmpPath = spooled
	}

	b, err := bfile.OpenFromPath(realPath)
	if err != nil {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
		return nil, err
	}

	img := &Image{backend: b, tmpPath: tmpPath}

	h, err := dvh.Read(b)
	switch {
	case err == nil:
		img.header = h
	case err == dvh.ErrIsISO9660:
		// no header; caller falls back to OpenISO9660
	default:
		img.Close()
		return nil, err
	}

	return img, nil
}

// Close releases the underlying backend and any spooled temp file.
func (img *Image) Close() error {
	err := img.backend.Close()
	if img.tmpPath != "" {
		os.Remove(img.tmpPath)
	}
	return err
}

// ReadBootfile loads the named bootfile i from the volume header.
func (img *Image) ReadBootfile(i int) ([]byte, error) {
	if img.header == nil {
		return nil, dvh.ErrNoVolumeHeader
	}
	return img.header.ReadBootfile(img.backend, i)
}

// HasVolumeHeader reports whether a valid DVH was found.
func (img *Image) HasVolumeHeader() bool { return img.header != nil }

// RawHeader reads back the raw 512-byte volume header block, for diagnostic
// hex-dump output. It does not require HasVolumeHeader to be true.
func (img *Image) RawHeader() ([]byte, error) {
	raw := make([]byte, dvh.HeaderSize)
	if _, err := img.backend.ReadAt(raw, 0); err != nil {
		return nil, fmt.Errorf("image: read volume header block: %w", err)
	}
	return raw, nil
}

// Header returns the decoded volume header, or nil if none was found.
func (img *Image) Header() *dvh.Header { return img.header }

// OpenPartition opens the EFS filesystem on partition i of the volume
// header. It returns a distinguished error if the partition is not typed
// EFS or SysV.
func (img *Image) OpenPartition(i int) (*efs.FileSystem, error) {
	if img.header == nil {
		return nil, dvh.ErrNoVolumeHeader
	}
	p := img.header.Partition(i)
	switch p.Type {
	case dvh.TypeEFS, dvh.TypeSysV:
	case dvh.TypeBSD:
		return nil, efs.ErrIsBSD
	case dvh.TypeXFS:
		return nil, efs.ErrIsXFS
	default:
		return nil, efs.ErrUnrecognisedPartitionType
	}

	slice, err := img.header.PartitionSlice(img.backend, i)
	if err != nil {
		return nil, err
	}
	return efs.Read(slice)
}

// OpenISO9660 delegates straight to the external go-diskfs ISO9660 reader,
// per the fallback path's explicit library delegation: no ISO9660 parsing
// logic is reimplemented in this module.
func (img *Image) OpenISO9660() (diskfsfs.FileSystem, error) {
	stat, err := img.backend.Stat()
	if err != nil {
		return nil, fmt.Errorf("image: stat backend: %w", err)
	}
	fsys, err := diskfsiso.Read(img.backend, stat.Size(), 0, 2048)
	if err != nil {
		return nil, fmt.Errorf("image: open iso9660 fallback: %w", err)
	}
	return fsys, nil
}

func spoolDecompressed(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("image: open %s: %w", path, err)
	}
	defer src.Close()

	xr, err := xz.NewReader(src)
	if err != nil {
		return "", fmt.Errorf("image: %s is not valid xz: %w", path, err)
	}

	tmp, err := os.CreateTemp("", "efsx-*.img")
	if err != nil {
		return "", fmt.Errorf("image: create temp file: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, xr); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("image: decompress %s: %w", path, err)
	}

	return tmp.Name(), nil
}
