//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package extract

import (
	"strconv"

	"github.com/pkg/xattr"
	"golang.org/x/sys/unix"

	"github.com/sgivol/efsx/filesystem/efs"
)

// mknod creates a character, block, or FIFO special file matching st, via a
// real mknod(2) call.
func mknod(destPath string, st efs.Stat) error {
	var typeBits uint32
	switch st.Mode & 0170000 {
	case 0020000:
		typeBits = unix.S_IFCHR
	case 0060000:
		typeBits = unix.S_IFBLK
	case 0010000:
		typeBits = unix.S_IFIFO
	}
	mode := typeBits | uint32(st.Mode&0o7777)
	dev := int(unix.Mkdev(st.Major, st.Minor))
	return unix.Mknod(destPath, mode, dev)
}

// stashMetadata best-effort preserves EFS-specific metadata that has no
// native POSIX chmod/chown/chtimes equivalent: the inode generation number
// and the raw on-disk mode word, so a later re-extraction can detect
// staleness without re-reading the source image.
func stashMetadata(destPath string, st efs.Stat) {
	_ = xattr.Set(destPath, "user.sgi.mode", []byte(strconv.FormatUint(uint64(st.Mode), 8)))
	_ = xattr.Set(destPath, "user.sgi.gen", []byte(strconv.FormatUint(uint64(st.Gen), 10)))
}
