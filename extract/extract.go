// Package extract reconstructs an EFS directory tree onto the local
// filesystem, the mirror image of go-diskfs's sync.CopyFileSystem: there the
// source is a writable fs.FS and the destination a filesystem.FileSystem;
// here the source is our read-only efs.FileSystem and the destination is the
// real local OS filesystem, so regular files, directories, symlinks and
// device nodes are reconstructed with native system calls.
package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	times "gopkg.in/djherbis/times.v1"

	"github.com/sgivol/efsx/filesystem/efs"
)

// Options controls the extraction walk.
type Options struct {
	// Logger receives a line for every file reconstructed. Defaults to
	// logrus's standard logger when nil.
	Logger logrus.FieldLogger
	// PreserveOwnership attempts os.Chown on every entry; best effort.
	PreserveOwnership bool
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// Tree extracts the directory tree rooted at srcPath within fsys into
// destDir on the local filesystem, creating destDir if necessary.
func Tree(fsys *efs.FileSystem, srcPath, destDir string, opts Options) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("extract: create destination %s: %w", destDir, err)
	}

	return fsys.Walk(srcPath, func(path string, st efs.Stat) error {
		destPath := filepath.Join(destDir, path)
		mode := os.FileMode(st.Mode & 0o7777)

		switch {
		case st.Mode&0170000 == 0040000: // directory
			if err := os.MkdirAll(destPath, mode|0o700); err != nil {
				return fmt.Errorf("extract: mkdir %s: %w", destPath, err)
			}

		case st.Mode&0170000 == 0120000: // symlink
			target, err := fsys.ReadLink(path)
			if err != nil {
				return fmt.Errorf("extract: read symlink %s: %w", path, err)
			}
			_ = os.Remove(destPath)
			if err := os.Symlink(target, destPath); err != nil {
				return fmt.Errorf("extract: symlink %s -> %s: %w", destPath, target, err)
			}

		case st.Mode&0170000 == 0020000 || st.Mode&0170000 == 0060000 || st.Mode&0170000 == 0010000:
			if err := mknod(destPath, st); err != nil {
				return fmt.Errorf("extract: mknod %s: %w", destPath, err)
			}

		default: // regular file
			if err := extractRegular(fsys, path, destPath, mode); err != nil {
				return fmt.Errorf("extract: %s: %w", path, err)
			}
		}

		if err := os.Chmod(destPath, mode); err != nil {
			opts.logger().Warnf("extract: chmod %s: %v", destPath, err)
		}
		if opts.PreserveOwnership {
			if err := os.Chown(destPath, int(st.UID), int(st.GID)); err != nil {
				opts.logger().Warnf("extract: chown %s: %v", destPath, err)
			}
		}
		if err := os.Chtimes(destPath, st.Atime, st.Mtime); err != nil {
			opts.logger().Warnf("extract: chtimes %s: %v", destPath, err)
		}
		verifyTimes(destPath, st, opts.logger())

		stashMetadata(destPath, st)

		opts.logger().Debugf("extract: wrote %s", destPath)
		return nil
	})
}

// verifyTimes reads back the timestamps the platform actually recorded
// after Chtimes and logs a warning if mtime didn't stick, catching
// filesystems (FAT, some network mounts) that silently round or drop it.
func verifyTimes(destPath string, st efs.Stat, log logrus.FieldLogger) {
	ts, err := times.Stat(destPath)
	if err != nil {
		log.Debugf("extract: times.Stat %s: %v", destPath, err)
		return
	}
	if !ts.ModTime().Equal(st.Mtime) {
		log.Warnf("extract: %s mtime round-trip mismatch: wrote %s, read back %s", destPath, st.Mtime, ts.ModTime())
	}
}

func extractRegular(fsys *efs.FileSystem, srcPath, destPath string, mode os.FileMode) error {
	in, err := fsys.OpenFile(srcPath, os.O_RDONLY)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode|0o200)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return nil
}
