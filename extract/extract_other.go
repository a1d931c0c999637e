//go:build windows
// +build windows

package extract

import (
	"fmt"

	"github.com/sgivol/efsx/filesystem/efs"
)

func mknod(destPath string, st efs.Stat) error {
	return fmt.Errorf("extract: device special files are not supported on this platform: %s", destPath)
}

func stashMetadata(destPath string, st efs.Stat) {
	// extended attributes have no equivalent on this platform; nothing to do.
}
