// Command efsx reads an SGI DVH/EFS disk image: it can list the volume
// header's partitions and named bootfiles, extract the EFS tree to a local
// directory or a ustar archive, extract named bootfiles, and scan for IRIX
// product descriptor files.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	diskfsfs "github.com/diskfs/go-diskfs/filesystem"

	"github.com/sgivol/efsx/archive/ustar"
	"github.com/sgivol/efsx/extract"
	"github.com/sgivol/efsx/filesystem/efs"
	"github.com/sgivol/efsx/image"
	"github.com/sgivol/efsx/util"
)

var version = "dev"

type options struct {
	listOnly    bool
	listParts   bool
	outputPath  string
	partition   int
	quiet       bool
	showVersion bool
	scan        bool
	extractBoot bool
	dumpHeader  bool
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:   "efsx IMAGE",
		Short: "read SGI DVH/EFS disk images",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Println("efsx", version)
				return nil
			}
			if len(args) != 1 {
				return cmd.Usage()
			}
			if opts.quiet {
				logrus.SetLevel(logrus.WarnLevel)
			}
			return run(args[0], opts)
		},
	}

	root.Flags().BoolVarP(&opts.listOnly, "list", "l", false, "list files, do not extract")
	root.Flags().BoolVarP(&opts.listParts, "partitions", "L", false, "list partitions and bootfiles from the volume header")
	root.Flags().StringVarP(&opts.outputPath, "output", "o", "", "write a ustar archive to PATH instead of extracting to a directory")
	root.Flags().IntVarP(&opts.partition, "partition", "p", 7, "partition number to read")
	root.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress informational logging")
	root.Flags().BoolVarP(&opts.showVersion, "version", "V", false, "print version and exit")
	root.Flags().BoolVarP(&opts.scan, "scan", "W", false, "scan for IRIX product descriptor files")
	root.Flags().BoolVarP(&opts.extractBoot, "bootfiles", "X", false, "extract named bootfiles from the volume header instead of the partition contents")
	root.Flags().BoolVarP(&opts.dumpHeader, "dump-header", "D", false, "hex-dump the raw 512-byte volume header block and exit")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "efsx:", err)
		os.Exit(1)
	}
}

func run(path string, opts options) error {
	img, err := image.Open(path)
	if err != nil {
		return err
	}
	defer img.Close()

	switch {
	case opts.dumpHeader:
		return dumpHeader(img)
	case opts.listParts:
		return listPartitions(img)
	case opts.extractBoot:
		return extractBootfiles(img, opts.outputPath)
	}

	if !img.HasVolumeHeader() {
		isoFS, err := img.OpenISO9660()
		if err != nil {
			return err
		}
		return extractISO9660(isoFS, opts)
	}

	fsys, err := img.OpenPartition(opts.partition)
	if err != nil {
		return err
	}

	if opts.scan {
		return scanProductDescriptors(fsys)
	}
	if opts.listOnly {
		return listTree(fsys)
	}
	if opts.outputPath != "" {
		return emitTar(fsys, opts.outputPath)
	}
	return extract.Tree(fsys, "", ".", extract.Options{})
}

func dumpHeader(img *image.Image) error {
	raw, err := img.RawHeader()
	if err != nil {
		return err
	}
	fmt.Print(util.DumpByteSlice(raw, 16, true, true, false, nil))
	return nil
}

func listPartitions(img *image.Image) error {
	h := img.Header()
	if h == nil {
		return fmt.Errorf("efsx: no volume header present")
	}
	fmt.Println("partitions:")
	for i := 0; i < 16; i++ {
		p := h.Partition(i)
		if p.NumBlocks == 0 {
			continue
		}
		fmt.Printf("  %2d  %-8s  blocks=%-10d first=%d\n", i, p.Type, p.NumBlocks, p.FirstLBN)
	}
	fmt.Println("bootfiles:")
	for i := 0; i < 15; i++ {
		b := h.Bootfile(i)
		if b.NBytes == 0 {
			continue
		}
		fmt.Printf("  %2d  %-16s  bytes=%d\n", i, b.Name, b.NBytes)
	}
	return nil
}

func extractBootfiles(img *image.Image, destDir string) error {
	h := img.Header()
	if h == nil {
		return fmt.Errorf("efsx: no volume header present")
	}
	if destDir == "" {
		destDir = "."
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	for i := 0; i < 15; i++ {
		b := h.Bootfile(i)
		if b.NBytes == 0 {
			continue
		}
		data, err := img.ReadBootfile(i)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(destDir, b.Name), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func listTree(fsys *efs.FileSystem) error {
	return fsys.Walk("", func(path string, st efs.Stat) error {
		fmt.Println(path)
		return nil
	})
}

func emitTar(fsys *efs.FileSystem, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	tw := ustar.NewWriter(out)
	defer tw.Close()

	err = fsys.Walk("", func(path string, st efs.Stat) error {
		hdr := &ustar.Header{
			Name:     path,
			Mode:     uint32(st.Mode & 0o7777),
			UID:      int(st.UID),
			GID:      int(st.GID),
			Size:     st.Size,
			Mtime:    st.Mtime.Unix(),
			Typeflag: ustar.ModeFor(uint32(st.Mode)),
			Devmajor: st.Major,
			Devminor: st.Minor,
		}
		if hdr.Typeflag == ustar.TypeSymlink {
			link, err := fsys.ReadLink(path)
			if err != nil {
				return err
			}
			hdr.Linkname = link
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if hdr.Typeflag == ustar.TypeRegular {
			f, err := fsys.OpenFile(path, os.O_RDONLY)
			if err != nil {
				return err
			}
			defer f.Close()
			buf := make([]byte, 64*1024)
			for {
				n, rerr := f.Read(buf)
				if n > 0 {
					if _, werr := tw.Write(buf[:n]); werr != nil {
						return werr
					}
				}
				if rerr != nil {
					break
				}
			}
		}
		return nil
	})
	return err
}

// extractISO9660 lists or extracts the ISO9660 fallback filesystem, reusing
// the external reader's own FileSystem interface directly rather than
// forcing it through this module's read-only filesystem.FileSystem shape.
func extractISO9660(fsys diskfsfs.FileSystem, opts options) error {
	if opts.outputPath != "" {
		return fmt.Errorf("efsx: ustar output is not supported for the ISO9660 fallback path")
	}
	return walkISO9660(fsys, "", opts)
}

func walkISO9660(fsys diskfsfs.FileSystem, dir string, opts options) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		fmt.Println(p)
		if opts.listOnly {
			if e.IsDir() {
				if err := walkISO9660(fsys, p, opts); err != nil {
					return err
				}
			}
			continue
		}
		if e.IsDir() {
			if err := os.MkdirAll(p, 0o755); err != nil {
				return err
			}
			if err := walkISO9660(fsys, p, opts); err != nil {
				return err
			}
			continue
		}
		if err := copyISO9660File(fsys, p); err != nil {
			return err
		}
	}
	return nil
}

func copyISO9660File(fsys diskfsfs.FileSystem, p string) error {
	in, err := fsys.OpenFile(p, os.O_RDONLY)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	buf := make([]byte, 64*1024)
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if rerr != nil {
			break
		}
	}
	return nil
}

// scanProductDescriptors walks the tree for IRIX .idb/.spec product
// descriptor files, supplementing the distilled feature set with the
// reference CLI's -W behaviour.
func scanProductDescriptors(fsys *efs.FileSystem) error {
	return fsys.Walk("", func(path string, st efs.Stat) error {
		if st.Mode&0170000 != 0100000 {
			return nil
		}
		if strings.HasSuffix(path, ".idb") || strings.HasSuffix(path, ".spec") {
			fmt.Printf("%-40s %d bytes\n", path, st.Size)
		}
		return nil
	})
}
