// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package cmd

import (
	"path/filepath"
	"strings"

	"github.com/ostafen/raidrescue/internal/fs"
	"github.com/ostafen/raidrescue/internal/fuse"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/ostafen/raidrescue/pkg/util/format"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func DefineMountCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount [image]...",
		Short: "Expose the virtual disk of an array as a read-only file",
		Long: `The 'mount' command serves the reconstructed disk as a single read-only file
inside a FUSE mountpoint, reading pages from the images on demand. The array is
described by a geometry file (--geometry) or by images given in logical order.`,
		SilenceUsage: true,
		RunE:         run(cfg, RunMount),
	}

	addPageSizeFlag(cmd.Flags())
	addLayoutFlag(cmd.Flags())
	cmd.Flags().StringP("geometry", "g", "", "geometry description of the array")
	cmd.Flags().Bool("detect-order", false, "detect the logical order of the images")
	cmd.Flags().Float64("min-confidence", raid.DefaultMinConfidence, "order detection: fraction of the votes each image must give to its index")
	cmd.Flags().StringP("mountpoint", "m", "", "Absolute path to the directory where the filesystem will be mounted. If not specified, a default will be generated.")
	cmd.Flags().String("name", fuse.DefaultName, "name of the file exposing the virtual disk")
	return cmd
}

func RunMount(cmd *cobra.Command, s *session, args []string) error {
	disk, vol, err := openVirtualDisk(cmd, s, args, fs.Random)
	if err != nil {
		return err
	}
	defer vol.Close()
	reportPartitions(s, disk)

	mountpoint := s.cfg.GetString("mountpoint")
	if mountpoint == "" {
		mountpoint = getMountpoint(s.cfg.GetString("geometry"))
	}

	s.console.Infof("Virtual disk: %s, %d stripes of %d disks, %s layout",
		format.FormatBytes(disk.Size()), disk.Stripes(), disk.Array().Disks, disk.Layout())
	return fuse.Mount(mountpoint, s.cfg.GetString("name"), disk, disk.Size(), s.console)
}

// getMountpoint generates a mountpoint name from a geometry file name by stripping the extension.
// If the extension is empty, "_mnt" is added.
func getMountpoint(geometryFile string) string {
	if geometryFile == "" {
		return AppName + "_mnt"
	}

	baseName := filepath.Base(geometryFile)
	ext := filepath.Ext(baseName)
	mountpoint := strings.TrimSuffix(baseName, ext)
	if ext == "" {
		mountpoint += "_mnt"
	}
	return mountpoint
}
