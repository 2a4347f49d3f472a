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
	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/fs"
	"github.com/ostafen/raidrescue/internal/geometry"
	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/partition"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/ostafen/raidrescue/pkg/util/format"
	"github.com/spf13/cobra"
)

// openVirtualDisk assembles the array either from a geometry description or
// from images given in logical order (optionally detecting that order).
func openVirtualDisk(cmd *cobra.Command, s *session, args []string, pattern fs.AccessPattern) (*raid.VirtualDisk, *geometry.Volume, error) {
	pageSize, err := s.pageSize()
	if err != nil {
		return nil, nil, err
	}
	layout, err := s.layout()
	if err != nil {
		return nil, nil, err
	}

	vol, err := openVolume(cmd, s, args, pageSize, layout, pattern)
	if err != nil {
		return nil, nil, err
	}

	disk, err := raid.NewVirtualDisk(vol, raid.VirtualDiskOptions{PageSize: pageSize, Layout: layout})
	if err != nil {
		vol.Close()
		return nil, nil, err
	}
	return disk, vol, nil
}

func openVolume(cmd *cobra.Command, s *session, args []string, pageSize int64, layout raid.Layout, pattern fs.AccessPattern) (*geometry.Volume, error) {
	opts := s.images
	opts.Pattern = pattern

	if path := s.cfg.GetString("geometry"); path != "" {
		if len(args) > 0 {
			return nil, errs.Configf("images and --geometry are mutually exclusive")
		}

		table, err := geometry.Load(path)
		if err != nil {
			return nil, err
		}
		s.log.Debug("geometry loaded", "path", path, "disks", table.Disks(), "entries", len(table.Entries()))
		return geometry.Open(table, opts)
	}

	if len(args) == 0 {
		return nil, errs.Configf("either images or --geometry must be given")
	}

	files, err := s.openImages(args, pattern)
	if err != nil {
		return nil, err
	}

	if s.cfg.GetBool("detect-order") {
		// stdout may carry the restored image
		report, err := detectOrder(cmd, s, cmd.ErrOrStderr(), files, pageSize, layout)
		if err != nil {
			image.CloseAll(files)
			return nil, err
		}
		files = report.Ordered()
	}

	paths := make([]string, len(files))
	sizes := make([]int64, len(files))
	order := make([]int, len(files))
	for i, f := range files {
		paths[i], sizes[i], order[i] = f.Path, f.Size, i
	}

	table, err := geometry.FromOrder(paths, sizes, order, pageSize)
	if err != nil {
		image.CloseAll(files)
		return nil, err
	}

	vol, err := geometry.Adopt(table, files)
	if err != nil {
		image.CloseAll(files)
		return nil, err
	}
	return vol, nil
}

// reportPartitions looks for a partition table on the assembled disk: a table
// whose partitions fit in the disk suggests the geometry is right.
func reportPartitions(s *session, disk *raid.VirtualDisk) {
	table, err := partition.Probe(disk, disk.Size())
	if err != nil {
		s.console.Warnf("Unable to probe the partition table: %v", err)
		return
	}

	switch {
	case table.Scheme == partition.SchemeNone:
		s.console.Info("No partition table found on the virtual disk")
	case !table.Consistent():
		s.console.Warnf("Found %s: check page size, order and layout", table)
	default:
		s.console.Infof("Found %s", table)
	}

	for _, p := range table.Partitions {
		s.console.Debugf("  partition %d: %s at offset %d, %s", p.Num, p.Type, p.Offset, format.FormatBytes(p.Size))
	}
}
