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
	"fmt"

	"github.com/ostafen/raidrescue/internal/fs"
	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func DefineRaidSetCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "raidset <image>...",
		Short: "Find the images forming a RAID5 array",
		Long: `The 'raidset' command tries every combination of N images and reports the ones
whose pages XOR to zero. By default it stops at the first combination found;
use --all to report every array sharing the image pool.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run(cfg, RunRaidSet),
	}

	cmd.Flags().IntP("disks", "n", 0, "number of disks in the array")
	addPageSizeFlag(cmd.Flags())
	cmd.Flags().BoolP("all", "a", false, "test every combination and report all the arrays found")
	return cmd
}

func RunRaidSet(cmd *cobra.Command, s *session, args []string) error {
	disks, err := s.disks()
	if err != nil {
		return err
	}
	pageSize, err := s.pageSize()
	if err != nil {
		return err
	}

	files, err := s.openImages(args, fs.Random)
	if err != nil {
		return err
	}
	defer image.CloseAll(files)

	report, err := raid.Identify(cmd.Context(), files, raid.IdentifyOptions{
		Array:   raid.Array{Disks: disks, PageSize: pageSize},
		Ranges:  s.ranges,
		TestAll: s.cfg.GetBool("all"),
		Workers: s.workers,
		Logger:  s.log,
	})
	if err != nil {
		return err
	}

	s.console.Infof("Tested %d of %d combinations (%d inconclusive) on pages %s",
		report.Tested, report.Combinations, report.Inconclusive, report.Pages)

	if err := report.Verdict(); err != nil {
		return err
	}
	for i, set := range report.Sets {
		fmt.Fprintf(s.out, "raid set %d: %s\n", i+1, set)
		for _, f := range set.Files {
			fmt.Fprintf(s.out, "  %s\n", f.Path)
		}
	}
	return nil
}
