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
	"io"
	"os"
	"text/tabwriter"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/fs"
	"github.com/ostafen/raidrescue/internal/geometry"
	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func DefineOrderCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order <image>...",
		Short: "Detect the logical order of the disks of an array",
		Long: `The 'order' command finds, for each examined stripe, the image holding the parity
page (the highest scoring one) and derives the logical index of every image from
the parity layout. The detected order can be saved as a geometry description.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run(cfg, RunOrder),
	}

	addPageSizeFlag(cmd.Flags())
	addLayoutFlag(cmd.Flags())
	cmd.Flags().Float64("min-confidence", raid.DefaultMinConfidence, "fraction of the votes each image must give to its index")
	cmd.Flags().StringP("geometry-out", "o", "", "write the detected order as a geometry description to this file")
	return cmd
}

func RunOrder(cmd *cobra.Command, s *session, args []string) error {
	pageSize, err := s.pageSize()
	if err != nil {
		return err
	}
	layout, err := s.layout()
	if err != nil {
		return err
	}

	files, err := s.openImages(args, fs.Random)
	if err != nil {
		return err
	}
	defer image.CloseAll(files)

	report, err := detectOrder(cmd, s, s.out, files, pageSize, layout)
	if err != nil {
		return err
	}

	ordered := report.Ordered()
	for i, f := range ordered {
		fmt.Fprintf(s.out, "disk %d: %s\n", i, f.Path)
	}

	out := s.cfg.GetString("geometry-out")
	if out == "" {
		return nil
	}
	return writeGeometry(out, ordered, pageSize)
}

// detectOrder runs the order detection and prints the votes to w. An
// inconclusive detection is returned as an error.
func detectOrder(cmd *cobra.Command, s *session, w io.Writer, files []*image.File, pageSize int64, layout raid.Layout) (*raid.OrderReport, error) {
	s.console.Infof("Detecting the order of %s (%s layout)...", image.Describe(files), layout)

	report, err := raid.DetectOrder(cmd.Context(), files, raid.OrderOptions{
		PageSize:      pageSize,
		Layout:        layout,
		Ranges:        s.ranges,
		MinConfidence: s.cfg.GetFloat64("min-confidence"),
		Logger:        s.log,
	})
	if err != nil {
		return nil, err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE\tINDEX\tCONFIDENCE\tVOTES")
	for _, v := range report.Files {
		fmt.Fprintf(tw, "%s\t%d\t%.0f%%\t%v\n", v.File.Name(), v.Index, 100*v.Confidence, v.Votes)
	}
	tw.Flush()

	s.console.Infof("%d stripes examined, %d without a clear parity page", report.Stripes, report.Weak)
	if err := report.Verdict(); err != nil {
		return nil, err
	}
	return report, nil
}

func writeGeometry(path string, ordered []*image.File, pageSize int64) error {
	paths := make([]string, len(ordered))
	sizes := make([]int64, len(ordered))
	order := make([]int, len(ordered))
	for i, f := range ordered {
		paths[i], sizes[i], order[i] = f.Path, f.Size, i
	}

	table, err := geometry.FromOrder(paths, sizes, order, pageSize)
	if err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return errs.IO(err, "unable to create %s", path)
	}
	if _, err := table.WriteTo(out); err != nil {
		out.Close()
		return errs.IO(err, "unable to write %s", path)
	}
	return out.Close()
}
