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
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/ostafen/raidrescue/internal/fs"
	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/ostafen/raidrescue/pkg/util/format"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func DefinePageSizeCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagesize <image>...",
		Short: "Detect the page (chunk) size of an array from one of its disks",
		Long: `The 'pagesize' command scores fixed-size blocks of an image by the number of
distinct byte values they contain, and looks for the page size at which one block
in every N (the parity page) stands out. Point it at a region holding text data.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run(cfg, RunPageSize),
	}

	cmd.Flags().IntP("disks", "n", 0, "number of disks in the array")
	cmd.Flags().Var(&sizeValue{size: raid.DefaultMaxBytes}, "max-bytes", "maximum number of bytes examined")
	cmd.Flags().Var(&sizeValue{}, "offset", "offset of the examined region")
	cmd.Flags().Var(&sizesValue{}, "candidates", "comma separated page sizes to try (default: 64KiB to 1GiB)")
	return cmd
}

func RunPageSize(cmd *cobra.Command, s *session, args []string) error {
	disks, err := s.disks()
	if err != nil {
		return err
	}

	maxBytes, err := format.ParseBytes(s.cfg.GetString("max-bytes"))
	if err != nil {
		return err
	}
	offset, err := format.ParseBytes(s.cfg.GetString("offset"))
	if err != nil {
		return err
	}
	candidates, err := parseSizes(s.cfg.GetString("candidates"))
	if err != nil {
		return err
	}

	files, err := s.openImages(args, fs.Sequential)
	if err != nil {
		return err
	}
	defer image.CloseAll(files)

	var verdicts []error
	for _, f := range files {
		s.console.Infof("Detecting page size of %s...", f.Name())

		report, err := raid.DetectPageSize(cmd.Context(), f, f.Size, raid.PageSizeOptions{
			Disks:      disks,
			Candidates: candidates,
			Offset:     offset,
			MaxBytes:   maxBytes,
			Workers:    s.workers,
			Logger:     s.log.With("image", f.Path),
		})
		if err != nil {
			return err
		}
		printPageSizeReport(s, f, report)

		if err := report.Verdict(); err != nil {
			s.console.Warnf("%s: %v", f.Name(), err)
			verdicts = append(verdicts, fmt.Errorf("%s: %w", f.Name(), err))
			continue
		}

		best, _ := report.Best()
		s.console.Infof("%s: page size is %s", f.Name(), format.FormatBytes(best.PageSize))
	}
	return errors.Join(verdicts...)
}

func printPageSizeReport(s *session, f *image.File, report *raid.PageSizeReport) {
	fmt.Fprintf(s.out, "%s: %s examined from offset %d\n", f.Name(), format.FormatBytes(report.Bytes), report.Offset)

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPAGE SIZE\tBLOCKS\tGAP\tPARITY\tDATA\tCONSISTENCY\tPHASE")
	for i, c := range report.Candidates {
		if !c.Evaluated() {
			s.console.Debugf("%s skipped: %s", format.FormatBytes(c.PageSize), c.Skipped)
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.1f\t%.1f\t%.1f\t%.0f%%\t%d\n",
			i+1, format.FormatBytes(c.PageSize), c.Blocks, c.Gap, c.ParityMean, c.DataMean, 100*c.Consistency, c.Phase)
	}
	tw.Flush()
}
