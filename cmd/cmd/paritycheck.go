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

func DefineParityCheckCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paritycheck <image>...",
		Short: "Check the parity of a whole array",
		Long: `The 'paritycheck' command XORs every page of the given images and lists the
pages where the result is not zero. The order of the images does not matter.`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run(cfg, RunParityCheck),
	}

	addPageSizeFlag(cmd.Flags())
	cmd.Flags().Int("max-failures", raid.DefaultMaxFailures, "maximum number of failing pages listed (-1 for no limit)")
	return cmd
}

func RunParityCheck(cmd *cobra.Command, s *session, args []string) error {
	pageSize, err := s.pageSize()
	if err != nil {
		return err
	}

	files, err := s.openImages(args, fs.Sequential)
	if err != nil {
		return err
	}
	defer image.CloseAll(files)

	total := s.ranges.Clip(image.MinSize(files) / pageSize).Count()
	bar := s.progressBar("checking parity", total, false)
	report, err := raid.Validate(cmd.Context(), files, raid.ValidateOptions{
		PageSize:    pageSize,
		Ranges:      s.ranges,
		MaxFailures: s.cfg.GetInt("max-failures"),
		Progress:    bar.Update,
		Logger:      s.log,
	})
	bar.Finish()
	if err != nil {
		return err
	}

	for _, page := range report.Failures {
		fmt.Fprintf(s.out, "page %d: parity mismatch\n", page)
	}
	if report.Truncated() {
		fmt.Fprintf(s.out, "... %d more\n", report.FailureCount-int64(len(report.Failures)))
	}

	s.console.Infof("%d pages checked, %d all-zero, %d failing", report.Pages, report.Zero, report.FailureCount)
	if err := report.Verdict(); err != nil {
		return err
	}
	s.console.Info("Parity OK")
	return nil
}
