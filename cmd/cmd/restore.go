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
	"bufio"
	"errors"
	"io"
	"math"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/fs"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/ostafen/raidrescue/pkg/util/format"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const outputBufferSize = 4 << 20

func DefineRestoreCommand(cfg *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore [image]...",
		Short: "Rebuild the virtual disk of an array",
		Long: `The 'restore' command writes the data pages of every stripe, in order, skipping
parity. Images are given in logical order, or their order is detected with
--detect-order, or the array is described by a geometry file (--geometry).
An output path ending in .zst is compressed with zstd; "-" writes to stdout.`,
		SilenceUsage: true,
		RunE:         run(cfg, RunRestore),
	}

	addPageSizeFlag(cmd.Flags())
	addLayoutFlag(cmd.Flags())
	cmd.Flags().StringP("output", "o", "", "output file, or - for stdout")
	cmd.Flags().StringP("geometry", "g", "", "geometry description of the array")
	cmd.Flags().Bool("detect-order", false, "detect the logical order of the images")
	cmd.Flags().Float64("min-confidence", raid.DefaultMinConfidence, "order detection: fraction of the votes each image must give to its index")
	cmd.Flags().String("on-error", raid.Abort.String(), "what to do with unreadable pages: abort or fill")
	cmd.Flags().Uint8("fill-byte", 0, "byte written in place of unreadable pages when --on-error=fill")
	return cmd
}

func RunRestore(cmd *cobra.Command, s *session, args []string) error {
	output := s.cfg.GetString("output")
	if output == "" {
		return errs.Configf("--output is required")
	}
	policy, err := raid.ParseErrorPolicy(s.cfg.GetString("on-error"))
	if err != nil {
		return err
	}
	fillByte, err := s.fillByte()
	if err != nil {
		return err
	}

	disk, vol, err := openVirtualDisk(cmd, s, args, fs.Sequential)
	if err != nil {
		return err
	}
	defer vol.Close()
	reportPartitions(s, disk)

	s.console.Infof("Restoring %s (%d stripes of %d disks) to %s",
		format.FormatBytes(disk.Size()), disk.Stripes(), disk.Array().Disks, output)

	w, closeOutput, err := createOutput(cmd, output, s.workers)
	if err != nil {
		return err
	}

	bar := s.progressBar("restoring", disk.Size(), true)
	report, err := disk.Reconstruct(cmd.Context(), w, raid.ReconstructOptions{
		OnError:  policy,
		FillByte: fillByte,
		Progress: bar.Update,
		Logger:   s.log,
	})
	bar.Finish()

	if cerr := closeOutput(); err == nil {
		err = cerr
	}
	if err != nil {
		if output != "-" {
			if rerr := os.Remove(output); rerr == nil {
				s.console.Warnf("Removed incomplete output %s", output)
			} else {
				s.console.Warnf("Output %s is incomplete: %v", output, rerr)
			}
		}
		return err
	}

	for _, pe := range report.Errors {
		s.console.Warnf("filled unreadable region: %v", pe)
	}
	if report.ErrorCount > int64(len(report.Errors)) {
		s.console.Warnf("... and %d more unreadable regions", report.ErrorCount-int64(len(report.Errors)))
	}
	s.console.Infof("Restored %s", format.FormatBytes(report.Bytes))
	return nil
}

// fillByte reads --fill-byte, which may also come from the environment or
// the configuration file and is therefore range-checked here.
func (s *session) fillByte() (byte, error) {
	v := s.cfg.GetInt("fill-byte")
	if v < 0 || v > math.MaxUint8 {
		return 0, errs.Configf("--fill-byte must be between 0 and 255, got %d", v)
	}
	return byte(v), nil
}

// createOutput opens the destination of the restore. The returned function
// flushes and closes it.
func createOutput(cmd *cobra.Command, path string, workers int) (io.Writer, func() error, error) {
	var (
		sink   io.Writer
		closer io.Closer
	)

	if path == "-" {
		sink = cmd.OutOrStdout()
	} else {
		f, err := os.Create(path)
		if err != nil {
			return nil, nil, errs.IO(err, "unable to create %s", path)
		}
		sink, closer = f, f
	}

	bw := bufio.NewWriterSize(sink, outputBufferSize)
	var w io.Writer = bw
	var enc *zstd.Encoder

	if strings.HasSuffix(path, ".zst") {
		var err error
		enc, err = zstd.NewWriter(bw,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(workers),
		)
		if err != nil {
			if closer != nil {
				closer.Close()
			}
			return nil, nil, err
		}
		w = enc
	}

	return w, func() error {
		var err error
		if enc != nil {
			err = enc.Close()
		}
		err = errors.Join(err, bw.Flush())
		if closer != nil {
			err = errors.Join(err, closer.Close())
		}
		if err != nil {
			return errs.IO(err, "unable to finish writing %s", path)
		}
		return nil
	}, nil
}
