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
package raid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/ostafen/raidrescue/internal/errs"
)

// ErrorPolicy selects what reconstruction does with a page it cannot read.
type ErrorPolicy int

const (
	// Abort stops at the first failure.
	Abort ErrorPolicy = iota
	// Fill writes the fill byte in place of the unreadable bytes and goes on.
	Fill
)

func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "abort":
		return Abort, nil
	case "fill":
		return Fill, nil
	}
	return 0, errs.Configf("unknown error policy %q (valid: abort, fill)", s)
}

func (p ErrorPolicy) String() string {
	if p == Fill {
		return "fill"
	}
	return "abort"
}

const DefaultMaxErrors = 100

type ReconstructOptions struct {
	OnError  ErrorPolicy
	FillByte byte
	// MaxErrors caps the failures listed in the report. Zero selects
	// DefaultMaxErrors.
	MaxErrors int
	// Progress, if set, is called after every page with the bytes written so
	// far and the total.
	Progress func(done, total int64)
	Logger   *slog.Logger
}

type ReconstructReport struct {
	Bytes   int64
	Stripes int64
	// Errors lists the first unreadable regions, filled when the policy is Fill.
	Errors     []*PageError
	ErrorCount int64
}

// Reconstruct writes the whole virtual disk to w: for every stripe, the data
// pages in slot order, skipping parity. The output is identical to reading
// the disk from 0 to Size.
func (d *VirtualDisk) Reconstruct(ctx context.Context, w io.Writer, opts ReconstructOptions) (*ReconstructReport, error) {
	maxErrors := opts.MaxErrors
	if maxErrors <= 0 {
		maxErrors = DefaultMaxErrors
	}
	logger := loggerOrDiscard(opts.Logger)

	report := &ReconstructReport{}
	buf := make([]byte, min(d.array.PageSize, chunkSize))
	dataPages := int64(d.array.Disks - 1)

	for stripe := range d.stripes {
		for slot := range dataPages {
			pageOff := (stripe*dataPages + slot) * d.array.PageSize

			for inPage := int64(0); inPage < d.array.PageSize; inPage += int64(len(buf)) {
				if err := ctx.Err(); err != nil {
					return report, err
				}

				chunk := buf[:min(int64(len(buf)), d.array.PageSize-inPage)]
				if err := d.readData(chunk, pageOff+inPage); err != nil {
					var pe *PageError
					if !errors.As(err, &pe) || opts.OnError == Abort {
						return report, err
					}

					report.ErrorCount++
					if len(report.Errors) < maxErrors {
						report.Errors = append(report.Errors, pe)
					}
					logger.Warn("unreadable region filled", "stripe", pe.Stripe, "disk", pe.Disk, "offset", pe.Offset, "bytes", len(chunk), "err", pe.Err)

					for i := range chunk {
						chunk[i] = opts.FillByte
					}
				}

				if _, err := w.Write(chunk); err != nil {
					return report, errs.IO(err, "unable to write reconstructed data at offset %d", report.Bytes)
				}
				report.Bytes += int64(len(chunk))
			}

			if opts.Progress != nil {
				opts.Progress(report.Bytes, d.size)
			}
		}
		report.Stripes++
	}
	return report, nil
}
