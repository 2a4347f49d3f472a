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
	"fmt"
	"log/slog"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/image"
)

const DefaultMaxFailures = 100

type ValidateOptions struct {
	PageSize int64
	// Ranges restricts the scan. When nil every page up to the shortest file
	// is checked.
	Ranges PageRanges
	// MaxFailures caps the failing pages listed in the report. Zero selects
	// DefaultMaxFailures, a negative value removes the cap.
	MaxFailures int
	// Progress, if set, is called after every page with the pages checked so
	// far and the total.
	Progress func(done, total int64)
	Logger   *slog.Logger
}

type ValidationReport struct {
	Pages int64
	// Zero counts the pages where every member held zeros.
	Zero int64
	// Failures lists the first failing page indices, in ascending order.
	Failures     []int64
	FailureCount int64
}

func (r *ValidationReport) Passed() bool {
	return r.FailureCount == 0
}

// Truncated reports whether some failures were omitted from Failures.
func (r *ValidationReport) Truncated() bool {
	return int64(len(r.Failures)) < r.FailureCount
}

// Verdict returns nil when every page passed, an errs.ErrValidation otherwise.
func (r *ValidationReport) Verdict() error {
	if r.Passed() {
		return nil
	}
	return errs.Validationf("%d of %d pages fail parity, first at page %d", r.FailureCount, r.Pages, r.Failures[0])
}

// Validate checks the parity invariant page by page. The order of files is
// irrelevant. Mismatches are collected and never stop the scan; I/O failures do.
func Validate(ctx context.Context, files []*image.File, opts ValidateOptions) (*ValidationReport, error) {
	if err := (Array{Disks: len(files), PageSize: opts.PageSize}).Validate(); err != nil {
		return nil, err
	}

	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = DefaultMaxFailures
	}

	pages := opts.Ranges.Clip(image.MinSize(files) / opts.PageSize)
	total := pages.Count()
	logger := loggerOrDiscard(opts.Logger)
	logger.Debug("validating parity", "images", image.Describe(files), "pages", total)

	report := &ValidationReport{}
	checker := newPageChecker(files, opts.PageSize)
	for k := range pages.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := checker.check(k)
		if err != nil {
			return nil, fmt.Errorf("validating page %d: %w", k, err)
		}

		switch res {
		case pageMismatch:
			report.FailureCount++
			if maxFailures < 0 || len(report.Failures) < maxFailures {
				report.Failures = append(report.Failures, k)
			}
			logger.Debug("parity mismatch", "page", k)
		case pageZero:
			report.Zero++
		}

		report.Pages++
		if opts.Progress != nil {
			opts.Progress(report.Pages, total)
		}
	}
	return report, nil
}
