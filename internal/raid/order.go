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
	"strings"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/image"
)

const (
	DefaultMinConfidence = 0.9

	// minRowGap is the smallest score difference between the two highest
	// scoring pages of a stripe for the stripe to cast a vote.
	minRowGap = 8

	orderRuns = 16
)

type OrderOptions struct {
	PageSize int64
	Layout   Layout
	// Ranges restricts the examined stripes. When nil, runs of 8*N
	// consecutive stripes spread over the shortest file are examined.
	Ranges PageRanges
	// MinConfidence is the fraction of its votes each file must give to its
	// majority index. Zero selects DefaultMinConfidence.
	MinConfidence float64
	Logger        *slog.Logger
}

// FileVotes records which logical indices the stripes examined assign to a file.
type FileVotes struct {
	File *image.File
	// Votes[i] counts the stripes where the file held parity and the layout
	// puts parity on logical disk i.
	Votes      []int64
	Index      int
	Confidence float64
}

func (v FileVotes) total() int64 {
	var n int64
	for _, c := range v.Votes {
		n += c
	}
	return n
}

type OrderReport struct {
	Layout  Layout
	Stripes int64
	// Weak counts the stripes skipped because no page clearly stood out.
	Weak int64
	// Files holds the votes of every file, in input order.
	Files []FileVotes
	// DiskOrder maps each input position to its logical disk index. It is nil
	// when the detection failed.
	DiskOrder []int

	problems []string
}

// Ordered returns the files sorted by logical disk index.
func (r *OrderReport) Ordered() []*image.File {
	if r.DiskOrder == nil {
		return nil
	}

	out := make([]*image.File, len(r.DiskOrder))
	for pos, idx := range r.DiskOrder {
		out[idx] = r.Files[pos].File
	}
	return out
}

func (r *OrderReport) Verdict() error {
	if r.DiskOrder != nil {
		return nil
	}
	return errs.Ambiguousf("disk order not detected with the %s layout (wrong page size or layout?): %s",
		r.Layout, strings.Join(r.problems, "; "))
}

// DetectOrder assigns a logical disk index to every file. For each examined
// stripe the highest scoring page is taken as the parity page, and the layout
// tells which logical disk holds parity in that stripe.
func DetectOrder(ctx context.Context, files []*image.File, opts OrderOptions) (*OrderReport, error) {
	disks := len(files)
	if err := (Array{Disks: disks, PageSize: opts.PageSize}).Validate(); err != nil {
		return nil, err
	}

	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}

	stripes := image.MinSize(files) / opts.PageSize
	ranges := opts.Ranges
	if ranges == nil {
		ranges = Runs(stripes, orderRuns, int64(8*disks))
	}
	ranges = ranges.Clip(stripes)

	logger := loggerOrDiscard(opts.Logger)
	logger.Debug("detecting disk order", "images", image.Describe(files), "layout", opts.Layout, "stripes", ranges.String())

	report := &OrderReport{
		Layout: opts.Layout,
		Files:  make([]FileVotes, disks),
	}
	for i, f := range files {
		report.Files[i] = FileVotes{File: f, Votes: make([]int64, disks), Index: -1}
	}

	scores := make([]int, disks)
	buf := make([]byte, min(opts.PageSize, scoreChunkSize))
	for s := range ranges.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i, f := range files {
			score, err := scorePage(f, s*opts.PageSize, opts.PageSize, buf)
			if err != nil {
				return nil, fmt.Errorf("scoring stripe %d: %w", s, err)
			}
			scores[i] = score
		}
		report.Stripes++

		top, ok := parityHolder(scores)
		if !ok {
			report.Weak++
			continue
		}
		report.Files[top].Votes[opts.Layout.ParityDisk(disks, s)]++
	}

	report.DiskOrder = report.resolve(minConfidence)
	return report, nil
}

func scorePage(f *image.File, off, pageSize int64, buf []byte) (int, error) {
	var set byteSet
	for done := int64(0); done < pageSize; {
		chunk := buf[:min(int64(len(buf)), pageSize-done)]
		if err := f.ReadFull(chunk, off+done); err != nil {
			return 0, err
		}
		set.add(chunk)
		done += int64(len(chunk))
	}
	return set.count(), nil
}

// parityHolder returns the position of the highest score, provided it beats
// the runner-up by at least minRowGap.
func parityHolder(scores []int) (int, bool) {
	top, second := -1, -1
	for i, s := range scores {
		switch {
		case top < 0 || s > scores[top]:
			top, second = i, top
		case second < 0 || s > scores[second]:
			second = i
		}
	}
	if top < 0 || second < 0 {
		return top, top >= 0
	}
	return top, scores[top]-scores[second] >= minRowGap
}

// resolve picks the majority index of every file and checks it forms a
// bijection reached with enough confidence.
func (r *OrderReport) resolve(minConfidence float64) []int {
	if r.Stripes == r.Weak {
		r.problems = append(r.problems, fmt.Sprintf("none of the %d examined stripes has a clear parity page", r.Stripes))
		return nil
	}

	owner := make([]int, len(r.Files))
	for i := range owner {
		owner[i] = -1
	}

	order := make([]int, len(r.Files))
	for pos := range r.Files {
		v := &r.Files[pos]

		total := v.total()
		if total == 0 {
			r.problems = append(r.problems, fmt.Sprintf("%s never holds parity", v.File.Name()))
			continue
		}

		for idx, n := range v.Votes {
			if v.Index < 0 || n > v.Votes[v.Index] {
				v.Index = idx
			}
		}
		v.Confidence = float64(v.Votes[v.Index]) / float64(total)
		order[pos] = v.Index

		if v.Confidence < minConfidence {
			r.problems = append(r.problems, fmt.Sprintf("%s is disk %d in only %.0f%% of %d stripes",
				v.File.Name(), v.Index, 100*v.Confidence, total))
		}
		if prev := owner[v.Index]; prev >= 0 {
			r.problems = append(r.problems, fmt.Sprintf("%s and %s both map to disk %d",
				r.Files[prev].File.Name(), v.File.Name(), v.Index))
		} else {
			owner[v.Index] = pos
		}
	}

	if len(r.problems) > 0 {
		return nil
	}
	return order
}
