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
	"cmp"
	"context"
	"fmt"
	"iter"
	"log/slog"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/workers"
)

// DefaultSamplePages is the number of pages examined per combination when no
// ranges are given.
const DefaultSamplePages = 64

type IdentifyOptions struct {
	Array Array
	// Ranges restricts the examined pages. When nil, DefaultSamplePages pages
	// spread over the shortest candidate are examined.
	Ranges PageRanges
	// TestAll checks every combination and reports every passing one.
	TestAll bool
	Workers int
	Logger  *slog.Logger
}

// RaidSet is a group of images satisfying the parity invariant. Members are
// sorted by id: the set carries no ordering information.
type RaidSet struct {
	Files []*image.File
}

func (s RaidSet) IDs() []string {
	return image.IDs(s.Files)
}

func (s RaidSet) String() string {
	return image.Describe(s.Files)
}

type IdentifyReport struct {
	Candidates   int
	Combinations int64
	// Tested counts the combinations actually checked.
	Tested int64
	// Inconclusive counts the combinations whose examined rows were all zero.
	Inconclusive int64
	Pages        PageRanges
	Sets         []RaidSet
}

func (r *IdentifyReport) Verdict() error {
	if len(r.Sets) > 0 {
		return nil
	}
	if r.Inconclusive > 0 {
		return errs.Ambiguousf("no combination satisfies parity; %d of %d tested combinations were inconclusive (all-zero pages), try other page ranges",
			r.Inconclusive, r.Tested)
	}
	return errs.Ambiguousf("no combination of %d images satisfies parity", r.Candidates)
}

type combination struct {
	rank int64
	idx  []int
}

func rankedCombinations(n, k int) iter.Seq[combination] {
	return func(yield func(combination) bool) {
		var rank int64
		for idx := range Combinations(n, k) {
			if !yield(combination{rank: rank, idx: idx}) {
				return
			}
			rank++
		}
	}
}

// Identify searches the combinations of files for groups of Array.Disks
// images whose pages XOR to zero.
//
// Files are sorted by id first, so the result does not depend on the input
// order. Without TestAll the lexicographically first passing combination is
// returned: scheduling stops once a combination passes, while combinations
// ranked before it still complete.
func Identify(ctx context.Context, files []*image.File, opts IdentifyOptions) (*IdentifyReport, error) {
	if err := opts.Array.Validate(); err != nil {
		return nil, err
	}
	if len(files) < opts.Array.Disks {
		return nil, errs.Configf("%d images given, an array of %d disks needs at least as many", len(files), opts.Array.Disks)
	}

	files = image.Sorted(files)
	pageSize := opts.Array.PageSize

	ranges := opts.Ranges
	if ranges == nil {
		ranges = Spread(image.MinSize(files)/pageSize, DefaultSamplePages)
	}

	logger := loggerOrDiscard(opts.Logger)
	report := &IdentifyReport{
		Candidates:   len(files),
		Combinations: Binomial(len(files), opts.Array.Disks),
		Pages:        ranges,
	}
	logger.Debug("searching raid sets", "images", len(files), "combinations", report.Combinations, "pages", ranges.String())

	var (
		tested, inconclusive atomic.Int64
		best                 atomic.Int64

		mu     sync.Mutex
		passed []combination
	)
	best.Store(math.MaxInt64)

	err := workers.Each(ctx, opts.Workers, rankedCombinations(len(files), opts.Array.Disks), func(ctx context.Context, c combination) error {
		if !opts.TestAll && c.rank > best.Load() {
			return workers.ErrStop
		}

		members := make([]*image.File, len(c.idx))
		for i, j := range c.idx {
			members[i] = files[j]
		}

		res, err := checkCombination(ctx, members, pageSize, ranges)
		if err != nil {
			return err
		}
		tested.Add(1)

		switch res {
		case pageZero:
			inconclusive.Add(1)
			logger.Debug("combination inconclusive", "images", image.Describe(members))
		case pageConsistent:
			logger.Debug("combination satisfies parity", "images", image.Describe(members))

			mu.Lock()
			passed = append(passed, c)
			mu.Unlock()

			if !opts.TestAll {
				for {
					b := best.Load()
					if c.rank >= b || best.CompareAndSwap(b, c.rank) {
						break
					}
				}
				return workers.ErrStop
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(passed, func(a, b combination) int {
		return cmp.Compare(a.rank, b.rank)
	})
	if !opts.TestAll && len(passed) > 1 {
		passed = passed[:1]
	}

	report.Tested = tested.Load()
	report.Inconclusive = inconclusive.Load()
	for _, c := range passed {
		set := RaidSet{Files: make([]*image.File, len(c.idx))}
		for i, j := range c.idx {
			set.Files[i] = files[j]
		}
		report.Sets = append(report.Sets, set)
	}
	return report, nil
}

// checkCombination returns pageConsistent when every examined non-zero row
// XORs to zero, pageMismatch on the first failing row, and pageZero when there
// was nothing to examine.
func checkCombination(ctx context.Context, members []*image.File, pageSize int64, ranges PageRanges) (pageResult, error) {
	pages := ranges.Clip(image.MinSize(members) / pageSize)
	checker := newPageChecker(members, pageSize)

	conclusive := false
	for k := range pages.Pages() {
		if err := ctx.Err(); err != nil {
			return pageMismatch, err
		}

		res, err := checker.check(k)
		if err != nil {
			return pageMismatch, fmt.Errorf("checking page %d of %s: %w", k, image.Describe(members), err)
		}
		switch res {
		case pageMismatch:
			return pageMismatch, nil
		case pageConsistent:
			conclusive = true
		}
	}

	if !conclusive {
		return pageZero, nil
	}
	return pageConsistent, nil
}
