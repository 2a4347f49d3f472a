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
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"

	"github.com/ostafen/raidrescue/internal/errs"
)

// PageRange is a half-open interval [Start, End) of page indices.
type PageRange struct {
	Start int64
	End   int64
}

func (r PageRange) Len() int64 {
	return r.End - r.Start
}

func (r PageRange) String() string {
	if r.Len() == 1 {
		return strconv.FormatInt(r.Start, 10)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// PageRanges is a sorted set of non-overlapping page ranges.
// A nil value means "every page".
type PageRanges []PageRange

// ParsePageRanges parses a comma separated list of ranges. Each element is
// either a single page index "k", or a half-open range written "a-b" or "a:b".
// Overlapping and adjacent ranges are merged.
func ParsePageRanges(s string) (PageRanges, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var ranges []PageRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		r, err := parsePageRange(part)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, r)
	}
	if len(ranges) == 0 {
		return nil, errs.Configf("empty page range list %q", s)
	}
	return NewPageRanges(ranges...), nil
}

func parsePageRange(s string) (PageRange, error) {
	sep := strings.IndexAny(s, "-:")
	if sep < 0 {
		k, err := parsePageIndex(s)
		if err != nil {
			return PageRange{}, err
		}
		return PageRange{Start: k, End: k + 1}, nil
	}

	start, err := parsePageIndex(s[:sep])
	if err != nil {
		return PageRange{}, err
	}
	end, err := parsePageIndex(s[sep+1:])
	if err != nil {
		return PageRange{}, err
	}
	if end <= start {
		return PageRange{}, errs.Configf("empty page range %q", s)
	}
	return PageRange{Start: start, End: end}, nil
}

func parsePageIndex(s string) (int64, error) {
	k, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || k < 0 {
		return 0, errs.Configf("invalid page index %q", s)
	}
	return k, nil
}

// NewPageRanges sorts and merges ranges. Empty ranges are dropped.
func NewPageRanges(ranges ...PageRange) PageRanges {
	sorted := slices.DeleteFunc(slices.Clone(ranges), func(r PageRange) bool {
		return r.Len() <= 0
	})
	slices.SortFunc(sorted, func(a, b PageRange) int {
		return cmp.Compare(a.Start, b.Start)
	})

	out := make(PageRanges, 0, len(sorted))
	for _, r := range sorted {
		if n := len(out); n > 0 && r.Start <= out[n-1].End {
			out[n-1].End = max(out[n-1].End, r.End)
			continue
		}
		out = append(out, r)
	}
	return out
}

// Clip restricts the set to pages below limit. A nil set is expanded to
// [0, limit).
func (rs PageRanges) Clip(limit int64) PageRanges {
	if rs == nil {
		if limit <= 0 {
			return PageRanges{}
		}
		return PageRanges{{Start: 0, End: limit}}
	}

	out := make(PageRanges, 0, len(rs))
	for _, r := range rs {
		if r.Start >= limit {
			break
		}
		r.End = min(r.End, limit)
		out = append(out, r)
	}
	return out
}

// Count returns the number of pages in the set.
func (rs PageRanges) Count() int64 {
	var n int64
	for _, r := range rs {
		n += r.Len()
	}
	return n
}

// Pages yields every page index of the set in ascending order.
func (rs PageRanges) Pages() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for _, r := range rs {
			for k := r.Start; k < r.End; k++ {
				if !yield(k) {
					return
				}
			}
		}
	}
}

func (rs PageRanges) String() string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// Spread picks count single pages evenly spaced over [0, total).
func Spread(total, count int64) PageRanges {
	if total <= 0 || count <= 0 {
		return PageRanges{}
	}
	if count >= total {
		return PageRanges{{Start: 0, End: total}}
	}

	ranges := make([]PageRange, 0, count)
	for i := range count {
		k := i * total / count
		ranges = append(ranges, PageRange{Start: k, End: k + 1})
	}
	return NewPageRanges(ranges...)
}

// Runs picks count runs of length consecutive pages evenly spaced over
// [0, total).
func Runs(total, count, length int64) PageRanges {
	if total <= 0 || count <= 0 || length <= 0 {
		return PageRanges{}
	}
	if count*length >= total {
		return PageRanges{{Start: 0, End: total}}
	}

	ranges := make([]PageRange, 0, count)
	step := total / count
	for i := range count {
		start := i * step
		ranges = append(ranges, PageRange{Start: start, End: min(start+length, total)})
	}
	return NewPageRanges(ranges...)
}
