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
	"io"
	"log/slog"
	"slices"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/workers"
)

const (
	DefaultMaxBytes = 512 * MiB

	// scoreChunkSize bounds the bytes read at once while scoring.
	scoreChunkSize = 4 * MiB

	// minGap is the smallest parity/data score gap, in distinct byte values,
	// accepted as a signal.
	minGap = 16
	// runnerUpRatio marks the result ambiguous when the second best candidate
	// gets this close to the best one.
	runnerUpRatio = 0.9
)

type PageSizeOptions struct {
	// Disks is the number of members of the array the image belongs to.
	Disks int
	// Candidates overrides CandidatePageSizes.
	Candidates []int64
	// Offset is where the examined region starts.
	Offset int64
	// MaxBytes bounds the examined region. Zero selects DefaultMaxBytes.
	MaxBytes int64
	Workers  int
	Logger   *slog.Logger
}

// PageSizeCandidate is the evaluation of one page size.
type PageSizeCandidate struct {
	PageSize int64
	Blocks   int64
	// Phase is the block index, modulo Disks, that looks like parity.
	Phase int
	// Gap is the mean score of the parity blocks minus the mean score of the
	// data blocks.
	Gap        float64
	ParityMean float64
	DataMean   float64
	// Consistency is the fraction of complete periods whose parity block
	// strictly outscores every other block of the period.
	Consistency float64
	// Skipped is set when the candidate could not be evaluated.
	Skipped string
}

func (c PageSizeCandidate) Evaluated() bool {
	return c.Skipped == ""
}

// PageSizeReport ranks the candidates from the most to the least likely.
// Skipped candidates come last.
type PageSizeReport struct {
	Disks      int
	Offset     int64
	Bytes      int64
	Candidates []PageSizeCandidate
}

func (r *PageSizeReport) Best() (PageSizeCandidate, bool) {
	if len(r.Candidates) == 0 || !r.Candidates[0].Evaluated() {
		return PageSizeCandidate{}, false
	}
	return r.Candidates[0], true
}

// Verdict returns nil when the best candidate clearly dominates, and
// errs.ErrAmbiguous otherwise.
func (r *PageSizeReport) Verdict() error {
	best, ok := r.Best()
	if !ok {
		return errs.Ambiguousf("no page size candidate could be evaluated on %d bytes", r.Bytes)
	}
	if best.Gap < minGap {
		return errs.Ambiguousf("weak signal: best page size %d has a parity/data gap of %.1f distinct values", best.PageSize, best.Gap)
	}
	if len(r.Candidates) > 1 && r.Candidates[1].Evaluated() {
		second := r.Candidates[1]
		if second.Gap >= runnerUpRatio*best.Gap {
			return errs.Ambiguousf("page sizes %d (gap %.1f) and %d (gap %.1f) are equally plausible",
				best.PageSize, best.Gap, second.PageSize, second.Gap)
		}
	}
	return nil
}

// DetectPageSize looks for the page size whose blocks show the RAID5 pattern:
// Disks-1 low scoring data blocks followed by one high scoring parity block.
//
// The region is scanned once, recording the set of byte values of every unit
// of gcd(candidates) bytes. Candidates are then scored in parallel by merging
// the sets of the units each block spans.
func DetectPageSize(ctx context.Context, r io.ReaderAt, size int64, opts PageSizeOptions) (*PageSizeReport, error) {
	if opts.Disks < 3 {
		return nil, errs.Configf("a RAID5 array needs at least 3 disks, got %d", opts.Disks)
	}
	if opts.Offset < 0 || opts.Offset > size {
		return nil, errs.Boundsf("offset %d outside image of %d bytes", opts.Offset, size)
	}

	candidates := opts.Candidates
	if len(candidates) == 0 {
		candidates = CandidatePageSizes()
	}

	unit := int64(0)
	for _, p := range candidates {
		if err := ValidatePageSize(p); err != nil {
			return nil, err
		}
		unit = gcd(unit, p)
	}

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	region := min(maxBytes, size-opts.Offset)
	region -= region % unit

	logger := loggerOrDiscard(opts.Logger)
	logger.Debug("scanning region for page size detection",
		"offset", opts.Offset, "bytes", region, "unit", unit, "candidates", len(candidates))

	units, err := scanUnits(ctx, r, opts.Offset, region, unit, opts.Workers)
	if err != nil {
		return nil, err
	}

	evaluated, err := workers.Map(ctx, opts.Workers, candidates, func(ctx context.Context, pageSize int64) (PageSizeCandidate, error) {
		return evaluateCandidate(units, unit, pageSize, opts.Disks), nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(evaluated, compareCandidates)

	for _, c := range evaluated {
		if c.Evaluated() {
			logger.Debug("page size candidate", "size", c.PageSize, "gap", c.Gap, "consistency", c.Consistency, "phase", c.Phase)
		} else {
			logger.Debug("page size candidate skipped", "size", c.PageSize, "reason", c.Skipped)
		}
	}

	return &PageSizeReport{
		Disks:      opts.Disks,
		Offset:     opts.Offset,
		Bytes:      region,
		Candidates: evaluated,
	}, nil
}

func compareCandidates(a, b PageSizeCandidate) int {
	if a.Evaluated() != b.Evaluated() {
		if a.Evaluated() {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.Gap, a.Gap); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Consistency, a.Consistency); c != 0 {
		return c
	}
	return cmp.Compare(a.PageSize, b.PageSize)
}

// unitSets is the partial result of scanning one chunk of the region.
type unitSets struct {
	first int64
	sets  []byteSet
}

func scanUnits(ctx context.Context, r io.ReaderAt, offset, region, unit int64, size int) ([]byteSet, error) {
	chunks := make([]int64, 0, (region+scoreChunkSize-1)/scoreChunkSize)
	for off := int64(0); off < region; off += scoreChunkSize {
		chunks = append(chunks, off)
	}

	partials, err := workers.Map(ctx, size, chunks, func(ctx context.Context, start int64) (unitSets, error) {
		n := min(scoreChunkSize, region-start)
		buf := make([]byte, n)
		if m, err := r.ReadAt(buf, offset+start); m < len(buf) {
			if err == nil || err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return unitSets{}, errs.IO(err, "unable to read %d bytes at offset %d", n, offset+start)
		}

		first := start / unit
		last := (start + n - 1) / unit
		sets := make([]byteSet, last-first+1)
		for i := range sets {
			lo := max((first+int64(i))*unit, start) - start
			hi := min((first+int64(i)+1)*unit, start+n) - start
			sets[i].add(buf[lo:hi])
		}
		return unitSets{first: first, sets: sets}, nil
	})
	if err != nil {
		return nil, err
	}

	units := make([]byteSet, region/unit)
	for _, p := range partials {
		for i := range p.sets {
			units[p.first+int64(i)].union(&p.sets[i])
		}
	}
	return units, nil
}

func evaluateCandidate(units []byteSet, unit, pageSize int64, disks int) PageSizeCandidate {
	c := PageSizeCandidate{PageSize: pageSize}

	perBlock := pageSize / unit
	c.Blocks = int64(len(units)) / perBlock
	if need := int64(2 * disks); c.Blocks < need {
		c.Skipped = fmt.Sprintf("only %d blocks, need %d", c.Blocks, need)
		return c
	}

	scores := make([]int, c.Blocks)
	for i := range scores {
		var set byteSet
		for _, u := range units[int64(i)*perBlock : int64(i+1)*perBlock] {
			set.union(&u)
		}
		scores[i] = set.count()
	}

	c.Phase, c.ParityMean, c.DataMean = bestPhase(scores, disks)
	c.Gap = c.ParityMean - c.DataMean
	c.Consistency = periodConsistency(scores, disks, c.Phase)
	return c
}

// bestPhase returns the phase maximizing the gap between blocks at that phase
// and all other blocks.
func bestPhase(scores []int, disks int) (phase int, parityMean, dataMean float64) {
	sums := make([]float64, disks)
	counts := make([]int, disks)
	var total float64
	for i, s := range scores {
		sums[i%disks] += float64(s)
		counts[i%disks]++
		total += float64(s)
	}

	bestGap := 0.0
	for p := range disks {
		pm := sums[p] / float64(counts[p])
		dm := (total - sums[p]) / float64(len(scores)-counts[p])
		if p == 0 || pm-dm > bestGap {
			phase, parityMean, dataMean, bestGap = p, pm, dm, pm-dm
		}
	}
	return phase, parityMean, dataMean
}

func periodConsistency(scores []int, disks, phase int) float64 {
	periods := len(scores) / disks
	if periods == 0 {
		return 0
	}

	hits := 0
	for p := range periods {
		period := scores[p*disks : (p+1)*disks]
		top := true
		for i, s := range period {
			if i != phase && s >= period[phase] {
				top = false
				break
			}
		}
		if top {
			hits++
		}
	}
	return float64(hits) / float64(periods)
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
