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

// Package geometry maps the byte ranges of each logical disk of an array onto
// the image files that hold them. A logical disk may be split over several
// files, as happens when a failing disk is imaged in pieces.
package geometry

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/ostafen/raidrescue/internal/errs"
)

// Entry maps the half-open range [Start, End) of logical disk Disk onto the
// file at Path, whose first byte holds the byte at Start.
type Entry struct {
	ID    string
	Disk  int
	Path  string
	Start int64
	End   int64
}

func (e Entry) Len() int64 {
	return e.End - e.Start
}

// Location is the result of a lookup: Offset is relative to the start of the
// entry's file.
type Location struct {
	Entry  Entry
	Offset int64
}

// Remaining returns how many bytes can be read from the entry starting at the location.
func (l Location) Remaining() int64 {
	return l.Entry.Len() - l.Offset
}

// Table is a validated geometry. It is read-only after construction and can be
// shared among concurrent readers.
type Table struct {
	entries []Entry
	disks   [][]Entry
}

// New validates entries and builds a table. For every logical disk the
// entries must cover a single contiguous range starting at 0, without gaps or
// overlaps, and logical disk indices must be contiguous starting from 0.
func New(entries []Entry) (*Table, error) {
	if len(entries) == 0 {
		return nil, errs.Configf("geometry has no entries")
	}

	ids := make(map[string]struct{}, len(entries))
	maxDisk := -1
	for _, e := range entries {
		if e.ID == "" {
			return nil, errs.Configf("geometry entry for %s has an empty id", e.Path)
		}
		if _, dup := ids[e.ID]; dup {
			return nil, errs.Configf("duplicate geometry entry id %q", e.ID)
		}
		ids[e.ID] = struct{}{}

		if e.Disk < 0 {
			return nil, errs.Configf("entry %q: negative logical disk index %d", e.ID, e.Disk)
		}
		if e.Start < 0 || e.End <= e.Start {
			return nil, errs.Configf("entry %q: invalid range [%d, %d)", e.ID, e.Start, e.End)
		}
		maxDisk = max(maxDisk, e.Disk)
	}

	disks := make([][]Entry, maxDisk+1)
	for _, e := range entries {
		disks[e.Disk] = append(disks[e.Disk], e)
	}

	for disk, segments := range disks {
		if len(segments) == 0 {
			return nil, errs.Configf("logical disk %d has no entries (indices must be contiguous from 0 to %d)", disk, maxDisk)
		}

		slices.SortFunc(segments, func(a, b Entry) int {
			return cmp.Compare(a.Start, b.Start)
		})

		if segments[0].Start != 0 {
			return nil, errs.Configf("logical disk %d: gap [0, %d) before entry %q", disk, segments[0].Start, segments[0].ID)
		}

		for i := 1; i < len(segments); i++ {
			prev, curr := segments[i-1], segments[i]
			switch {
			case curr.Start < prev.End:
				return nil, errs.Configf("logical disk %d: entries %q and %q overlap in [%d, %d)",
					disk, prev.ID, curr.ID, curr.Start, min(prev.End, curr.End))
			case curr.Start > prev.End:
				return nil, errs.Configf("logical disk %d: gap [%d, %d) between entries %q and %q",
					disk, prev.End, curr.Start, prev.ID, curr.ID)
			}
		}
	}

	return &Table{
		entries: slices.Clone(entries),
		disks:   disks,
	}, nil
}

// Disks returns the number of logical disks.
func (t *Table) Disks() int {
	return len(t.disks)
}

// Entries returns the entries in their original order.
func (t *Table) Entries() []Entry {
	return slices.Clone(t.entries)
}

// Segments returns the entries of a logical disk sorted by start offset.
func (t *Table) Segments(disk int) []Entry {
	if disk < 0 || disk >= len(t.disks) {
		return nil
	}
	return slices.Clone(t.disks[disk])
}

// TotalLength returns the length of a logical disk.
func (t *Table) TotalLength(disk int) (int64, error) {
	if disk < 0 || disk >= len(t.disks) {
		return 0, errs.Configf("logical disk %d not in geometry (0-%d)", disk, len(t.disks)-1)
	}
	segments := t.disks[disk]
	return segments[len(segments)-1].End, nil
}

// Resolve maps an absolute offset of a logical disk onto the file holding it.
func (t *Table) Resolve(disk int, off int64) (Location, error) {
	if disk < 0 || disk >= len(t.disks) {
		return Location{}, errs.Configf("logical disk %d not in geometry (0-%d)", disk, len(t.disks)-1)
	}

	segments := t.disks[disk]

	// first segment ending after off
	i, _ := slices.BinarySearchFunc(segments, off, func(e Entry, target int64) int {
		if e.End <= target {
			return -1
		}
		return 1
	})
	if off < 0 || i == len(segments) || off < segments[i].Start {
		return Location{}, errs.Configf("offset %d of logical disk %d is not covered by the geometry", off, disk)
	}

	return Location{
		Entry:  segments[i],
		Offset: off - segments[i].Start,
	}, nil
}

// Logical is the inverse of Resolve: it maps an offset inside the file of
// entry id back to its logical disk and absolute offset.
func (t *Table) Logical(id string, fileOffset int64) (int, int64, error) {
	for _, e := range t.entries {
		if e.ID != id {
			continue
		}
		if fileOffset < 0 || fileOffset >= e.Len() {
			return 0, 0, errs.Boundsf("offset %d outside entry %q (length %d)", fileOffset, id, e.Len())
		}
		return e.Disk, e.Start + fileOffset, nil
	}
	return 0, 0, errs.Configf("unknown geometry entry %q", id)
}

// FromOrder builds a table with one file per logical disk, where order[i] is
// the logical index of files[i]. Lengths are rounded down to a multiple of
// pageSize when it is positive.
func FromOrder(paths []string, sizes []int64, order []int, pageSize int64) (*Table, error) {
	if len(paths) != len(order) || len(sizes) != len(order) {
		return nil, errs.Configf("order has %d entries for %d files", len(order), len(paths))
	}

	entries := make([]Entry, len(paths))
	for i, path := range paths {
		end := sizes[i]
		if pageSize > 0 {
			end -= end % pageSize
		}
		entries[i] = Entry{
			ID:    fmt.Sprintf("disk%d", order[i]),
			Disk:  order[i],
			Path:  path,
			Start: 0,
			End:   end,
		}
	}

	t, err := New(entries)
	if err != nil {
		return nil, err
	}
	if t.Disks() != len(paths) {
		return nil, errs.Configf("order %v is not a permutation of 0..%d", order, len(paths)-1)
	}
	return t, nil
}
