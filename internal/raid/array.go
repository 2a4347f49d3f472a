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

// Package raid recovers RAID5 arrays from disk images whose metadata has been
// lost: stripe size, membership and disk order are inferred from the data
// itself, and the virtual disk is rebuilt or served from the member images.
package raid

import (
	"github.com/ostafen/raidrescue/internal/errs"
)

// MinIOSize is the granularity page sizes must be aligned to.
const MinIOSize = 512

const (
	KiB = 1 << 10
	MiB = 1 << 20
	GiB = 1 << 30
)

// Array describes the geometry of a RAID5 array: Disks members (data and
// parity) striped in pages of PageSize bytes.
type Array struct {
	Disks    int
	PageSize int64
}

func (a Array) Validate() error {
	if a.Disks < 3 {
		return errs.Configf("a RAID5 array needs at least 3 disks, got %d", a.Disks)
	}
	return ValidatePageSize(a.PageSize)
}

// StripeWidth returns the number of data bytes held by one stripe.
func (a Array) StripeWidth() int64 {
	return int64(a.Disks-1) * a.PageSize
}

func ValidatePageSize(pageSize int64) error {
	if pageSize <= 0 {
		return errs.Configf("page size must be positive, got %d", pageSize)
	}
	if pageSize%MinIOSize != 0 {
		return errs.Configf("page size %d is not a multiple of %d bytes", pageSize, MinIOSize)
	}
	return nil
}

// CandidatePageSizes returns the page sizes tried by the detector when none are
// given: powers of two from 64KiB to 1GiB, plus the 3*2^k sizes used by some
// hardware controllers, in ascending order.
func CandidatePageSizes() []int64 {
	var sizes []int64
	for size := int64(64 * KiB); size <= GiB; size *= 2 {
		sizes = append(sizes, size)
		if odd := size / 2 * 3; odd < GiB {
			sizes = append(sizes, odd)
		}
	}
	return sizes
}
