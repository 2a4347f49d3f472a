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
	"io"

	"github.com/ostafen/raidrescue/internal/errs"
)

// Source gives access to the logical disks of an array, already in logical
// order. geometry.Volume is the usual implementation.
type Source interface {
	Disks() int
	DiskSize(disk int) int64
	ReadAt(disk int, p []byte, off int64) (int, error)
}

type VirtualDiskOptions struct {
	PageSize int64
	Layout   Layout
}

// VirtualDisk is the address space of the reconstructed array. It holds no
// mutable state: concurrent reads are safe as long as the source is.
type VirtualDisk struct {
	src     Source
	array   Array
	layout  Layout
	stripes int64
	size    int64
}

// NewVirtualDisk builds the view over src. Only whole stripes are exposed: the
// number of stripes is the length of the shortest logical disk divided by the
// page size.
func NewVirtualDisk(src Source, opts VirtualDiskOptions) (*VirtualDisk, error) {
	array := Array{Disks: src.Disks(), PageSize: opts.PageSize}
	if err := array.Validate(); err != nil {
		return nil, err
	}

	shortest := src.DiskSize(0)
	for disk := 1; disk < array.Disks; disk++ {
		shortest = min(shortest, src.DiskSize(disk))
	}

	stripes := shortest / array.PageSize
	return &VirtualDisk{
		src:     src,
		array:   array,
		layout:  opts.Layout,
		stripes: stripes,
		size:    stripes * array.StripeWidth(),
	}, nil
}

func (d *VirtualDisk) Size() int64 {
	return d.size
}

func (d *VirtualDisk) Array() Array {
	return d.array
}

func (d *VirtualDisk) Layout() Layout {
	return d.layout
}

func (d *VirtualDisk) Stripes() int64 {
	return d.stripes
}

// Location are the coordinates of a virtual offset inside the array.
type Location struct {
	Stripe int64
	// Slot is the position of the data page inside the stripe.
	Slot int
	// Disk is the logical disk holding the page.
	Disk int
	// DiskOffset is the offset on the logical disk.
	DiskOffset int64
	// Remaining is the number of bytes left in the page.
	Remaining int64
}

func (d *VirtualDisk) Locate(off int64) (Location, error) {
	if off < 0 || off >= d.size {
		return Location{}, errs.Boundsf("offset %d outside virtual disk of %d bytes", off, d.size)
	}
	return d.locate(off), nil
}

func (d *VirtualDisk) locate(off int64) Location {
	p := d.array.PageSize
	page := off / p
	inPage := off % p

	stripe := page / int64(d.array.Disks-1)
	slot := int(page % int64(d.array.Disks-1))
	return Location{
		Stripe:     stripe,
		Slot:       slot,
		Disk:       d.layout.DataDisk(d.array.Disks, stripe, slot),
		DiskOffset: stripe*p + inPage,
		Remaining:  p - inPage,
	}
}

// ReadAt implements io.ReaderAt. Reads crossing the end of the disk return
// the available bytes and io.EOF.
func (d *VirtualDisk) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errs.Boundsf("negative offset %d", off)
	}
	if off >= d.size {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	n := int(min(int64(len(p)), d.size-off))
	if err := d.readData(p[:n], off); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Read returns the length bytes at off. Unlike ReadAt, a range not entirely
// inside the disk is an errs.ErrBounds.
func (d *VirtualDisk) Read(off int64, length int) ([]byte, error) {
	if off < 0 || length < 0 || off > d.size || int64(length) > d.size-off {
		return nil, errs.Boundsf("range [%d, %d) outside virtual disk of %d bytes", off, off+int64(length), d.size)
	}

	buf := make([]byte, length)
	if err := d.readData(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}

// readData fills p page by page. The range must lie inside the disk.
// Failures are reported as *PageError.
func (d *VirtualDisk) readData(p []byte, off int64) error {
	for done := 0; done < len(p); {
		loc := d.locate(off + int64(done))
		n := int(min(int64(len(p)-done), loc.Remaining))

		if _, err := d.src.ReadAt(loc.Disk, p[done:done+n], loc.DiskOffset); err != nil {
			return &PageError{Stripe: loc.Stripe, Disk: loc.Disk, Offset: loc.DiskOffset, Err: err}
		}
		done += n
	}
	return nil
}
