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
package raid_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/geometry"
	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/stretchr/testify/require"
)

const diskPageSize = 1024

func newTestDisk(t *testing.T, layout raid.Layout, disks int, stripes int64) (*raid.VirtualDisk, testArray) {
	t.Helper()

	arr := buildArray(t, newRand(uint64(41+disks)), disks, diskPageSize, stripes, layout, randomBytes)
	d, err := raid.NewVirtualDisk(&sliceSource{disks: arr.disks}, raid.VirtualDiskOptions{
		PageSize: diskPageSize,
		Layout:   layout,
	})
	require.NoError(t, err)
	return d, arr
}

func TestVirtualDiskReadsData(t *testing.T) {
	for _, layout := range raid.Layouts() {
		t.Run(layout.String(), func(t *testing.T) {
			d, arr := newTestDisk(t, layout, 4, 12)
			require.Equal(t, int64(len(arr.data)), d.Size())
			require.Equal(t, int64(12*3*diskPageSize), d.Size())

			data, err := d.Read(0, int(d.Size()))
			require.NoError(t, err)
			require.Equal(t, arr.data, data)
		})
	}
}

func TestVirtualDiskReadIsComposable(t *testing.T) {
	d, arr := newTestDisk(t, raid.LeftSymmetric, 5, 9)
	rng := newRand(42)

	for range 200 {
		off := rng.Int64N(d.Size())
		length := rng.Int64N(d.Size()-off) + 1
		k := rng.Int64N(length + 1)

		whole, err := d.Read(off, int(length))
		require.NoError(t, err)
		require.Equal(t, arr.data[off:off+length], whole)

		left, err := d.Read(off, int(k))
		require.NoError(t, err)
		right, err := d.Read(off+k, int(length-k))
		require.NoError(t, err)
		require.Equal(t, whole, append(left, right...), "off=%d len=%d k=%d", off, length, k)
	}
}

func TestVirtualDiskBoundaries(t *testing.T) {
	d, arr := newTestDisk(t, raid.LeftSymmetric, 3, 4)

	stripe := int64(2 * diskPageSize)
	for _, off := range []int64{diskPageSize - 1, stripe - 1, 3*stripe - 3} {
		b, err := d.Read(off, 6)
		require.NoError(t, err)
		require.Equal(t, arr.data[off:off+6], b)
	}

	_, err := d.Read(-1, 1)
	require.ErrorIs(t, err, errs.ErrBounds)
	_, err = d.Read(d.Size()-1, 2)
	require.ErrorIs(t, err, errs.ErrBounds)

	b, err := d.Read(d.Size(), 0)
	require.NoError(t, err)
	require.Empty(t, b)

	buf := make([]byte, 10)
	n, err := d.ReadAt(buf, d.Size()-4)
	require.Equal(t, 4, n)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, arr.data[d.Size()-4:], buf[:n])

	_, err = d.ReadAt(buf, -5)
	require.ErrorIs(t, err, errs.ErrBounds)
}

func TestVirtualDiskLocate(t *testing.T) {
	d, _ := newTestDisk(t, raid.LeftSymmetric, 4, 8)

	loc, err := d.Locate(0)
	require.NoError(t, err)
	require.Equal(t, raid.Location{Stripe: 0, Slot: 0, Disk: 0, DiskOffset: 0, Remaining: diskPageSize}, loc)

	// Stripe 1, slot 1: parity sits on disk 2, data starts on disk 3.
	off := int64(3*diskPageSize) + diskPageSize + 10
	loc, err = d.Locate(off)
	require.NoError(t, err)
	require.Equal(t, raid.Location{Stripe: 1, Slot: 1, Disk: 0, DiskOffset: diskPageSize + 10, Remaining: diskPageSize - 10}, loc)

	_, err = d.Locate(d.Size())
	require.ErrorIs(t, err, errs.ErrBounds)
}

func TestVirtualDiskTruncatesToWholeStripes(t *testing.T) {
	arr := buildArray(t, newRand(43), 3, diskPageSize, 6, raid.LeftSymmetric, randomBytes)
	arr.disks[0] = append(arr.disks[0], make([]byte, 3*diskPageSize)...)
	arr.disks[1] = arr.disks[1][:5*diskPageSize+100]

	d, err := raid.NewVirtualDisk(&sliceSource{disks: arr.disks}, raid.VirtualDiskOptions{PageSize: diskPageSize})
	require.NoError(t, err)
	require.Equal(t, int64(5), d.Stripes())
	require.Equal(t, int64(5*2*diskPageSize), d.Size())
}

func TestVirtualDiskInvalidArray(t *testing.T) {
	src := &sliceSource{disks: [][]byte{make([]byte, diskPageSize), make([]byte, diskPageSize)}}
	_, err := raid.NewVirtualDisk(src, raid.VirtualDiskOptions{PageSize: diskPageSize})
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestReconstructMatchesRead(t *testing.T) {
	d, _ := newTestDisk(t, raid.RightSymmetric, 4, 10)

	var out bytes.Buffer
	var progress int64
	report, err := d.Reconstruct(context.Background(), &out, raid.ReconstructOptions{
		Progress: func(done, total int64) {
			require.Equal(t, d.Size(), total)
			progress = done
		},
	})
	require.NoError(t, err)
	require.Equal(t, d.Size(), report.Bytes)
	require.Equal(t, int64(10), report.Stripes)
	require.Equal(t, d.Size(), progress)

	all, err := d.Read(0, int(d.Size()))
	require.NoError(t, err)
	require.Equal(t, all, out.Bytes())
}

func TestReconstructErrorPolicy(t *testing.T) {
	arr := buildArray(t, newRand(44), 3, diskPageSize, 6, raid.LeftSymmetric, randomBytes)
	boom := errors.New("bad sector")

	// Stripe 4 keeps data on disks 2 and 0, parity on disk 1.
	src := &sliceSource{
		disks: arr.disks,
		fail: func(disk int, off int64) error {
			if disk == 2 && off/diskPageSize == 4 {
				return boom
			}
			return nil
		},
	}
	d, err := raid.NewVirtualDisk(src, raid.VirtualDiskOptions{PageSize: diskPageSize})
	require.NoError(t, err)

	_, err = d.Reconstruct(context.Background(), io.Discard, raid.ReconstructOptions{})
	require.ErrorIs(t, err, boom)

	var pe *raid.PageError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, int64(4), pe.Stripe)
	require.Equal(t, 2, pe.Disk)
	require.Equal(t, int64(4*diskPageSize), pe.Offset)

	var out bytes.Buffer
	report, err := d.Reconstruct(context.Background(), &out, raid.ReconstructOptions{
		OnError:  raid.Fill,
		FillByte: 0xee,
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), report.ErrorCount)
	require.Len(t, report.Errors, 1)

	expected := append([]byte(nil), arr.data...)
	bad := expected[4*2*diskPageSize : 4*2*diskPageSize+diskPageSize]
	for i := range bad {
		bad[i] = 0xee
	}
	require.Equal(t, expected, out.Bytes())
}

func TestReconstructCancelled(t *testing.T) {
	d, _ := newTestDisk(t, raid.LeftSymmetric, 3, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Reconstruct(ctx, io.Discard, raid.ReconstructOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestVirtualDiskOverGeometry(t *testing.T) {
	arr := buildArray(t, newRand(45), 3, diskPageSize, 8, raid.LeftSymmetric, randomBytes)

	// Logical disk 1 is split in two files, off a page boundary.
	split := int64(3*diskPageSize + 300)
	files := []*image.File{
		memImage("d0", arr.disks[0]),
		memImage("d1a", arr.disks[1][:split]),
		memImage("d1b", arr.disks[1][split:]),
		memImage("d2", arr.disks[2]),
	}
	size := int64(len(arr.disks[0]))

	table, err := geometry.New([]geometry.Entry{
		{ID: "d0", Disk: 0, Path: "d0", Start: 0, End: size},
		{ID: "d1a", Disk: 1, Path: "d1a", Start: 0, End: split},
		{ID: "d1b", Disk: 1, Path: "d1b", Start: split, End: size},
		{ID: "d2", Disk: 2, Path: "d2", Start: 0, End: size},
	})
	require.NoError(t, err)

	vol, err := geometry.Attach(table, files)
	require.NoError(t, err)

	d, err := raid.NewVirtualDisk(vol, raid.VirtualDiskOptions{PageSize: diskPageSize})
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = d.Reconstruct(context.Background(), &out, raid.ReconstructOptions{})
	require.NoError(t, err)
	require.Equal(t, arr.data, out.Bytes())
}
