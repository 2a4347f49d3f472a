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
	"context"
	"testing"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/stretchr/testify/require"
)

const orderPageSize = 8192

func TestDetectOrder(t *testing.T) {
	for _, layout := range raid.Layouts() {
		t.Run(layout.String(), func(t *testing.T) {
			arr := buildArray(t, newRand(31), 4, orderPageSize, 64, layout, randomText)
			disks := arr.images("disk")
			files := []*image.File{disks[2], disks[0], disks[3], disks[1]}

			report, err := raid.DetectOrder(context.Background(), files, raid.OrderOptions{
				PageSize: orderPageSize,
				Layout:   layout,
			})
			require.NoError(t, err)
			require.NoError(t, report.Verdict())
			require.Equal(t, []int{2, 0, 3, 1}, report.DiskOrder)
			requireIDs(t, []string{"disk0", "disk1", "disk2", "disk3"}, report.Ordered())
			require.Equal(t, int64(64), report.Stripes)
			require.Zero(t, report.Weak)

			for _, v := range report.Files {
				require.Equal(t, 1.0, v.Confidence)
			}
		})
	}
}

func TestDetectOrderWrongPageSize(t *testing.T) {
	arr := buildArray(t, newRand(32), 4, orderPageSize, 64, raid.LeftSymmetric, randomText)

	report, err := raid.DetectOrder(context.Background(), arr.images("disk"), raid.OrderOptions{
		PageSize: 2 * orderPageSize,
	})
	require.NoError(t, err)
	require.Nil(t, report.DiskOrder)
	require.ErrorIs(t, report.Verdict(), errs.ErrAmbiguous)
}

func TestDetectOrderNoSignal(t *testing.T) {
	files := []*image.File{
		memImage("z0", make([]byte, 8*orderPageSize)),
		memImage("z1", make([]byte, 8*orderPageSize)),
		memImage("z2", make([]byte, 8*orderPageSize)),
	}

	report, err := raid.DetectOrder(context.Background(), files, raid.OrderOptions{PageSize: orderPageSize})
	require.NoError(t, err)
	require.Equal(t, report.Stripes, report.Weak)
	require.ErrorIs(t, report.Verdict(), errs.ErrAmbiguous)
	require.Nil(t, report.Ordered())
}
