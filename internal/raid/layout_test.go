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
	"slices"
	"testing"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/stretchr/testify/require"
)

// In a left-symmetric array, data page d of stripe s lives on disk (d - s mod n) mod n.
func TestLeftSymmetricPlacement(t *testing.T) {
	for n := 3; n <= 6; n++ {
		for s := range int64(3 * n) {
			require.Equal(t, n-1-int(s%int64(n)), raid.LeftSymmetric.ParityDisk(n, s))

			for d := range n - 1 {
				expected := ((d-int(s%int64(n)))%n + n) % n
				require.Equal(t, expected, raid.LeftSymmetric.DataDisk(n, s, d), "n=%d s=%d d=%d", n, s, d)
			}
		}
	}
}

func TestLayoutExamples(t *testing.T) {
	tests := []struct {
		layout raid.Layout
		stripe int64
		parity int
		data   []int
	}{
		{raid.LeftSymmetric, 0, 3, []int{0, 1, 2}},
		{raid.LeftSymmetric, 1, 2, []int{3, 0, 1}},
		{raid.LeftAsymmetric, 1, 2, []int{0, 1, 3}},
		{raid.RightSymmetric, 1, 1, []int{2, 3, 0}},
		{raid.RightAsymmetric, 1, 1, []int{0, 2, 3}},
		{raid.RightAsymmetric, 4, 0, []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.layout.String(), func(t *testing.T) {
			stripe := tt.layout.Stripe(4, tt.stripe)
			require.Equal(t, tt.parity, stripe.Parity)
			require.Equal(t, tt.data, stripe.Data)
		})
	}
}

func TestLayoutSlotIsInverse(t *testing.T) {
	for _, layout := range raid.Layouts() {
		for n := 3; n <= 5; n++ {
			for s := range int64(2 * n) {
				stripe := layout.Stripe(n, s)

				all := append(slices.Clone(stripe.Data), stripe.Parity)
				slices.Sort(all)
				for i, disk := range all {
					require.Equal(t, i, disk)
				}

				require.Equal(t, -1, layout.Slot(n, s, stripe.Parity))
				for slot, disk := range stripe.Data {
					require.Equal(t, slot, layout.Slot(n, s, disk))
				}
			}
		}
	}
}

func TestParseLayout(t *testing.T) {
	for _, layout := range raid.Layouts() {
		parsed, err := raid.ParseLayout(layout.String())
		require.NoError(t, err)
		require.Equal(t, layout, parsed)
	}

	parsed, err := raid.ParseLayout(" Left-Symmetric ")
	require.NoError(t, err)
	require.Equal(t, raid.LeftSymmetric, parsed)

	_, err = raid.ParseLayout("diagonal")
	require.ErrorIs(t, err, errs.ErrConfiguration)
}

func TestArrayValidate(t *testing.T) {
	require.NoError(t, raid.Array{Disks: 3, PageSize: 64 * raid.KiB}.Validate())
	require.ErrorIs(t, raid.Array{Disks: 2, PageSize: 64 * raid.KiB}.Validate(), errs.ErrConfiguration)
	require.ErrorIs(t, raid.Array{Disks: 4, PageSize: 0}.Validate(), errs.ErrConfiguration)
	require.ErrorIs(t, raid.Array{Disks: 4, PageSize: 64000}.Validate(), errs.ErrConfiguration)
}

func TestCandidatePageSizes(t *testing.T) {
	sizes := raid.CandidatePageSizes()
	require.Equal(t, int64(64*raid.KiB), sizes[0])
	require.Equal(t, int64(raid.GiB), sizes[len(sizes)-1])
	require.Contains(t, sizes, int64(96*raid.KiB))
	require.Contains(t, sizes, int64(768*raid.MiB))
	require.True(t, slices.IsSorted(sizes))
}
