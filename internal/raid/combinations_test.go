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
	"math"
	"slices"
	"testing"

	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/stretchr/testify/require"
)

func TestCombinationsLexicographic(t *testing.T) {
	combos := slices.Collect(raid.Combinations(5, 3))
	require.Len(t, combos, 10)
	require.Equal(t, []int{0, 1, 2}, combos[0])
	require.Equal(t, []int{0, 1, 3}, combos[1])
	require.Equal(t, []int{2, 3, 4}, combos[9])

	for i := 1; i < len(combos); i++ {
		require.Negative(t, slices.Compare(combos[i-1], combos[i]))
	}

	require.Len(t, slices.Collect(raid.Combinations(3, 3)), 1)
	require.Empty(t, slices.Collect(raid.Combinations(2, 3)))
}

func TestCombinationsAreLazy(t *testing.T) {
	n := 0
	for range raid.Combinations(60, 30) {
		n++
		if n == 5 {
			break
		}
	}
	require.Equal(t, 5, n)
}

func TestBinomial(t *testing.T) {
	require.Equal(t, int64(10), raid.Binomial(5, 3))
	require.Equal(t, int64(1), raid.Binomial(4, 0))
	require.Equal(t, int64(0), raid.Binomial(2, 3))
	require.Equal(t, int64(118264581564861424), raid.Binomial(60, 30))
	require.Equal(t, int64(math.MaxInt64), raid.Binomial(200, 100))
}
