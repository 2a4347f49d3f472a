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
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/ostafen/raidrescue/internal/image"
	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/stretchr/testify/require"
)

const textAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 \n"

type fillFunc func(rng *rand.Rand, p []byte)

func randomBytes(rng *rand.Rand, p []byte) {
	for i := range p {
		p[i] = byte(rng.Uint32())
	}
}

func randomText(rng *rand.Rand, p []byte) {
	for i := range p {
		p[i] = textAlphabet[rng.IntN(len(textAlphabet))]
	}
}

// testArray is a synthetic RAID5 array: disks in logical order, and the
// content of the virtual disk they encode.
type testArray struct {
	disks [][]byte
	data  []byte
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func buildArray(t *testing.T, rng *rand.Rand, disks int, pageSize, stripes int64, layout raid.Layout, fill fillFunc) testArray {
	t.Helper()

	arr := testArray{disks: make([][]byte, disks)}
	for i := range arr.disks {
		arr.disks[i] = make([]byte, stripes*pageSize)
	}

	for s := range stripes {
		stripe := layout.Stripe(disks, s)
		pages := make([][]byte, 0, disks-1)
		for _, disk := range stripe.Data {
			page := arr.disks[disk][s*pageSize : (s+1)*pageSize]
			fill(rng, page)
			arr.data = append(arr.data, page...)
			pages = append(pages, page)
		}
		raid.Parity(arr.disks[stripe.Parity][s*pageSize:(s+1)*pageSize], pages...)
	}
	return arr
}

func (a testArray) images(prefix string) []*image.File {
	files := make([]*image.File, len(a.disks))
	for i, d := range a.disks {
		files[i] = memImage(fmt.Sprintf("%s%d", prefix, i), d)
	}
	return files
}

func memImage(id string, b []byte) *image.File {
	return image.New(id, bytes.NewReader(b), int64(len(b)))
}

func decoys(rng *rand.Rand, n int, size int64) []*image.File {
	files := make([]*image.File, n)
	for i := range files {
		b := make([]byte, size)
		randomBytes(rng, b)
		files[i] = memImage(fmt.Sprintf("decoy%d", i), b)
	}
	return files
}

// sliceSource serves logical disks straight from memory.
type sliceSource struct {
	disks [][]byte
	fail  func(disk int, off int64) error
}

func (s *sliceSource) Disks() int {
	return len(s.disks)
}

func (s *sliceSource) DiskSize(disk int) int64 {
	return int64(len(s.disks[disk]))
}

func (s *sliceSource) ReadAt(disk int, p []byte, off int64) (int, error) {
	if s.fail != nil {
		if err := s.fail(disk, off); err != nil {
			return 0, err
		}
	}
	return copy(p, s.disks[disk][off:]), nil
}

func requireIDs(t *testing.T, expected []string, files []*image.File) {
	t.Helper()
	require.Equal(t, expected, image.IDs(files))
}
