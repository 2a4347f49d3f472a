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

import "math/bits"

// Score returns the number of distinct byte values in block.
//
// Text-like data (logs, CSV, HTML, ...) uses a limited alphabet, usually
// 60 to 90 byte values, while the XOR of several such blocks spreads over the
// whole 7-bit range. A parity page therefore scores noticeably higher than the
// data pages of its stripe, provided the examined region holds long-form text.
func Score(block []byte) int {
	var s byteSet
	s.add(block)
	return s.count()
}

// byteSet is the set of byte values seen in a block. Sets of adjacent chunks
// can be merged, so large pages are scored without being held in memory.
type byteSet [4]uint64

func (s *byteSet) add(chunk []byte) {
	for _, b := range chunk {
		s[b>>6] |= 1 << (b & 63)
	}
}

func (s *byteSet) union(o *byteSet) {
	for i := range s {
		s[i] |= o[i]
	}
}

func (s *byteSet) count() int {
	n := 0
	for _, w := range s {
		n += bits.OnesCount64(w)
	}
	return n
}
