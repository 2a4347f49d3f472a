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
	"crypto/subtle"

	"github.com/ostafen/raidrescue/internal/image"
)

// chunkSize bounds the bytes read from a single file at once.
const chunkSize = 1 * MiB

func isZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// pageChecker XORs the same page across a set of files, one chunk at a time.
type pageChecker struct {
	files    []*image.File
	pageSize int64
	acc      []byte
	buf      []byte
}

func newPageChecker(files []*image.File, pageSize int64) *pageChecker {
	n := min(pageSize, chunkSize)
	return &pageChecker{
		files:    files,
		pageSize: pageSize,
		acc:      make([]byte, n),
		buf:      make([]byte, n),
	}
}

// pageResult is the outcome of checking one page row.
type pageResult int

const (
	pageConsistent pageResult = iota
	pageMismatch
	// pageZero means every member holds zeros: the row proves nothing.
	pageZero
)

func (c *pageChecker) check(page int64) (pageResult, error) {
	base := page * c.pageSize
	allZero := true

	for off := int64(0); off < c.pageSize; off += int64(len(c.acc)) {
		n := min(int64(len(c.acc)), c.pageSize-off)
		acc, buf := c.acc[:n], c.buf[:n]

		clear(acc)
		for _, f := range c.files {
			if err := f.ReadFull(buf, base+off); err != nil {
				return pageMismatch, err
			}
			if allZero && !isZero(buf) {
				allZero = false
			}
			subtle.XORBytes(acc, acc, buf)
		}

		if !isZero(acc) {
			return pageMismatch, nil
		}
	}

	if allZero {
		return pageZero, nil
	}
	return pageConsistent, nil
}

// Parity computes into dst the XOR of pages, which must all have len(dst) bytes.
func Parity(dst []byte, pages ...[]byte) []byte {
	clear(dst)
	for _, p := range pages {
		subtle.XORBytes(dst, dst, p)
	}
	return dst
}
