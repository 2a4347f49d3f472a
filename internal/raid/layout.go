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
	"fmt"
	"strings"

	"github.com/ostafen/raidrescue/internal/errs"
)

// Layout is the parity rotation convention of an array.
//
// For stripe S of an array of N disks, left layouts place parity on disk
// N-1-(S mod N) and right layouts on disk S mod N. Symmetric layouts start
// the data pages on the disk following the parity one, wrapping around;
// asymmetric layouts fill the remaining disks in ascending order.
type Layout int

const (
	LeftSymmetric Layout = iota
	LeftAsymmetric
	RightSymmetric
	RightAsymmetric
)

var layoutNames = map[Layout]string{
	LeftSymmetric:   "left-symmetric",
	LeftAsymmetric:  "left-asymmetric",
	RightSymmetric:  "right-symmetric",
	RightAsymmetric: "right-asymmetric",
}

func Layouts() []Layout {
	return []Layout{LeftSymmetric, LeftAsymmetric, RightSymmetric, RightAsymmetric}
}

func ParseLayout(s string) (Layout, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for l, n := range layoutNames {
		if n == name {
			return l, nil
		}
	}
	return 0, errs.Configf("unknown layout %q (valid: left-symmetric, left-asymmetric, right-symmetric, right-asymmetric)", s)
}

func (l Layout) String() string {
	if name, ok := layoutNames[l]; ok {
		return name
	}
	return fmt.Sprintf("layout(%d)", int(l))
}

func (l Layout) left() bool {
	return l == LeftSymmetric || l == LeftAsymmetric
}

func (l Layout) symmetric() bool {
	return l == LeftSymmetric || l == RightSymmetric
}

// ParityDisk returns the logical disk holding parity for stripe.
func (l Layout) ParityDisk(disks int, stripe int64) int {
	r := int(stripe % int64(disks))
	if l.left() {
		return disks - 1 - r
	}
	return r
}

// DataDisk returns the logical disk holding data page slot (0 <= slot < disks-1)
// of stripe.
func (l Layout) DataDisk(disks int, stripe int64, slot int) int {
	parity := l.ParityDisk(disks, stripe)
	if l.symmetric() {
		return (parity + 1 + slot) % disks
	}
	if slot >= parity {
		return slot + 1
	}
	return slot
}

// Slot is the inverse of DataDisk. It returns -1 when disk holds the parity
// page of stripe.
func (l Layout) Slot(disks int, stripe int64, disk int) int {
	parity := l.ParityDisk(disks, stripe)
	if disk == parity {
		return -1
	}
	if l.symmetric() {
		return (disk - parity - 1 + disks) % disks
	}
	if disk > parity {
		return disk - 1
	}
	return disk
}

// Stripe describes one row of the array: the disk holding parity and the disks
// holding the data pages in address order.
type Stripe struct {
	Index  int64
	Parity int
	Data   []int
}

func (l Layout) Stripe(disks int, stripe int64) Stripe {
	data := make([]int, disks-1)
	for slot := range data {
		data[slot] = l.DataDisk(disks, stripe, slot)
	}
	return Stripe{
		Index:  stripe,
		Parity: l.ParityDisk(disks, stripe),
		Data:   data,
	}
}
