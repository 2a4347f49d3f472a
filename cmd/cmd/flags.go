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
package cmd

import (
	"strconv"
	"strings"

	"github.com/ostafen/raidrescue/internal/raid"
	"github.com/ostafen/raidrescue/pkg/util/format"
	"github.com/spf13/pflag"
)

// rangesValue is a pflag.Value accepting page ranges such as "0-100,200:300,512".
type rangesValue struct {
	ranges raid.PageRanges
}

var _ pflag.Value = (*rangesValue)(nil)

func (v *rangesValue) Set(s string) error {
	rs, err := raid.ParsePageRanges(s)
	if err != nil {
		return err
	}
	v.ranges = rs
	return nil
}

func (v *rangesValue) String() string { return v.ranges.String() }
func (v *rangesValue) Type() string   { return "ranges" }

// layoutValue is a pflag.Value accepting a parity layout name.
type layoutValue struct {
	layout raid.Layout
}

func (v *layoutValue) Set(s string) error {
	l, err := raid.ParseLayout(s)
	if err != nil {
		return err
	}
	v.layout = l
	return nil
}

func (v *layoutValue) String() string { return v.layout.String() }
func (v *layoutValue) Type() string   { return "layout" }

// sizeValue is a pflag.Value accepting sizes such as "64k", "1MiB" or "4096".
type sizeValue struct {
	size int64
}

func (v *sizeValue) Set(s string) error {
	n, err := format.ParseBytes(s)
	if err != nil {
		return err
	}
	v.size = n
	return nil
}

func (v *sizeValue) String() string { return strconv.FormatInt(v.size, 10) }
func (v *sizeValue) Type() string   { return "size" }

// sizesValue is a pflag.Value accepting a comma separated list of sizes.
type sizesValue struct {
	sizes []int64
}

func (v *sizesValue) Set(s string) error {
	sizes, err := parseSizes(s)
	if err != nil {
		return err
	}
	v.sizes = sizes
	return nil
}

func (v *sizesValue) String() string {
	parts := make([]string, len(v.sizes))
	for i, s := range v.sizes {
		parts[i] = strconv.FormatInt(s, 10)
	}
	return strings.Join(parts, ",")
}

func (v *sizesValue) Type() string { return "sizes" }

func parseSizes(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var sizes []int64
	for _, part := range strings.Split(s, ",") {
		n, err := format.ParseBytes(part)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

func addPageSizeFlag(fs *pflag.FlagSet) {
	fs.VarP(&sizeValue{}, "page-size", "p", "page (chunk) size of the array, e.g. 64k or 512KiB")
}

func addLayoutFlag(fs *pflag.FlagSet) {
	fs.VarP(&layoutValue{layout: raid.LeftSymmetric}, "layout", "l",
		"parity layout: left-symmetric, left-asymmetric, right-symmetric or right-asymmetric")
}
