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
package pbar

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
)

const MinRefreshRate = time.Millisecond * 500

type Options struct {
	Description string
	// Bytes renders the counters as byte sizes and shows the throughput.
	Bytes bool
	// Hidden disables rendering, e.g. when the output is not a terminal.
	Hidden bool
}

// ProgressBar reports the progress of a long running operation on w.
type ProgressBar struct {
	bar *progressbar.ProgressBar
}

func New(w io.Writer, total int64, opts Options) *ProgressBar {
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionShowBytes(opts.Bytes),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(MinRefreshRate),
		progressbar.OptionSetVisibility(!opts.Hidden),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(w, "\n")
		}),
	)
	return &ProgressBar{bar: bar}
}

// Set moves the bar to done.
func (pb *ProgressBar) Set(done int64) {
	_ = pb.bar.Set64(done)
}

// Update is a progress callback: it adjusts the total and sets the position.
func (pb *ProgressBar) Update(done, total int64) {
	if total != pb.bar.GetMax64() {
		pb.bar.ChangeMax64(total)
	}
	pb.Set(done)
}

// Finish fills the bar and moves to the next line.
func (pb *ProgressBar) Finish() {
	_ = pb.bar.Finish()
}
