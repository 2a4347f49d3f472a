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

// Package workers runs independent, side-effect-free checks on a bounded
// number of goroutines. Tasks never share mutable state; results are handed
// back to the caller, which aggregates them after the pool drains.
package workers

import (
	"context"
	"errors"
	"iter"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrStop may be returned by a task to stop the scheduling of further items.
// Tasks already scheduled always run to completion, so a caller pulling items
// in a fixed order sees every item preceding the one that stopped the pool.
var ErrStop = errors.New("workers: stop")

// Size normalizes a configured pool size: non-positive values select one
// worker per CPU.
func Size(n int) int {
	if n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Each runs fn for every item produced by seq using at most size goroutines.
// Items are pulled from seq lazily, only when a worker is free.
// The first error cancels the context passed to the remaining tasks and is returned.
func Each[T any](ctx context.Context, size int, seq iter.Seq[T], fn func(ctx context.Context, item T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Size(size))

	var stopped atomic.Bool
	for item := range seq {
		if stopped.Load() || gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			err := fn(gctx, item)
			if errors.Is(err, ErrStop) {
				stopped.Store(true)
				return nil
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Map applies fn to every item and returns the results in input order.
func Map[T, R any](ctx context.Context, size int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	out := make([]R, len(items))

	err := Each(ctx, size, indexes(len(items)), func(ctx context.Context, i int) error {
		r, err := fn(ctx, items[i])
		if err != nil {
			return err
		}
		out[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func indexes(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range n {
			if !yield(i) {
				return
			}
		}
	}
}
