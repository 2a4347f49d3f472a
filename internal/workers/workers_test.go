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
package workers_test

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ostafen/raidrescue/internal/workers"
	"github.com/stretchr/testify/require"
)

func count(n int) iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := range n {
			if !yield(i) {
				return
			}
		}
	}
}

func TestEachRespectsLimit(t *testing.T) {
	const size = 3

	var running, peak, done atomic.Int32
	err := workers.Each(context.Background(), size, count(50), func(ctx context.Context, _ int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		done.Add(1)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, int32(50), done.Load())
	require.LessOrEqual(t, peak.Load(), int32(size))
}

func TestEachStop(t *testing.T) {
	var pulled atomic.Int32
	seq := func(yield func(int) bool) {
		for i := range 1000 {
			pulled.Add(1)
			if !yield(i) {
				return
			}
		}
	}

	err := workers.Each(context.Background(), 1, seq, func(ctx context.Context, i int) error {
		if i == 5 {
			return workers.ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	require.Less(t, pulled.Load(), int32(1000))
}

func TestEachError(t *testing.T) {
	boom := errors.New("boom")
	err := workers.Each(context.Background(), 4, count(100), func(ctx context.Context, i int) error {
		if i == 10 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
}

func TestEachCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := workers.Each(ctx, 2, count(10), func(ctx context.Context, i int) error {
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMapKeepsOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	out, err := workers.Map(context.Background(), 3, items, func(ctx context.Context, x int) (int, error) {
		time.Sleep(time.Duration(x) * time.Millisecond)
		return x * x, nil
	})
	require.NoError(t, err)
	require.Equal(t, []int{25, 1, 16, 4, 9}, out)
}

func TestSize(t *testing.T) {
	require.Equal(t, 7, workers.Size(7))
	require.Positive(t, workers.Size(0))
}
