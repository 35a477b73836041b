// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPool_RunAll_ExecutesAllFunctions(t *testing.T) {
	ctx := context.Background()
	pool := NewWorkerPool(2)

	var executed int64
	errFirst := errors.New("first failed")
	errThird := errors.New("third failed")

	functions := []func() error{
		func() error {
			atomic.AddInt64(&executed, 1)
			time.Sleep(10 * time.Millisecond)
			return errFirst
		},
		func() error {
			atomic.AddInt64(&executed, 1)
			return nil
		},
		func() error {
			atomic.AddInt64(&executed, 1)
			return errThird
		},
		func() error {
			atomic.AddInt64(&executed, 1)
			return nil
		},
	}

	errs := pool.RunAll(ctx, functions...)
	assert.Equal(t, int64(4), atomic.LoadInt64(&executed), "every function runs even when some fail")
	require.Len(t, errs, 2)
	assert.Equal(t, errFirst, errs[0], "errors are reported in submission order")
	assert.Equal(t, errThird, errs[1])
}

func TestWorkerPool_RunAll_EmptyFunctions(t *testing.T) {
	pool := NewWorkerPool(2)
	assert.Nil(t, pool.RunAll(context.Background()))
}

func TestWorkerPool_RunAll_AllSucceed(t *testing.T) {
	pool := NewWorkerPool(3)

	var counter int64
	functions := make([]func() error, 10)
	for i := range functions {
		functions[i] = func() error {
			atomic.AddInt64(&counter, 1)
			return nil
		}
	}

	errs := pool.RunAll(context.Background(), functions...)
	assert.Empty(t, errs)
	assert.Equal(t, int64(10), atomic.LoadInt64(&counter))
}

func TestWorkerPool_RunAll_RespectsLimit(t *testing.T) {
	pool := NewWorkerPool(2)

	var running, peak int64
	functions := make([]func() error, 6)
	for i := range functions {
		functions[i] = func() error {
			n := atomic.AddInt64(&running, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return nil
		}
	}

	pool.RunAll(context.Background(), functions...)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(2))
}

func TestWorkerPool_SingleWorkerIsSequential(t *testing.T) {
	pool := NewWorkerPool(1)

	var mu sync.Mutex
	var order []int
	errs := ForEach(context.Background(), pool, []int{1, 2, 3, 4}, func(_ context.Context, n int) error {
		mu.Lock()
		order = append(order, n)
		mu.Unlock()
		return nil
	})

	assert.Empty(t, errs)
	assert.Equal(t, []int{1, 2, 3, 4}, order)
}

func TestWorkerPool_RunAll_WithCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewWorkerPool(2)
	var executed int64
	errs := pool.RunAll(ctx,
		func() error { atomic.AddInt64(&executed, 1); return nil },
		func() error { atomic.AddInt64(&executed, 1); return nil },
	)

	assert.Equal(t, int64(0), atomic.LoadInt64(&executed))
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestForEach_PassesItems(t *testing.T) {
	pool := NewWorkerPool(3)
	boom := errors.New("boom")

	errs := ForEach(context.Background(), pool, []string{"a", "b", "c"}, func(_ context.Context, s string) error {
		if s == "b" {
			return boom
		}
		return nil
	})

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestNewWorkerPool_InvalidWorkerCount(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		expected int
	}{
		{"zero", 0, 1},
		{"negative", -5, 1},
		{"positive", 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NewWorkerPool(tt.count).workerCount)
		})
	}
}
