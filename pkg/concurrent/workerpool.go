// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds how many reconciliation jobs run at the same time.
// A pool of one worker runs jobs sequentially in submission order.
type WorkerPool struct {
	workerCount int
}

// RunAll executes all functions without cancellation on error.
// Returns the non-nil errors in submission order. Functions that had not
// started when ctx was cancelled are skipped and report ctx.Err().
func (wp *WorkerPool) RunAll(ctx context.Context, functions ...func() error) []error {
	if len(functions) == 0 {
		return nil
	}

	type indexedError struct {
		index int
		err   error
	}
	errorChan := make(chan indexedError, len(functions))

	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for i, fn := range functions {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				errorChan <- indexedError{index: i, err: ctx.Err()}
				return nil
			default:
			}

			if err := fn(); err != nil {
				errorChan <- indexedError{index: i, err: err}
			}
			return nil
		})
	}

	_ = g.Wait()
	close(errorChan)

	var indexed []indexedError
	for ie := range errorChan {
		indexed = append(indexed, ie)
	}
	sort.Slice(indexed, func(a, b int) bool { return indexed[a].index < indexed[b].index })

	var errs []error
	for _, ie := range indexed {
		errs = append(errs, ie.err)
	}
	return errs
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// ForEach runs fn once for every item on the pool and returns the errors in
// item order.
func ForEach[T any](ctx context.Context, wp *WorkerPool, items []T, fn func(ctx context.Context, item T) error) []error {
	functions := make([]func() error, 0, len(items))
	for _, item := range items {
		functions = append(functions, func() error {
			return fn(ctx, item)
		})
	}
	return wp.RunAll(ctx, functions...)
}
