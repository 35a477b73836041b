// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import "sync"

// ReconcileReport summarizes one pass of the status loop.
type ReconcileReport struct {
	Visited       int
	StatusChanged int
	PollingErrors int
	Materialized  int
	Failed        int
	// Handled lists the bots the pass visited, in visit order. The retry pass
	// of the same tick skips them.
	Handled []string
}

// BackfillReport summarizes one pass of the transcript backfill loop.
type BackfillReport struct {
	Candidates int
	Populated  int
	Pending    int
	GivenUp    int
	Failed     int
}

// tally lets pool workers update a report concurrently.
type tally[T any] struct {
	mu     sync.Mutex
	report T
}

func (t *tally[T]) add(fn func(r *T)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.report)
}

func (t *tally[T]) snapshot() T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.report
}
