// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	ticker := clock.NewTicker(time.Second)

	clock.Advance(500 * time.Millisecond)
	assert.Equal(t, start.Add(500*time.Millisecond), clock.Now())
	select {
	case <-ticker.C:
		t.Fatal("unexpected tick")
	default:
	}

	clock.Advance(3 * time.Second)
	select {
	case at := <-ticker.C:
		assert.Equal(t, start.Add(time.Second), at)
	default:
		t.Fatal("expected a tick")
	}
	// Overflowing ticks are dropped.
	select {
	case <-ticker.C:
		t.Fatal("expected missed ticks to be dropped")
	default:
	}

	ticker.Stop()
	assert.Equal(t, 0, clock.ActiveTickers())
	clock.Advance(time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestFakeClock_NewTickerPanicsOnNonPositiveInterval(t *testing.T) {
	assert.Panics(t, func() { NewFakeClock(time.Now()).NewTicker(0) })
}
