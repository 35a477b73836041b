// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/constants"
)

// ErrDriverLocked is returned by Run when another driver holds the lock file.
var ErrDriverLocked = errors.New("another reconciliation driver is already running")

// StatusLoop is the status side of a reconciliation tick.
type StatusLoop interface {
	ReconcileStatuses(ctx context.Context) (service.ReconcileReport, error)
	RetryMissingMeetings(ctx context.Context, skip []string) (service.ReconcileReport, error)
}

// BackfillLoop is the transcript side of a reconciliation tick.
type BackfillLoop interface {
	Backfill(ctx context.Context) (service.BackfillReport, error)
}

// Config configures a Driver.
type Config struct {
	// Interval is the time between two ticks.
	Interval time.Duration
	// LockPath is the file locked while the driver runs. Empty disables locking.
	LockPath string
}

// TickReport aggregates the reports of the three steps of one tick.
type TickReport struct {
	Status   service.ReconcileReport
	Retry    service.ReconcileReport
	Backfill service.BackfillReport
	Errors   []error
}

// Driver runs the reconciliation loops on a fixed cadence. Steps run
// sequentially within a tick and ticks never overlap.
type Driver struct {
	status   StatusLoop
	backfill BackfillLoop
	clock    Clock
	interval time.Duration
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ticks   atomic.Int64
}

// NewDriver creates a new Driver. A nil clock uses the real clock.
func NewDriver(status StatusLoop, backfill BackfillLoop, clock Clock, config Config) (*Driver, error) {
	if status == nil || backfill == nil {
		return nil, domain.NewValidationError("driver requires a status loop and a backfill loop")
	}
	if clock == nil {
		clock = RealClock()
	}
	if config.Interval <= 0 {
		config.Interval = constants.DefaultReconcileInterval
	}

	d := &Driver{
		status:   status,
		backfill: backfill,
		clock:    clock,
		interval: config.Interval,
		lockPath: config.LockPath,
	}
	if config.LockPath != "" {
		d.lock = flock.New(config.LockPath)
	}
	return d, nil
}

// Ticks returns the number of ticks run so far.
func (d *Driver) Ticks() int64 {
	return d.ticks.Load()
}

// Tick runs one status pass, one retry pass and one backfill pass. A step
// whose candidates cannot be listed is logged and does not stop the others.
func (d *Driver) Tick(ctx context.Context) TickReport {
	tick := d.ticks.Add(1)
	ctx = logging.AppendCtx(ctx, slog.Int64("tick", tick))
	started := d.clock.Now()

	var report TickReport
	var err error

	if report.Status, err = d.status.ReconcileStatuses(ctx); err != nil {
		slog.ErrorContext(ctx, "status pass failed", logging.ErrKey, err)
		report.Errors = append(report.Errors, fmt.Errorf("status pass: %w", err))
	}
	// Bots the status pass already visited wait for the next tick.
	if report.Retry, err = d.status.RetryMissingMeetings(ctx, report.Status.Handled); err != nil {
		slog.ErrorContext(ctx, "retry pass failed", logging.ErrKey, err)
		report.Errors = append(report.Errors, fmt.Errorf("retry pass: %w", err))
	}
	if report.Backfill, err = d.backfill.Backfill(ctx); err != nil {
		slog.ErrorContext(ctx, "backfill pass failed", logging.ErrKey, err)
		report.Errors = append(report.Errors, fmt.Errorf("backfill pass: %w", err))
	}

	slog.DebugContext(ctx, "reconciliation tick finished",
		"elapsed", d.clock.Now().Sub(started),
		"bots_visited", report.Status.Visited,
		"meetings_materialized", report.Status.Materialized+report.Retry.Materialized,
		"transcripts_backfilled", report.Backfill.Populated,
		"errors", len(report.Errors),
	)
	return report
}

// Run acquires the driver lock, runs a tick immediately and then one tick per
// interval until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return domain.NewConflictError("driver already running")
	}
	defer d.running.Store(false)

	if d.lock != nil {
		ok, err := d.lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquire driver lock: %w", err)
		}
		if !ok {
			return ErrDriverLocked
		}
		defer func() {
			if err := d.lock.Unlock(); err != nil {
				slog.WarnContext(ctx, "error releasing driver lock", logging.ErrKey, err)
			}
		}()
	}

	slog.InfoContext(ctx, "reconciliation driver started",
		"interval", d.interval,
		"lock", d.lockPath,
	)

	ticker := d.clock.NewTicker(d.interval)
	defer ticker.Stop()

	d.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "reconciliation driver stopped", "ticks", d.Ticks())
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			d.Tick(ctx)
		}
	}
}
