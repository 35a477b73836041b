// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

import "time"

// Reconciliation defaults
const (
	// DefaultTranscriptAttemptCeiling is the number of empty backfill attempts
	// after which a meeting transcript is given up on.
	DefaultTranscriptAttemptCeiling = 5

	// DefaultReconcileInterval is the cadence of the reconciliation driver.
	DefaultReconcileInterval = 30 * time.Second

	// DefaultReconcileWorkers is the number of bots or meetings visited concurrently.
	DefaultReconcileWorkers = 1

	// DefaultContentRequestTimeout is how long a content generation request
	// stays correlatable before a late delivery is dropped.
	DefaultContentRequestTimeout = 30 * time.Minute

	// DefaultProviderTimeout bounds a single provider HTTP call.
	DefaultProviderTimeout = 30 * time.Second
)
