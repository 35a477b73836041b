// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/constants"
)

// Service is implemented by every reconciler service. The readiness probe
// reports not ready while any service is missing a dependency.
type Service interface {
	ServiceReady() bool
}

// ServiceConfig is the configuration for the Services.
type ServiceConfig struct {
	// TranscriptAttemptCeiling is the number of empty transcript attempts after
	// which a meeting is no longer backfilled.
	TranscriptAttemptCeiling int
	// Workers is the number of bots or meetings a loop visits concurrently.
	Workers int
	// ContentRequestTimeout is how long a content generation request accepts deliveries.
	ContentRequestTimeout time.Duration
}

// withDefaults fills unset values.
func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.TranscriptAttemptCeiling <= 0 {
		c.TranscriptAttemptCeiling = constants.DefaultTranscriptAttemptCeiling
	}
	if c.Workers <= 0 {
		c.Workers = constants.DefaultReconcileWorkers
	}
	if c.ContentRequestTimeout <= 0 {
		c.ContentRequestTimeout = constants.DefaultContentRequestTimeout
	}
	return c
}

func utcNow() time.Time {
	return time.Now().UTC()
}
