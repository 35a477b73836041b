// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// RecordingProvider is the boundary to the external recording provider.
// Implementations normalize every payload into the canonical models before returning.
type RecordingProvider interface {
	// GetBot returns the provider view of a bot. Errors are ProviderErrors.
	GetBot(ctx context.Context, externalID string) (*models.BotInfo, error)
	// CreateTranscriptJob asks the provider to transcribe a recording.
	// A ConflictError means a job was already requested.
	CreateTranscriptJob(ctx context.Context, recordingID string) (*models.TranscriptJobRef, error)
	// GetTranscriptJob returns the current state of a transcript job.
	GetTranscriptJob(ctx context.Context, jobID string) (*models.TranscriptJob, error)
	// Download fetches and normalizes transcript segments. Unrecognized payload
	// shapes yield an empty slice, not an error.
	Download(ctx context.Context, url string) ([]models.Segment, error)
}
