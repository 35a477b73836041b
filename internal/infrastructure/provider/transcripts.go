// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

// CreateTranscriptJobRequest is the body of a transcript job request.
type CreateTranscriptJobRequest struct {
	Provider map[string]any `json:"provider"`
}

// CreateTranscriptJob asks the provider to transcribe a recording. A 409
// means a job already exists and is returned as a ConflictError.
func (c *Client) CreateTranscriptJob(ctx context.Context, recordingID string) (*models.TranscriptJobRef, error) {
	if recordingID == "" {
		return nil, domain.NewValidationError("recording id is required")
	}

	path := fmt.Sprintf("/recording/%s/create_transcript/", url.PathEscape(recordingID))
	request := CreateTranscriptJobRequest{
		Provider: map[string]any{"recallai_async": map[string]any{}},
	}

	body, err := c.doRequest(ctx, c.httpClient, http.MethodPost, c.config.BaseURL+path, path, request)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
			return nil, domain.NewConflictError(fmt.Sprintf("transcript already requested for recording %s", recordingID), err)
		}
		return nil, domain.NewProviderError(fmt.Sprintf("failed to create transcript job for recording %s", recordingID), err)
	}

	payload, err := decodeBody(body)
	if err != nil {
		return nil, domain.NewProviderError("failed to decode transcript job", err)
	}
	job, err := normalizeTranscriptJob(payload)
	if err != nil {
		return nil, domain.NewProviderError("failed to decode transcript job", err)
	}

	slog.DebugContext(ctx, "requested transcript job",
		"recording_id", recordingID,
		"transcript_job_id", job.ID,
	)
	return &models.TranscriptJobRef{ID: job.ID, Status: job.Status, DownloadURL: job.DownloadURL}, nil
}

// GetTranscriptJob returns the current state of a transcript job.
func (c *Client) GetTranscriptJob(ctx context.Context, jobID string) (*models.TranscriptJob, error) {
	if jobID == "" {
		return nil, domain.NewValidationError("transcript job id is required")
	}

	path := fmt.Sprintf("/transcript/%s/", url.PathEscape(jobID))
	body, err := c.doRequest(ctx, c.httpClient, http.MethodGet, c.config.BaseURL+path, path, nil)
	if err != nil {
		return nil, domain.NewProviderError(fmt.Sprintf("failed to get transcript job %s", jobID), err)
	}

	payload, err := decodeBody(body)
	if err != nil {
		return nil, domain.NewProviderError(fmt.Sprintf("failed to decode transcript job %s", jobID), err)
	}
	job, err := normalizeTranscriptJob(payload)
	if err != nil {
		return nil, domain.NewProviderError(fmt.Sprintf("failed to decode transcript job %s", jobID), err)
	}
	if job.ID == "" {
		job.ID = jobID
	}
	return job, nil
}

// Download fetches a transcript from a pre-signed URL and normalizes its
// segments. Transport and status failures are errors; an unrecognized
// payload is not and yields no segments.
func (c *Client) Download(ctx context.Context, downloadURL string) ([]models.Segment, error) {
	parsed, err := url.Parse(downloadURL)
	if err != nil || parsed.Host == "" {
		return nil, domain.NewValidationError("invalid transcript download url", err)
	}

	// Pre-signed URLs carry credentials in the query string, which is never logged.
	label := parsed.Host + parsed.Path
	body, err := c.doRequest(ctx, c.downloadClient, http.MethodGet, downloadURL, label, nil)
	if err != nil {
		return nil, domain.NewProviderError("failed to download transcript", err)
	}

	payload, err := decodeBody(body)
	if err != nil {
		slog.WarnContext(ctx, "transcript download is not valid JSON",
			"host", parsed.Host,
			logging.ErrKey, err,
		)
		return []models.Segment{}, nil
	}
	return normalizeSegments(ctx, payload), nil
}
