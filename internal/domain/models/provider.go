// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// Provider transcript job status codes.
const (
	TranscriptJobStatusProcessing = "processing"
	TranscriptJobStatusDone       = "done"
	TranscriptJobStatusFailed     = "failed"
)

// BotInfo is the normalized view of a bot as reported by the recording provider.
type BotInfo struct {
	ID            string                `json:"id"`
	Title         string                `json:"title,omitempty"`
	StatusHistory []StatusChange        `json:"status_history"`
	Recordings    []Recording           `json:"recordings"`
	Participants  []ProviderParticipant `json:"participants"`
}

// FirstRecording returns the first recording of the bot, or nil.
func (b *BotInfo) FirstRecording() *Recording {
	if b == nil || len(b.Recordings) == 0 {
		return nil
	}
	return &b.Recordings[0]
}

// StatusChange is one entry of the provider status history.
type StatusChange struct {
	Code      string     `json:"code"`
	SubCode   string     `json:"sub_code,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Recording is one media artifact captured by a bot.
type Recording struct {
	ID               string            `json:"id"`
	Status           string            `json:"status"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	CompletedAt      *time.Time        `json:"completed_at,omitempty"`
	TranscriptJobRef *TranscriptJobRef `json:"transcript_job,omitempty"`
}

// TranscriptJobRef references the asynchronous transcription job of a recording.
type TranscriptJobRef struct {
	ID          string `json:"id"`
	Status      string `json:"status,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// TranscriptJob is the polled state of a transcription job.
type TranscriptJob struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	DownloadURL string `json:"download_url,omitempty"`
}

// IsDone reports whether the provider finished the job.
func (j *TranscriptJob) IsDone() bool {
	return j != nil && j.Status == TranscriptJobStatusDone
}

// ProviderParticipant is an entry of the provider-level participant list.
type ProviderParticipant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"is_host"`
}
