// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import (
	"fmt"
	"time"
)

// NATS subjects that the recording service sends messages about.
const (
	// MeetingChangedSubjectPrefix is the prefix of the per-meeting change broadcast.
	// The subject is of the form: lfx.recordings.meeting.<meeting_id>.changed
	MeetingChangedSubjectPrefix = "lfx.recordings.meeting"

	// ContentGenerationSubject is the JetStream subject downstream content generation consumes.
	// The subject is of the form: lfx.recordings.content_generation
	ContentGenerationSubject = "lfx.recordings.content_generation"

	// ContentGenerationStream is the JetStream stream backing ContentGenerationSubject.
	ContentGenerationStream = "RECORDING_CONTENT_GENERATION"
)

// NATS wildcard subjects that the recording service handles messages about.
const (
	// RecordingsAPIQueue is the queue group for the recording service handlers.
	// The subject is of the form: lfx.recordings-api.queue
	RecordingsAPIQueue = "lfx.recordings-api.queue"
)

// NATS specific subjects that the recording service handles messages about.
const (
	// GetMeetingSubject returns a meeting with its transcript and participants.
	// The subject is of the form: lfx.recordings-api.get_meeting
	GetMeetingSubject = "lfx.recordings-api.get_meeting"

	// GetMeetingByBotSubject returns the meeting materialized for a bot.
	// The subject is of the form: lfx.recordings-api.get_meeting_by_bot
	GetMeetingByBotSubject = "lfx.recordings-api.get_meeting_by_bot"

	// ContentGeneratedSubject receives downstream content generation results.
	// The subject is of the form: lfx.recordings.content_generated
	ContentGeneratedSubject = "lfx.recordings.content_generated"
)

// MeetingChangedSubject returns the change broadcast subject for a meeting.
func MeetingChangedSubject(meetingID string) string {
	return fmt.Sprintf("%s.%s.changed", MeetingChangedSubjectPrefix, meetingID)
}

// MeetingChangeKind describes what changed about a meeting.
type MeetingChangeKind string

const (
	MeetingChangeCreated           MeetingChangeKind = "created"
	MeetingChangeTranscriptUpdated MeetingChangeKind = "transcript_updated"
	MeetingChangeContentReady      MeetingChangeKind = "content_ready"
)

// MeetingChangedMessage is broadcast when a meeting record changes.
type MeetingChangedMessage struct {
	MeetingID string            `json:"meeting_id"`
	BotID     string            `json:"bot_id,omitempty"`
	Kind      MeetingChangeKind `json:"kind"`
	ChangedAt time.Time         `json:"changed_at"`
}

// ContentGenerationJob asks downstream consumers to generate content for a meeting.
type ContentGenerationJob struct {
	RequestID   string    `json:"request_id"`
	MeetingID   string    `json:"meeting_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// ContentGeneratedMessage is a downstream delivery answering a ContentGenerationJob.
type ContentGeneratedMessage struct {
	RequestID string         `json:"request_id"`
	MeetingID string         `json:"meeting_id"`
	Content   map[string]any `json:"content,omitempty"`
}

// ContentRequest is a correlation table entry for an outstanding content generation job.
type ContentRequest struct {
	RequestID string    `json:"request_id"`
	MeetingID string    `json:"meeting_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the request timed out at the given instant.
func (r *ContentRequest) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
