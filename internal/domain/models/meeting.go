// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package models

import "time"

// DefaultMeetingTitle is used when neither the calendar nor the provider supplies a title.
const DefaultMeetingTitle = "Recorded Meeting"

// UnknownTranscriptLanguage is stored when no segment declares a language.
const UnknownTranscriptLanguage = "unknown"

// Meeting is the durable record materialized once a bot reaches the done state.
type Meeting struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	RecordedAt         *time.Time `json:"recorded_at,omitempty"`
	DurationSeconds    *int64     `json:"duration_seconds,omitempty"`
	CalendarEventID    string     `json:"calendar_event_id,omitempty"`
	BotID              string     `json:"bot_id"`
	TranscriptAttempts int        `json:"transcript_attempts"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Transcript holds the ordered segments of a meeting. An empty segment list means
// the transcript was attempted but is not available yet.
type Transcript struct {
	MeetingID string    `json:"meeting_id"`
	Segments  []Segment `json:"segments"`
	Language  string    `json:"language"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsEmpty reports whether no segments are stored.
func (t *Transcript) IsEmpty() bool {
	return t == nil || len(t.Segments) == 0
}

// Participant is a person seen in a recorded meeting.
type Participant struct {
	MeetingID             string  `json:"meeting_id"`
	ExternalParticipantID *string `json:"external_participant_id,omitempty"`
	Name                  string  `json:"name"`
	IsHost                bool    `json:"is_host"`
}

// IdentityKey returns the deduplication key of the participant: the external id when
// present, otherwise the name.
func (p Participant) IdentityKey() string {
	if p.ExternalParticipantID != nil && *p.ExternalParticipantID != "" {
		return "id:" + *p.ExternalParticipantID
	}
	return "name:" + p.Name
}

// MeetingDetails is a meeting together with its transcript and participants.
type MeetingDetails struct {
	Meeting
	Transcript   *Transcript   `json:"transcript,omitempty"`
	Participants []Participant `json:"participants"`
}

// MeetingRecord is everything the materializer writes in one transaction.
type MeetingRecord struct {
	Meeting      *Meeting
	Transcript   *Transcript
	Participants []Participant
}

// BackfillCandidate is a meeting whose transcript is still empty and below the attempt ceiling.
type BackfillCandidate struct {
	MeetingID          string
	BotID              string
	BotExternalID      string
	TranscriptAttempts int
}

// ParticipantFailure records a participant row that could not be written.
type ParticipantFailure struct {
	Participant Participant
	Err         error
}
