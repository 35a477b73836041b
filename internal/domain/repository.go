// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// BotRepository defines the interface for bot storage operations.
// Getters return nil and no error when the bot does not exist.
type BotRepository interface {
	CreateBot(ctx context.Context, bot *models.Bot) error
	GetBot(ctx context.Context, botID string) (*models.Bot, error)
	SetBotStatus(ctx context.Context, botID string, status models.BotStatus) error
	// ListPendingBots returns bots whose status is not terminal.
	ListPendingBots(ctx context.Context) ([]*models.Bot, error)
	// ListDoneBotsWithoutMeeting returns done bots that were never materialized.
	ListDoneBotsWithoutMeeting(ctx context.Context) ([]*models.Bot, error)
}

// MeetingRepository defines the interface for meeting storage operations.
type MeetingRepository interface {
	GetMeetingByBot(ctx context.Context, botID string) (*models.Meeting, error)
	GetMeetingWithDetails(ctx context.Context, meetingID string) (*models.MeetingDetails, error)
	// CreateMeetingRecord atomically writes the meeting, its transcript and its
	// participants. Participant rows that cannot be written are skipped and
	// returned as failures. A meeting that already exists for the bot yields a
	// Conflict error wrapping ErrMeetingAlreadyExists.
	CreateMeetingRecord(ctx context.Context, record *models.MeetingRecord) ([]models.ParticipantFailure, error)
	// ListBackfillCandidates returns meetings with an empty transcript whose
	// attempt counter is below ceiling.
	ListBackfillCandidates(ctx context.Context, ceiling int) ([]*models.BackfillCandidate, error)
	// IncrementTranscriptAttempts bumps the attempt counter and returns its new value.
	IncrementTranscriptAttempts(ctx context.Context, meetingID string) (int, error)
	// SaveTranscript replaces the transcript segments and resets the attempt
	// counter to zero in one transaction.
	SaveTranscript(ctx context.Context, meetingID string, segments []models.Segment, language string) error
}

// CalendarEventRepository provides read access to calendar events owned by
// the scheduling collaborator.
type CalendarEventRepository interface {
	CreateCalendarEvent(ctx context.Context, event *models.CalendarEvent) error
	GetCalendarEvent(ctx context.Context, eventID string) (*models.CalendarEvent, error)
}

// ContentRequestRepository tracks outstanding content generation requests.
type ContentRequestRepository interface {
	Create(ctx context.Context, request *models.ContentRequest) error
	// GetWithRevision returns a NotFound error when the request id is unknown.
	GetWithRevision(ctx context.Context, requestID string) (*models.ContentRequest, uint64, error)
	// Delete removes the request only while it is still at revision. It
	// returns NotFound once the request is gone and Conflict when the
	// request changed since it was read.
	Delete(ctx context.Context, requestID string, revision uint64) error
}
