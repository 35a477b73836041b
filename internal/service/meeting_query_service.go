// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

// MeetingQueryService serves read access to materialized meetings.
type MeetingQueryService struct {
	meetingRepository domain.MeetingRepository
}

// NewMeetingQueryService creates a new MeetingQueryService.
func NewMeetingQueryService(meetingRepository domain.MeetingRepository) *MeetingQueryService {
	return &MeetingQueryService{meetingRepository: meetingRepository}
}

// ServiceReady checks if the service is ready to serve requests.
func (s *MeetingQueryService) ServiceReady() bool {
	return s.meetingRepository != nil
}

// GetMeetingWithDetails returns a meeting with its transcript and participants.
func (s *MeetingQueryService) GetMeetingWithDetails(ctx context.Context, meetingID string) (*models.MeetingDetails, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("service not initialized")
	}
	if meetingID == "" {
		return nil, domain.NewValidationError("meeting id is required")
	}

	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))

	details, err := s.meetingRepository.GetMeetingWithDetails(ctx, meetingID)
	if err != nil {
		slog.ErrorContext(ctx, "error getting meeting", logging.ErrKey, err)
		return nil, err
	}
	if details == nil {
		return nil, domain.NewNotFoundError("meeting not found")
	}
	if details.Participants == nil {
		details.Participants = []models.Participant{}
	}
	return details, nil
}

// GetMeetingByBot returns the meeting materialized for a bot.
func (s *MeetingQueryService) GetMeetingByBot(ctx context.Context, botID string) (*models.Meeting, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("service not initialized")
	}
	if botID == "" {
		return nil, domain.NewValidationError("bot id is required")
	}

	ctx = logging.AppendCtx(ctx, slog.String("bot_id", botID))

	meeting, err := s.meetingRepository.GetMeetingByBot(ctx, botID)
	if err != nil {
		slog.ErrorContext(ctx, "error getting meeting by bot", logging.ErrKey, err)
		return nil, err
	}
	if meeting == nil {
		return nil, domain.NewNotFoundError("no meeting for bot")
	}
	return meeting, nil
}
