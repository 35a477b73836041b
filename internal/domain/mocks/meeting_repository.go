// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// MockMeetingRepository implements MeetingRepository for testing
type MockMeetingRepository struct {
	mock.Mock
}

func (m *MockMeetingRepository) GetMeetingByBot(ctx context.Context, botID string) (*models.Meeting, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Meeting), args.Error(1)
}

func (m *MockMeetingRepository) GetMeetingWithDetails(ctx context.Context, meetingID string) (*models.MeetingDetails, error) {
	args := m.Called(ctx, meetingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MeetingDetails), args.Error(1)
}

func (m *MockMeetingRepository) CreateMeetingRecord(ctx context.Context, record *models.MeetingRecord) ([]models.ParticipantFailure, error) {
	args := m.Called(ctx, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ParticipantFailure), args.Error(1)
}

func (m *MockMeetingRepository) ListBackfillCandidates(ctx context.Context, ceiling int) ([]*models.BackfillCandidate, error) {
	args := m.Called(ctx, ceiling)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BackfillCandidate), args.Error(1)
}

func (m *MockMeetingRepository) IncrementTranscriptAttempts(ctx context.Context, meetingID string) (int, error) {
	args := m.Called(ctx, meetingID)
	return args.Int(0), args.Error(1)
}

func (m *MockMeetingRepository) SaveTranscript(ctx context.Context, meetingID string, segments []models.Segment, language string) error {
	args := m.Called(ctx, meetingID, segments, language)
	return args.Error(0)
}
