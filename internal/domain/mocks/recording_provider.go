// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// MockRecordingProvider implements RecordingProvider for testing
type MockRecordingProvider struct {
	mock.Mock
}

func (m *MockRecordingProvider) GetBot(ctx context.Context, externalID string) (*models.BotInfo, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BotInfo), args.Error(1)
}

func (m *MockRecordingProvider) CreateTranscriptJob(ctx context.Context, recordingID string) (*models.TranscriptJobRef, error) {
	args := m.Called(ctx, recordingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TranscriptJobRef), args.Error(1)
}

func (m *MockRecordingProvider) GetTranscriptJob(ctx context.Context, jobID string) (*models.TranscriptJob, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TranscriptJob), args.Error(1)
}

func (m *MockRecordingProvider) Download(ctx context.Context, url string) ([]models.Segment, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Segment), args.Error(1)
}
