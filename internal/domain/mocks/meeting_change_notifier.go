// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// MockMeetingChangeNotifier implements MeetingChangeNotifier for testing
type MockMeetingChangeNotifier struct {
	mock.Mock
}

func (m *MockMeetingChangeNotifier) BroadcastMeetingChanged(ctx context.Context, msg models.MeetingChangedMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMeetingChangeNotifier) EnqueueContentGeneration(ctx context.Context, job models.ContentGenerationJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}
