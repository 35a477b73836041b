// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

func TestMeetingQueryService_GetMeetingWithDetails(t *testing.T) {
	tests := []struct {
		name       string
		meetingID  string
		setupMocks func(repo *mocks.MockMeetingRepository)
		wantErr    domain.ErrorType
		wantOK     bool
	}{
		{
			name:      "found",
			meetingID: "meeting-1",
			setupMocks: func(repo *mocks.MockMeetingRepository) {
				repo.On("GetMeetingWithDetails", mock.Anything, "meeting-1").Return(&models.MeetingDetails{
					Meeting: models.Meeting{ID: "meeting-1"},
				}, nil)
			},
			wantOK: true,
		},
		{
			name:      "missing",
			meetingID: "meeting-2",
			setupMocks: func(repo *mocks.MockMeetingRepository) {
				repo.On("GetMeetingWithDetails", mock.Anything, "meeting-2").Return(nil, nil)
			},
			wantErr: domain.ErrorTypeNotFound,
		},
		{
			name:       "empty id",
			setupMocks: func(repo *mocks.MockMeetingRepository) {},
			wantErr:    domain.ErrorTypeValidation,
		},
		{
			name:      "store failure",
			meetingID: "meeting-3",
			setupMocks: func(repo *mocks.MockMeetingRepository) {
				repo.On("GetMeetingWithDetails", mock.Anything, "meeting-3").Return(nil, domain.NewUnavailableError("store not ready"))
			},
			wantErr: domain.ErrorTypeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockMeetingRepository{}
			tt.setupMocks(repo)

			details, err := NewMeetingQueryService(repo).GetMeetingWithDetails(context.Background(), tt.meetingID)
			if tt.wantOK {
				require.NoError(t, err)
				assert.Equal(t, tt.meetingID, details.ID)
				assert.NotNil(t, details.Participants)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, domain.GetErrorType(err))
		})
	}
}

func TestMeetingQueryService_GetMeetingByBot(t *testing.T) {
	repo := &mocks.MockMeetingRepository{}
	repo.On("GetMeetingByBot", mock.Anything, "bot-1").Return(&models.Meeting{ID: "meeting-1", BotID: "bot-1"}, nil)
	repo.On("GetMeetingByBot", mock.Anything, "bot-2").Return(nil, nil)
	s := NewMeetingQueryService(repo)

	meeting, err := s.GetMeetingByBot(context.Background(), "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "meeting-1", meeting.ID)

	_, err = s.GetMeetingByBot(context.Background(), "bot-2")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

	_, err = s.GetMeetingByBot(context.Background(), "")
	assert.Equal(t, domain.ErrorTypeValidation, domain.GetErrorType(err))

	_, err = NewMeetingQueryService(nil).GetMeetingByBot(context.Background(), "bot-1")
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}
