// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/mocks"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

type reconcilerMocks struct {
	bots     *mocks.MockBotRepository
	meetings *mocks.MockMeetingRepository
	calendar *mocks.MockCalendarEventRepository
	provider *mocks.MockRecordingProvider
	notifier *mocks.MockMeetingChangeNotifier
}

func newReconcilerMocks() *reconcilerMocks {
	return &reconcilerMocks{
		bots:     &mocks.MockBotRepository{},
		meetings: &mocks.MockMeetingRepository{},
		calendar: &mocks.MockCalendarEventRepository{},
		provider: &mocks.MockRecordingProvider{},
		notifier: &mocks.MockMeetingChangeNotifier{},
	}
}

func (m *reconcilerMocks) reconciler() *StatusReconciler {
	materializer := NewMeetingMaterializer(m.meetings, m.calendar, m.notifier, nil)
	materializer.newID = func() string { return "meeting-1" }
	materializer.now = func() time.Time { return testNow }
	return NewStatusReconciler(m.bots, m.meetings, m.provider, materializer, ServiceConfig{Workers: 2})
}

func (m *reconcilerMocks) assertExpectations(t *testing.T) {
	m.bots.AssertExpectations(t)
	m.meetings.AssertExpectations(t)
	m.calendar.AssertExpectations(t)
	m.provider.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
}

func doneBotInfo(ref *models.TranscriptJobRef) *models.BotInfo {
	start := testNow.Add(-time.Hour)
	end := testNow.Add(-30 * time.Minute)
	return &models.BotInfo{
		ID:    "ext-1",
		Title: "Provider title",
		StatusHistory: []models.StatusChange{
			{Code: "in_call_recording"},
			{Code: "done"},
		},
		Recordings: []models.Recording{
			{ID: "rec-1", Status: "done", StartedAt: &start, CompletedAt: &end, TranscriptJobRef: ref},
		},
		Participants: []models.ProviderParticipant{{ID: "p1", Name: "Alice", IsHost: true}},
	}
}

func TestDeriveBotStatus(t *testing.T) {
	tests := []struct {
		name     string
		info     *models.BotInfo
		expected models.BotStatus
	}{
		{
			name:     "nil info",
			expected: models.BotStatusPending,
		},
		{
			name: "latest history entry wins",
			info: &models.BotInfo{StatusHistory: []models.StatusChange{
				{Code: "joining_call"},
				{Code: "in_call"},
			}},
			expected: models.BotStatusInCall,
		},
		{
			name: "blank trailing codes are skipped",
			info: &models.BotInfo{StatusHistory: []models.StatusChange{
				{Code: "call_ended"},
				{Code: ""},
			}},
			expected: models.BotStatusCallEnded,
		},
		{
			name: "falls back to the first recording",
			info: &models.BotInfo{Recordings: []models.Recording{
				{ID: "rec-1", Status: "processing"},
				{ID: "rec-2", Status: "done"},
			}},
			expected: models.BotStatusProcessing,
		},
		{
			name:     "nothing known",
			info:     &models.BotInfo{},
			expected: models.BotStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DeriveBotStatus(tt.info))
		})
	}
}

func TestStatusReconciler_ServiceReady(t *testing.T) {
	m := newReconcilerMocks()
	assert.True(t, m.reconciler().ServiceReady())
	assert.False(t, NewStatusReconciler(nil, m.meetings, m.provider, nil, ServiceConfig{}).ServiceReady())

	_, err := NewStatusReconciler(nil, nil, nil, nil, ServiceConfig{}).ReconcileStatuses(context.Background())
	assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
}

func TestStatusReconciler_ReconcileStatuses_NonTerminal(t *testing.T) {
	m := newReconcilerMocks()
	bot := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusPending}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{bot, bot}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(&models.BotInfo{
		StatusHistory: []models.StatusChange{{Code: "in_call_recording"}},
	}, nil).Once()
	m.bots.On("SetBotStatus", mock.Anything, "bot-1", models.BotStatusInCallRecording).Return(nil).Once()

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Visited: 1, StatusChanged: 1, Handled: []string{"bot-1"}}, report)
	m.meetings.AssertNotCalled(t, "GetMeetingByBot", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestStatusReconciler_ReconcileStatuses_UnchangedStatusIsStillStored(t *testing.T) {
	m := newReconcilerMocks()
	bot := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusInCall}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{bot}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(&models.BotInfo{
		StatusHistory: []models.StatusChange{{Code: "in_call"}},
	}, nil)
	m.bots.On("SetBotStatus", mock.Anything, "bot-1", models.BotStatusInCall).Return(nil).Once()

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Visited: 1, Handled: []string{"bot-1"}}, report)
	m.assertExpectations(t)
}

func TestStatusReconciler_ReconcileStatuses_PollingError(t *testing.T) {
	m := newReconcilerMocks()
	failing := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusInCall}
	healthy := &models.Bot{ID: "bot-2", ExternalID: "ext-2", Status: models.BotStatusInCall}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{failing, healthy}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(nil, domain.NewProviderError("provider unavailable"))
	m.bots.On("SetBotStatus", mock.Anything, "bot-1", models.BotStatusPollingError).Return(nil).Once()
	m.provider.On("GetBot", mock.Anything, "ext-2").Return(&models.BotInfo{
		StatusHistory: []models.StatusChange{{Code: "call_ended"}},
	}, nil)
	m.bots.On("SetBotStatus", mock.Anything, "bot-2", models.BotStatusCallEnded).Return(nil).Once()

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Visited)
	assert.Equal(t, 1, report.PollingErrors)
	assert.Equal(t, 1, report.StatusChanged)
	m.assertExpectations(t)
}

func TestStatusReconciler_ReconcileStatuses_ListFailure(t *testing.T) {
	m := newReconcilerMocks()
	m.bots.On("ListPendingBots", mock.Anything).Return(nil, domain.NewPersistenceError("database is locked"))

	_, err := m.reconciler().ReconcileStatuses(context.Background())
	require.Error(t, err)
	m.provider.AssertNotCalled(t, "GetBot", mock.Anything, mock.Anything)
}

func TestStatusReconciler_ReconcileStatuses_DoneMaterializesWithTranscript(t *testing.T) {
	m := newReconcilerMocks()
	bot := &models.Bot{ID: "bot-1", ExternalID: "ext-1", CalendarEventID: "cal-1", Status: models.BotStatusProcessing}
	segments := []models.Segment{
		{Speaker: "Alice", SpeakerID: "p1", Words: []models.Word{{Text: "hello"}}, Language: "en"},
	}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{bot}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(doneBotInfo(&models.TranscriptJobRef{ID: "tj-1"}), nil)
	m.bots.On("SetBotStatus", mock.Anything, "bot-1", models.BotStatusDone).Return(nil)
	m.meetings.On("GetMeetingByBot", mock.Anything, "bot-1").Return(nil, nil)
	m.provider.On("GetTranscriptJob", mock.Anything, "tj-1").Return(&models.TranscriptJob{
		ID:          "tj-1",
		Status:      models.TranscriptJobStatusDone,
		DownloadURL: "https://download.example.com/tj-1.json",
	}, nil)
	m.provider.On("Download", mock.Anything, "https://download.example.com/tj-1.json").Return(segments, nil)
	m.calendar.On("GetCalendarEvent", mock.Anything, "cal-1").Return(&models.CalendarEvent{ID: "cal-1", Summary: "Planning"}, nil)
	m.meetings.On("CreateMeetingRecord", mock.Anything, mock.MatchedBy(func(r *models.MeetingRecord) bool {
		return r.Meeting.ID == "meeting-1" &&
			r.Meeting.Title == "Planning" &&
			r.Meeting.TranscriptAttempts == 0 &&
			r.Meeting.DurationSeconds != nil && *r.Meeting.DurationSeconds == 1800 &&
			r.Transcript.Language == "en" &&
			len(r.Participants) == 1 && r.Participants[0].IsHost
	})).Return([]models.ParticipantFailure{}, nil).Once()
	m.notifier.On("BroadcastMeetingChanged", mock.Anything, models.MeetingChangedMessage{
		MeetingID: "meeting-1",
		BotID:     "bot-1",
		Kind:      models.MeetingChangeCreated,
		ChangedAt: testNow,
	}).Return(nil).Once()

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Visited: 1, StatusChanged: 1, Materialized: 1, Handled: []string{"bot-1"}}, report)
	m.provider.AssertNotCalled(t, "CreateTranscriptJob", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestStatusReconciler_ReconcileStatuses_DoneRequestsMissingTranscript(t *testing.T) {
	m := newReconcilerMocks()
	bot := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusProcessing}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{bot}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(doneBotInfo(nil), nil)
	m.bots.On("SetBotStatus", mock.Anything, "bot-1", models.BotStatusDone).Return(nil)
	m.meetings.On("GetMeetingByBot", mock.Anything, "bot-1").Return(nil, nil)
	m.provider.On("CreateTranscriptJob", mock.Anything, "rec-1").Return(&models.TranscriptJobRef{ID: "tj-2"}, nil).Once()
	m.meetings.On("CreateMeetingRecord", mock.Anything, mock.MatchedBy(func(r *models.MeetingRecord) bool {
		return r.Meeting.Title == "Provider title" &&
			r.Meeting.TranscriptAttempts == 1 &&
			len(r.Transcript.Segments) == 0 &&
			r.Transcript.Language == models.UnknownTranscriptLanguage
	})).Return([]models.ParticipantFailure{}, nil).Once()
	m.notifier.On("BroadcastMeetingChanged", mock.Anything, mock.Anything).Return(nil).Once()

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Materialized)
	m.notifier.AssertNotCalled(t, "EnqueueContentGeneration", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestStatusReconciler_ReconcileStatuses_ProviderTranscriptFailureStillMaterializes(t *testing.T) {
	m := newReconcilerMocks()
	bot := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusProcessing}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{bot}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(doneBotInfo(&models.TranscriptJobRef{ID: "tj-1"}), nil)
	m.bots.On("SetBotStatus", mock.Anything, "bot-1", models.BotStatusDone).Return(nil)
	m.meetings.On("GetMeetingByBot", mock.Anything, "bot-1").Return(nil, nil)
	m.provider.On("GetTranscriptJob", mock.Anything, "tj-1").Return(nil, domain.NewProviderError("timeout"))
	m.meetings.On("CreateMeetingRecord", mock.Anything, mock.MatchedBy(func(r *models.MeetingRecord) bool {
		return r.Meeting.TranscriptAttempts == 1
	})).Return([]models.ParticipantFailure{}, nil).Once()
	m.notifier.On("BroadcastMeetingChanged", mock.Anything, mock.Anything).Return(nil)

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Visited: 1, StatusChanged: 1, Materialized: 1, Handled: []string{"bot-1"}}, report)
	m.assertExpectations(t)
}

func TestStatusReconciler_ReconcileStatuses_ExistingMeetingIsLeftAlone(t *testing.T) {
	m := newReconcilerMocks()
	bot := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusProcessing}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{bot}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(doneBotInfo(nil), nil)
	m.bots.On("SetBotStatus", mock.Anything, "bot-1", models.BotStatusDone).Return(nil)
	m.meetings.On("GetMeetingByBot", mock.Anything, "bot-1").Return(&models.Meeting{ID: "meeting-0", BotID: "bot-1"}, nil)

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Visited: 1, StatusChanged: 1, Handled: []string{"bot-1"}}, report)
	m.meetings.AssertNotCalled(t, "CreateMeetingRecord", mock.Anything, mock.Anything)
	m.provider.AssertNotCalled(t, "CreateTranscriptJob", mock.Anything, mock.Anything)
	m.assertExpectations(t)
}

func TestStatusReconciler_ReconcileStatuses_MaterializeFailureIsCounted(t *testing.T) {
	m := newReconcilerMocks()
	bot := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusProcessing}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{bot}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(doneBotInfo(nil), nil)
	m.bots.On("SetBotStatus", mock.Anything, "bot-1", models.BotStatusDone).Return(nil)
	m.meetings.On("GetMeetingByBot", mock.Anything, "bot-1").Return(nil, nil)
	m.provider.On("CreateTranscriptJob", mock.Anything, "rec-1").Return(nil, domain.NewConflictError("transcript already requested"))
	m.meetings.On("CreateMeetingRecord", mock.Anything, mock.Anything).Return(nil, domain.NewPersistenceError("disk full"))

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Visited: 1, StatusChanged: 1, Failed: 1, Handled: []string{"bot-1"}}, report)
	m.notifier.AssertNotCalled(t, "BroadcastMeetingChanged", mock.Anything, mock.Anything)
}

func TestStatusReconciler_ReconcileStatuses_SkipsTerminalBots(t *testing.T) {
	m := newReconcilerMocks()
	done := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusDone}
	fatal := &models.Bot{ID: "bot-2", ExternalID: "ext-2", Status: models.BotStatusFatal}

	m.bots.On("ListPendingBots", mock.Anything).Return([]*models.Bot{done, fatal}, nil)

	report, err := m.reconciler().ReconcileStatuses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Handled: []string{}}, report)
	m.provider.AssertNotCalled(t, "GetBot", mock.Anything, mock.Anything)
	m.bots.AssertNotCalled(t, "SetBotStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusReconciler_RetryMissingMeetings(t *testing.T) {
	m := newReconcilerMocks()
	bot := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusDone}
	raced := &models.Bot{ID: "bot-2", ExternalID: "ext-2", Status: models.BotStatusDone}

	m.bots.On("ListDoneBotsWithoutMeeting", mock.Anything).Return([]*models.Bot{bot, raced}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-1").Return(doneBotInfo(nil), nil)
	m.provider.On("GetBot", mock.Anything, "ext-2").Return(doneBotInfo(nil), nil)
	m.provider.On("CreateTranscriptJob", mock.Anything, "rec-1").Return(&models.TranscriptJobRef{ID: "tj-3"}, nil)
	m.meetings.On("GetMeetingByBot", mock.Anything, "bot-1").Return(nil, nil)
	m.meetings.On("GetMeetingByBot", mock.Anything, "bot-2").Return(&models.Meeting{ID: "meeting-2", BotID: "bot-2"}, nil)
	m.meetings.On("CreateMeetingRecord", mock.Anything, mock.MatchedBy(func(r *models.MeetingRecord) bool {
		return r.Meeting.BotID == "bot-1"
	})).Return([]models.ParticipantFailure{}, nil).Once()
	m.notifier.On("BroadcastMeetingChanged", mock.Anything, mock.Anything).Return(errors.New("nats closed"))

	report, err := m.reconciler().RetryMissingMeetings(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Visited: 2, Materialized: 2, Handled: []string{"bot-1", "bot-2"}}, report)
	m.bots.AssertNotCalled(t, "SetBotStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestStatusReconciler_RetryMissingMeetings_SkipsBotsHandledThisTick(t *testing.T) {
	m := newReconcilerMocks()
	handled := &models.Bot{ID: "bot-1", ExternalID: "ext-1", Status: models.BotStatusDone}
	stale := &models.Bot{ID: "bot-2", ExternalID: "ext-2", Status: models.BotStatusDone}

	m.bots.On("ListDoneBotsWithoutMeeting", mock.Anything).Return([]*models.Bot{handled, stale}, nil)
	m.provider.On("GetBot", mock.Anything, "ext-2").Return(&models.BotInfo{}, nil).Once()
	m.meetings.On("GetMeetingByBot", mock.Anything, "bot-2").Return(nil, nil)
	m.meetings.On("CreateMeetingRecord", mock.Anything, mock.MatchedBy(func(r *models.MeetingRecord) bool {
		return r.Meeting.BotID == "bot-2"
	})).Return([]models.ParticipantFailure{}, nil).Once()
	m.notifier.On("BroadcastMeetingChanged", mock.Anything, mock.Anything).Return(nil).Once()

	report, err := m.reconciler().RetryMissingMeetings(context.Background(), []string{"bot-1", "bot-9"})
	require.NoError(t, err)
	assert.Equal(t, ReconcileReport{Visited: 1, Materialized: 1, Handled: []string{"bot-2"}}, report)
	m.provider.AssertNotCalled(t, "GetBot", mock.Anything, "ext-1")
	m.assertExpectations(t)
}

func TestUniqueBots(t *testing.T) {
	a := &models.Bot{ID: "a"}
	b := &models.Bot{ID: "b"}
	got := uniqueBots([]*models.Bot{a, nil, b, a, &models.Bot{ID: "b"}})
	assert.Equal(t, []*models.Bot{a, b}, got)
}
