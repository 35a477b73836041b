// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/concurrent"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/utils"
)

// MeetingMaterializer turns a bot that reached the done state into a meeting
// record with its transcript and participants.
type MeetingMaterializer struct {
	meetingRepository       domain.MeetingRepository
	calendarEventRepository domain.CalendarEventRepository
	notifier                domain.MeetingChangeNotifier
	contentRequests         *ContentRequestService
	locks                   *concurrent.KeyedMutex
	metrics                 *reconcileMetrics
	newID                   func() string
	now                     func() time.Time
}

// NewMeetingMaterializer creates a new MeetingMaterializer. contentRequests
// may be nil, in which case no content generation is dispatched.
func NewMeetingMaterializer(
	meetingRepository domain.MeetingRepository,
	calendarEventRepository domain.CalendarEventRepository,
	notifier domain.MeetingChangeNotifier,
	contentRequests *ContentRequestService,
) *MeetingMaterializer {
	return &MeetingMaterializer{
		meetingRepository:       meetingRepository,
		calendarEventRepository: calendarEventRepository,
		notifier:                notifier,
		contentRequests:         contentRequests,
		locks:                   concurrent.NewKeyedMutex(),
		metrics:                 newReconcileMetrics(),
		newID:                   func() string { return uuid.New().String() },
		now:                     utcNow,
	}
}

// ServiceReady checks if the service is ready to serve requests.
func (m *MeetingMaterializer) ServiceReady() bool {
	return m.meetingRepository != nil && m.notifier != nil
}

// Materialize creates the meeting record of a done bot in one transaction.
// A meeting that already exists for the bot is reported as a Conflict error
// wrapping domain.ErrMeetingAlreadyExists and is not an operational failure.
func (m *MeetingMaterializer) Materialize(ctx context.Context, bot *models.Bot, info *models.BotInfo, segments []models.Segment) (*models.Meeting, error) {
	if !m.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("service not initialized")
	}
	if bot == nil || bot.ID == "" {
		return nil, domain.NewValidationError("bot is required")
	}
	if info == nil {
		info = &models.BotInfo{}
	}

	unlock := m.locks.Lock(bot.ID)
	defer unlock()

	existing, err := m.meetingRepository.GetMeetingByBot(ctx, bot.ID)
	if err != nil {
		slog.ErrorContext(ctx, "error checking for an existing meeting", logging.ErrKey, err)
		return nil, err
	}
	if existing != nil {
		return existing, domain.NewConflictError(fmt.Sprintf("meeting already materialized for bot %s", bot.ID), domain.ErrMeetingAlreadyExists)
	}

	spoken := SpokenSegments(segments)
	recordedAt, duration := RecordingTiming(info.FirstRecording())

	meeting := &models.Meeting{
		ID:              m.newID(),
		Title:           m.resolveTitle(ctx, bot, info),
		RecordedAt:      recordedAt,
		DurationSeconds: duration,
		CalendarEventID: bot.CalendarEventID,
		BotID:           bot.ID,
	}
	record := &models.MeetingRecord{
		Meeting: meeting,
		Transcript: &models.Transcript{
			MeetingID: meeting.ID,
			Segments:  spoken,
			Language:  TranscriptLanguage(spoken),
		},
		Participants: MergeParticipants(segments, info.Participants),
	}
	if record.Transcript.IsEmpty() {
		meeting.TranscriptAttempts = 1
	}

	failures, err := m.meetingRepository.CreateMeetingRecord(ctx, record)
	if err != nil {
		if domain.IsConflict(err) {
			slog.DebugContext(ctx, "meeting was materialized concurrently", logging.ErrKey, err)
			return nil, err
		}
		slog.ErrorContext(ctx, "error materializing meeting, will retry", logging.ErrKey, err)
		return nil, err
	}
	for range failures {
		count(ctx, m.metrics.participantsSkipped)
	}
	count(ctx, m.metrics.meetingsMaterialized, attribute.Bool("has_transcript", !record.Transcript.IsEmpty()))

	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meeting.ID))
	slog.InfoContext(ctx, "materialized meeting",
		"title", meeting.Title,
		"segments", len(spoken),
		"participants", len(record.Participants)-len(failures),
		"skipped_participants", len(failures),
		"transcript_attempts", meeting.TranscriptAttempts,
	)

	broadcastChange(ctx, m.notifier, meeting.ID, bot.ID, models.MeetingChangeCreated, m.now())
	if !record.Transcript.IsEmpty() && m.contentRequests != nil {
		// Dispatch failures are logged by the content request service.
		_, _ = m.contentRequests.Dispatch(ctx, meeting.ID)
	}

	return meeting, nil
}

// resolveTitle prefers the calendar event summary, then the provider title.
func (m *MeetingMaterializer) resolveTitle(ctx context.Context, bot *models.Bot, info *models.BotInfo) string {
	var summary string
	if bot.CalendarEventID != "" && m.calendarEventRepository != nil {
		event, err := m.calendarEventRepository.GetCalendarEvent(ctx, bot.CalendarEventID)
		if err != nil {
			slog.WarnContext(ctx, "error getting calendar event, falling back to provider title",
				logging.ErrKey, err,
				"calendar_event_id", bot.CalendarEventID,
			)
		} else if event != nil {
			summary = event.Summary
		}
	}
	return strings.TrimSpace(utils.CoalesceString(summary, info.Title, models.DefaultMeetingTitle))
}

// broadcastChange publishes a meeting change. Delivery is best-effort, so
// failures are only logged.
func broadcastChange(ctx context.Context, notifier domain.MeetingChangeNotifier, meetingID, botID string, kind models.MeetingChangeKind, at time.Time) {
	err := notifier.BroadcastMeetingChanged(ctx, models.MeetingChangedMessage{
		MeetingID: meetingID,
		BotID:     botID,
		Kind:      kind,
		ChangedAt: at,
	})
	if err != nil {
		slog.WarnContext(ctx, "error broadcasting meeting change",
			logging.ErrKey, err,
			"meeting_id", meetingID,
			"kind", kind,
		)
	}
}
