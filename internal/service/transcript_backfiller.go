// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/concurrent"
)

// TranscriptBackfiller fills in transcripts of meetings that were
// materialized before the provider finished transcribing them.
type TranscriptBackfiller struct {
	meetingRepository domain.MeetingRepository
	provider          domain.RecordingProvider
	notifier          domain.MeetingChangeNotifier
	contentRequests   *ContentRequestService
	ceiling           int
	pool              *concurrent.WorkerPool
	metrics           *reconcileMetrics
	now               func() time.Time
}

// NewTranscriptBackfiller creates a new TranscriptBackfiller. contentRequests
// may be nil, in which case no content generation is dispatched.
func NewTranscriptBackfiller(
	meetingRepository domain.MeetingRepository,
	provider domain.RecordingProvider,
	notifier domain.MeetingChangeNotifier,
	contentRequests *ContentRequestService,
	config ServiceConfig,
) *TranscriptBackfiller {
	config = config.withDefaults()
	return &TranscriptBackfiller{
		meetingRepository: meetingRepository,
		provider:          provider,
		notifier:          notifier,
		contentRequests:   contentRequests,
		ceiling:           config.TranscriptAttemptCeiling,
		pool:              concurrent.NewWorkerPool(config.Workers),
		metrics:           newReconcileMetrics(),
		now:               utcNow,
	}
}

// ServiceReady checks if the service is ready to serve requests.
func (b *TranscriptBackfiller) ServiceReady() bool {
	return b.meetingRepository != nil && b.provider != nil && b.notifier != nil
}

// Ceiling returns the number of attempts after which a meeting is given up.
func (b *TranscriptBackfiller) Ceiling() int {
	return b.ceiling
}

// Backfill runs one pass over the meetings with an empty transcript and
// fewer attempts than the ceiling. Every visited meeting consumes one
// attempt, whatever the outcome. Only a failure to list the candidates is
// returned.
func (b *TranscriptBackfiller) Backfill(ctx context.Context) (BackfillReport, error) {
	if !b.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return BackfillReport{}, domain.NewUnavailableError("service not initialized")
	}

	candidates, err := b.meetingRepository.ListBackfillCandidates(ctx, b.ceiling)
	if err != nil {
		slog.ErrorContext(ctx, "error listing backfill candidates", logging.ErrKey, err)
		return BackfillReport{}, err
	}
	candidates = uniqueCandidates(candidates)

	var t tally[BackfillReport]
	t.add(func(r *BackfillReport) { r.Candidates = len(candidates) })

	concurrent.ForEach(ctx, b.pool, candidates, func(ctx context.Context, candidate *models.BackfillCandidate) error {
		b.backfillMeeting(ctx, candidate, &t)
		return nil
	})

	report := t.snapshot()
	slog.DebugContext(ctx, "backfill pass finished",
		"candidates", report.Candidates,
		"populated", report.Populated,
		"pending", report.Pending,
		"given_up", report.GivenUp,
		"failed", report.Failed,
	)
	return report, nil
}

func (b *TranscriptBackfiller) backfillMeeting(ctx context.Context, candidate *models.BackfillCandidate, t *tally[BackfillReport]) {
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", candidate.MeetingID))
	ctx = logging.AppendCtx(ctx, slog.String("bot_id", candidate.BotID))

	attempts, err := b.meetingRepository.IncrementTranscriptAttempts(ctx, candidate.MeetingID)
	if err != nil {
		slog.ErrorContext(ctx, "error recording transcript attempt", logging.ErrKey, err)
		t.add(func(r *BackfillReport) { r.Failed++ })
		return
	}

	segments := SpokenSegments(b.fetchSegments(ctx, candidate))
	if len(segments) == 0 {
		b.stillEmpty(ctx, attempts, t)
		return
	}

	language := TranscriptLanguage(segments)
	if err := b.meetingRepository.SaveTranscript(ctx, candidate.MeetingID, segments, language); err != nil {
		slog.ErrorContext(ctx, "error saving backfilled transcript", logging.ErrKey, err)
		t.add(func(r *BackfillReport) { r.Failed++ })
		return
	}

	count(ctx, b.metrics.transcriptsBackfilled)
	t.add(func(r *BackfillReport) { r.Populated++ })
	slog.InfoContext(ctx, "backfilled transcript",
		"segments", len(segments),
		"language", language,
		"transcript_attempts", attempts,
	)

	broadcastChange(ctx, b.notifier, candidate.MeetingID, candidate.BotID, models.MeetingChangeTranscriptUpdated, b.now())
	if b.contentRequests != nil {
		// Dispatch failures are logged by the content request service.
		_, _ = b.contentRequests.Dispatch(ctx, candidate.MeetingID)
	}
}

// fetchSegments looks up the transcript job of the bot's first recording and
// downloads it when finished. A bot without a transcript job yields nothing;
// the job is requested by the status loop, not here.
func (b *TranscriptBackfiller) fetchSegments(ctx context.Context, candidate *models.BackfillCandidate) []models.Segment {
	ctx = logging.AppendCtx(ctx, slog.String("external_id", candidate.BotExternalID))

	info, err := b.provider.GetBot(ctx, candidate.BotExternalID)
	if err != nil {
		slog.WarnContext(ctx, "error getting bot for transcript backfill", logging.ErrKey, err)
		return nil
	}

	rec := info.FirstRecording()
	if rec == nil {
		slog.DebugContext(ctx, "bot has no recording")
		return nil
	}
	ctx = logging.AppendCtx(ctx, slog.String("recording_id", rec.ID))

	if rec.TranscriptJobRef == nil || rec.TranscriptJobRef.ID == "" {
		slog.DebugContext(ctx, "recording has no transcript job yet")
		return nil
	}
	ctx = logging.AppendCtx(ctx, slog.String("transcript_job_id", rec.TranscriptJobRef.ID))

	return fetchTranscript(ctx, b.provider, rec.TranscriptJobRef.ID)
}

func (b *TranscriptBackfiller) stillEmpty(ctx context.Context, attempts int, t *tally[BackfillReport]) {
	if attempts >= b.ceiling {
		count(ctx, b.metrics.transcriptsGivenUp)
		t.add(func(r *BackfillReport) { r.GivenUp++ })
		slog.WarnContext(ctx, "giving up on transcript backfill",
			"transcript_attempts", attempts,
			"ceiling", b.ceiling,
		)
		return
	}
	t.add(func(r *BackfillReport) { r.Pending++ })
	slog.DebugContext(ctx, "transcript still empty",
		"transcript_attempts", attempts,
		"ceiling", b.ceiling,
	)
}

func uniqueCandidates(candidates []*models.BackfillCandidate) []*models.BackfillCandidate {
	seen := make(map[string]struct{}, len(candidates))
	unique := make([]*models.BackfillCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		if _, ok := seen[c.MeetingID]; ok {
			continue
		}
		seen[c.MeetingID] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}
