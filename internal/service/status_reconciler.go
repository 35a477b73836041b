// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/concurrent"
)

// StatusReconciler polls the provider for every non-terminal bot, stores the
// derived status and materializes the meeting of bots that are done.
type StatusReconciler struct {
	botRepository     domain.BotRepository
	meetingRepository domain.MeetingRepository
	provider          domain.RecordingProvider
	materializer      *MeetingMaterializer
	pool              *concurrent.WorkerPool
	metrics           *reconcileMetrics
}

// NewStatusReconciler creates a new StatusReconciler.
func NewStatusReconciler(
	botRepository domain.BotRepository,
	meetingRepository domain.MeetingRepository,
	provider domain.RecordingProvider,
	materializer *MeetingMaterializer,
	config ServiceConfig,
) *StatusReconciler {
	config = config.withDefaults()
	return &StatusReconciler{
		botRepository:     botRepository,
		meetingRepository: meetingRepository,
		provider:          provider,
		materializer:      materializer,
		pool:              concurrent.NewWorkerPool(config.Workers),
		metrics:           newReconcileMetrics(),
	}
}

// ServiceReady checks if the service is ready to serve requests.
func (s *StatusReconciler) ServiceReady() bool {
	return s.botRepository != nil &&
		s.meetingRepository != nil &&
		s.provider != nil &&
		s.materializer != nil &&
		s.materializer.ServiceReady()
}

// DeriveBotStatus returns the latest status code of the provider history,
// then the status of the first recording, then pending.
func DeriveBotStatus(info *models.BotInfo) models.BotStatus {
	if info == nil {
		return models.BotStatusPending
	}
	for i := len(info.StatusHistory) - 1; i >= 0; i-- {
		if code := info.StatusHistory[i].Code; code != "" {
			return models.BotStatus(code)
		}
	}
	if rec := info.FirstRecording(); rec != nil && rec.Status != "" {
		return models.BotStatus(rec.Status)
	}
	return models.BotStatusPending
}

// ReconcileStatuses runs one status pass over the non-terminal bots. Provider
// and per-bot storage failures are logged and counted in the report; only a
// failure to list the bots is returned.
func (s *StatusReconciler) ReconcileStatuses(ctx context.Context) (ReconcileReport, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return ReconcileReport{}, domain.NewUnavailableError("service not initialized")
	}

	bots, err := s.botRepository.ListPendingBots(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error listing pending bots", logging.ErrKey, err)
		return ReconcileReport{}, err
	}
	bots = pollableBots(ctx, uniqueBots(bots))

	var t tally[ReconcileReport]
	concurrent.ForEach(ctx, s.pool, bots, func(ctx context.Context, bot *models.Bot) error {
		s.reconcileBot(ctx, bot, &t)
		return nil
	})

	report := t.snapshot()
	report.Handled = botIDs(bots)
	slog.DebugContext(ctx, "status pass finished",
		"visited", report.Visited,
		"status_changed", report.StatusChanged,
		"polling_errors", report.PollingErrors,
		"materialized", report.Materialized,
		"failed", report.Failed,
	)
	return report, nil
}

func (s *StatusReconciler) reconcileBot(ctx context.Context, bot *models.Bot, t *tally[ReconcileReport]) {
	ctx = logging.AppendCtx(ctx, slog.String("bot_id", bot.ID))
	ctx = logging.AppendCtx(ctx, slog.String("external_id", bot.ExternalID))
	t.add(func(r *ReconcileReport) { r.Visited++ })

	info, err := s.provider.GetBot(ctx, bot.ExternalID)
	if err != nil {
		slog.WarnContext(ctx, "error polling bot status", logging.ErrKey, err)
		count(ctx, s.metrics.botPollingErrors)
		t.add(func(r *ReconcileReport) { r.PollingErrors++ })
		if setErr := s.botRepository.SetBotStatus(ctx, bot.ID, models.BotStatusPollingError); setErr != nil {
			slog.ErrorContext(ctx, "error storing polling error status", logging.ErrKey, setErr)
		}
		return
	}

	status := DeriveBotStatus(info)
	if err := s.botRepository.SetBotStatus(ctx, bot.ID, status); err != nil {
		slog.ErrorContext(ctx, "error storing bot status", logging.ErrKey, err, "status", status)
		t.add(func(r *ReconcileReport) { r.Failed++ })
		return
	}
	if status != bot.Status {
		slog.InfoContext(ctx, "bot status changed", "from", bot.Status, "to", status)
		count(ctx, s.metrics.botStatusChanges, attribute.String("status", string(status)))
		t.add(func(r *ReconcileReport) { r.StatusChanged++ })
	}

	if status != models.BotStatusDone {
		return
	}

	existing, err := s.meetingRepository.GetMeetingByBot(ctx, bot.ID)
	if err != nil {
		slog.ErrorContext(ctx, "error checking for an existing meeting", logging.ErrKey, err)
		t.add(func(r *ReconcileReport) { r.Failed++ })
		return
	}
	if existing != nil {
		return
	}

	bot.Status = status
	if s.materializeBot(ctx, bot, info) {
		t.add(func(r *ReconcileReport) { r.Materialized++ })
	} else {
		t.add(func(r *ReconcileReport) { r.Failed++ })
	}
}

// RetryMissingMeetings materializes done bots whose earlier materialization
// failed. Bots listed in skip were already visited by the status pass of the
// same tick and wait for the next one. Conflicts with a concurrent
// materialization are benign.
func (s *StatusReconciler) RetryMissingMeetings(ctx context.Context, skip []string) (ReconcileReport, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return ReconcileReport{}, domain.NewUnavailableError("service not initialized")
	}

	bots, err := s.botRepository.ListDoneBotsWithoutMeeting(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "error listing done bots without meeting", logging.ErrKey, err)
		return ReconcileReport{}, err
	}
	bots = excludeBots(uniqueBots(bots), skip)

	var t tally[ReconcileReport]
	concurrent.ForEach(ctx, s.pool, bots, func(ctx context.Context, bot *models.Bot) error {
		ctx = logging.AppendCtx(ctx, slog.String("bot_id", bot.ID))
		ctx = logging.AppendCtx(ctx, slog.String("external_id", bot.ExternalID))
		t.add(func(r *ReconcileReport) { r.Visited++ })

		info, err := s.provider.GetBot(ctx, bot.ExternalID)
		if err != nil {
			slog.WarnContext(ctx, "error fetching bot for meeting retry", logging.ErrKey, err)
			t.add(func(r *ReconcileReport) { r.PollingErrors++ })
			return nil
		}

		if s.materializeBot(ctx, bot, info) {
			t.add(func(r *ReconcileReport) { r.Materialized++ })
		} else {
			t.add(func(r *ReconcileReport) { r.Failed++ })
		}
		return nil
	})

	report := t.snapshot()
	report.Handled = botIDs(bots)
	if report.Visited > 0 {
		slog.InfoContext(ctx, "retry pass finished",
			"visited", report.Visited,
			"materialized", report.Materialized,
			"failed", report.Failed,
		)
	}
	return report, nil
}

// materializeBot resolves the transcript of a done bot and materializes its
// meeting. It reports whether a meeting exists for the bot afterwards.
func (s *StatusReconciler) materializeBot(ctx context.Context, bot *models.Bot, info *models.BotInfo) bool {
	segments := s.resolveTranscript(ctx, info)

	_, err := s.materializer.Materialize(ctx, bot, info, segments)
	if err != nil {
		if domain.IsConflict(err) {
			slog.DebugContext(ctx, "meeting already materialized")
			return true
		}
		return false
	}
	return true
}

// resolveTranscript fetches the transcript of the first recording when it is
// ready, and requests it when the provider has no transcript job yet. Any
// provider failure yields no segments; the backfill loop fills them later.
func (s *StatusReconciler) resolveTranscript(ctx context.Context, info *models.BotInfo) []models.Segment {
	rec := info.FirstRecording()
	if rec == nil {
		slog.DebugContext(ctx, "bot has no recording, materializing without transcript")
		return nil
	}
	ctx = logging.AppendCtx(ctx, slog.String("recording_id", rec.ID))

	ref := rec.TranscriptJobRef
	if ref == nil || ref.ID == "" {
		created, err := s.provider.CreateTranscriptJob(ctx, rec.ID)
		switch {
		case domain.IsConflict(err):
			slog.DebugContext(ctx, "transcript already requested")
		case err != nil:
			slog.WarnContext(ctx, "error requesting transcript", logging.ErrKey, err)
		default:
			slog.InfoContext(ctx, "requested transcript", "transcript_job_id", created.ID)
		}
		return nil
	}
	ctx = logging.AppendCtx(ctx, slog.String("transcript_job_id", ref.ID))

	return fetchTranscript(ctx, s.provider, ref.ID)
}

// fetchTranscript downloads the segments of a finished transcript job. It
// returns nil while the job is pending or when anything fails.
func fetchTranscript(ctx context.Context, provider domain.RecordingProvider, jobID string) []models.Segment {
	job, err := provider.GetTranscriptJob(ctx, jobID)
	if err != nil {
		slog.WarnContext(ctx, "error getting transcript job", logging.ErrKey, err)
		return nil
	}
	if !job.IsDone() {
		slog.DebugContext(ctx, "transcript not ready", "status", job.Status)
		return nil
	}
	if job.DownloadURL == "" {
		slog.WarnContext(ctx, "transcript job is done without a download url")
		return nil
	}

	segments, err := provider.Download(ctx, job.DownloadURL)
	if err != nil {
		slog.WarnContext(ctx, "error downloading transcript", logging.ErrKey, err)
		return nil
	}
	return segments
}

// uniqueBots drops repeated bots so each is visited at most once per pass.
func uniqueBots(bots []*models.Bot) []*models.Bot {
	seen := make(map[string]struct{}, len(bots))
	unique := make([]*models.Bot, 0, len(bots))
	for _, bot := range bots {
		if bot == nil {
			continue
		}
		if _, ok := seen[bot.ID]; ok {
			continue
		}
		seen[bot.ID] = struct{}{}
		unique = append(unique, bot)
	}
	return unique
}

// excludeBots drops the bots whose id is listed in skip.
func excludeBots(bots []*models.Bot, skip []string) []*models.Bot {
	if len(skip) == 0 {
		return bots
	}
	skipped := make(map[string]struct{}, len(skip))
	for _, id := range skip {
		skipped[id] = struct{}{}
	}
	kept := make([]*models.Bot, 0, len(bots))
	for _, bot := range bots {
		if _, ok := skipped[bot.ID]; ok {
			continue
		}
		kept = append(kept, bot)
	}
	return kept
}

func botIDs(bots []*models.Bot) []string {
	ids := make([]string, 0, len(bots))
	for _, bot := range bots {
		ids = append(ids, bot.ID)
	}
	return ids
}

// pollableBots drops bots whose stored status is already terminal. The retry
// pass owns done bots that still lack a meeting.
func pollableBots(ctx context.Context, bots []*models.Bot) []*models.Bot {
	pollable := make([]*models.Bot, 0, len(bots))
	for _, bot := range bots {
		if bot.Status.IsTerminal() {
			slog.DebugContext(ctx, "skipping bot in terminal status", "bot_id", bot.ID, "status", bot.Status)
			continue
		}
		pollable = append(pollable, bot)
	}
	return pollable
}
