// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

// Content delivery outcomes.
const (
	deliveryAccepted        = "accepted"
	deliveryUnknownRequest  = "unknown_request"
	deliveryExpired         = "expired"
	deliveryMeetingMismatch = "meeting_mismatch"
	deliveryDuplicate       = "duplicate"
)

// ContentRequestService correlates content generation jobs with the
// deliveries that answer them. Every job is recorded with a deadline before
// it is enqueued; a delivery is accepted only for a known, unexpired request
// of the same meeting, and every other delivery is dropped.
type ContentRequestService struct {
	contentRequestRepository domain.ContentRequestRepository
	notifier                 domain.MeetingChangeNotifier
	timeout                  time.Duration
	metrics                  *reconcileMetrics
	newID                    func() string
	now                      func() time.Time
}

// NewContentRequestService creates a new ContentRequestService.
func NewContentRequestService(
	contentRequestRepository domain.ContentRequestRepository,
	notifier domain.MeetingChangeNotifier,
	config ServiceConfig,
) *ContentRequestService {
	config = config.withDefaults()
	return &ContentRequestService{
		contentRequestRepository: contentRequestRepository,
		notifier:                 notifier,
		timeout:                  config.ContentRequestTimeout,
		metrics:                  newReconcileMetrics(),
		newID:                    func() string { return uuid.New().String() },
		now:                      utcNow,
	}
}

// ServiceReady checks if the service is ready to serve requests.
func (s *ContentRequestService) ServiceReady() bool {
	return s.contentRequestRepository != nil && s.notifier != nil
}

// Dispatch records a new content generation request for a meeting and
// enqueues the job. If the request cannot be recorded the job is not
// enqueued, since its delivery could never be correlated.
func (s *ContentRequestService) Dispatch(ctx context.Context, meetingID string) (*models.ContentRequest, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return nil, domain.NewUnavailableError("service not initialized")
	}
	if meetingID == "" {
		return nil, domain.NewValidationError("meeting id is required")
	}

	now := s.now()
	request := &models.ContentRequest{
		RequestID: s.newID(),
		MeetingID: meetingID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.timeout),
	}

	ctx = logging.AppendCtx(ctx, slog.String("request_id", request.RequestID))

	if err := s.contentRequestRepository.Create(ctx, request); err != nil {
		slog.ErrorContext(ctx, "error recording content request, skipping content generation",
			logging.ErrKey, err,
			"meeting_id", meetingID,
		)
		return nil, err
	}

	err := s.notifier.EnqueueContentGeneration(ctx, models.ContentGenerationJob{
		RequestID:   request.RequestID,
		MeetingID:   meetingID,
		RequestedAt: now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "error enqueueing content generation",
			logging.ErrKey, err,
			"meeting_id", meetingID,
		)
		return request, err
	}

	count(ctx, s.metrics.contentDispatched)
	slog.InfoContext(ctx, "dispatched content generation",
		"meeting_id", meetingID,
		"expires_at", request.ExpiresAt,
	)
	return request, nil
}

// Resolve handles a content generation delivery. It reports whether the
// delivery was accepted. The request is consumed with a revision-checked
// delete, so of several deliveries for one request at most one is accepted.
// Unknown, expired, mismatched and duplicate deliveries are dropped without
// error and are never reprocessed.
func (s *ContentRequestService) Resolve(ctx context.Context, delivery models.ContentGeneratedMessage) (bool, error) {
	if !s.ServiceReady() {
		slog.ErrorContext(ctx, "service not initialized", logging.PriorityCritical())
		return false, domain.NewUnavailableError("service not initialized")
	}

	ctx = logging.AppendCtx(ctx, slog.String("request_id", delivery.RequestID))
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", delivery.MeetingID))

	if delivery.RequestID == "" {
		s.drop(ctx, deliveryUnknownRequest)
		return false, nil
	}

	request, revision, err := s.contentRequestRepository.GetWithRevision(ctx, delivery.RequestID)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			s.drop(ctx, deliveryUnknownRequest)
			return false, nil
		}
		slog.ErrorContext(ctx, "error getting content request", logging.ErrKey, err)
		return false, err
	}

	if request.Expired(s.now()) {
		s.drop(ctx, deliveryExpired, "expired_at", request.ExpiresAt)
		if err := s.contentRequestRepository.Delete(ctx, request.RequestID, revision); err != nil {
			slog.WarnContext(ctx, "error deleting expired content request", logging.ErrKey, err)
		}
		return false, nil
	}

	if request.MeetingID != delivery.MeetingID {
		s.drop(ctx, deliveryMeetingMismatch, "expected_meeting_id", request.MeetingID)
		return false, nil
	}

	if err := s.contentRequestRepository.Delete(ctx, request.RequestID, revision); err != nil {
		switch domain.GetErrorType(err) {
		case domain.ErrorTypeNotFound, domain.ErrorTypeConflict:
			s.drop(ctx, deliveryDuplicate, "revision", revision)
			return false, nil
		}
		slog.ErrorContext(ctx, "error consuming content request", logging.ErrKey, err)
		return false, err
	}
	count(ctx, s.metrics.contentDeliveries, attribute.String("outcome", deliveryAccepted))
	slog.InfoContext(ctx, "accepted content generation delivery")

	broadcastChange(ctx, s.notifier, request.MeetingID, "", models.MeetingChangeContentReady, s.now())
	return true, nil
}

func (s *ContentRequestService) drop(ctx context.Context, reason string, args ...any) {
	count(ctx, s.metrics.contentDeliveries, attribute.String("outcome", reason))
	slog.WarnContext(ctx, "dropping content generation delivery", append([]any{"reason", reason}, args...)...)
}
