// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/service"
)

// RecordingHandler handles the read API requests and the content generation
// deliveries received over NATS.
type RecordingHandler struct {
	meetingQueryService   *service.MeetingQueryService
	contentRequestService *service.ContentRequestService
}

func NewRecordingHandler(
	meetingQueryService *service.MeetingQueryService,
	contentRequestService *service.ContentRequestService,
) *RecordingHandler {
	return &RecordingHandler{
		meetingQueryService:   meetingQueryService,
		contentRequestService: contentRequestService,
	}
}

func (h *RecordingHandler) HandlerReady() bool {
	return h.meetingQueryService != nil && h.meetingQueryService.ServiceReady() &&
		h.contentRequestService != nil && h.contentRequestService.ServiceReady()
}

// HandleMessage implements domain.MessageHandler interface
func (h *RecordingHandler) HandleMessage(ctx context.Context, msg domain.Message) {
	subject := msg.Subject()
	ctx = logging.AppendCtx(ctx, slog.String("subject", subject))
	slog.DebugContext(ctx, "handling NATS message")

	handlers := map[string]func(ctx context.Context, msg domain.Message) ([]byte, error){
		models.GetMeetingSubject:       h.HandleGetMeeting,
		models.GetMeetingByBotSubject:  h.HandleGetMeetingByBot,
		models.ContentGeneratedSubject: h.HandleContentGenerated,
	}

	handler, ok := handlers[subject]
	if !ok {
		slog.WarnContext(ctx, "unknown subject")
		respond(ctx, msg, nil)
		return
	}

	response, err := handler(ctx, msg)
	if err != nil {
		if domain.GetErrorType(err) == domain.ErrorTypeNotFound {
			slog.DebugContext(ctx, "requested resource not found", logging.ErrKey, err)
		} else {
			slog.ErrorContext(ctx, "error handling message", logging.ErrKey, err)
		}
		respond(ctx, msg, nil)
		return
	}

	if !respond(ctx, msg, response) {
		slog.DebugContext(ctx, "handled NATS message (no reply expected)")
	}
}

// respond replies to msg when a reply is expected and reports whether it did.
func respond(ctx context.Context, msg domain.Message, response []byte) bool {
	if !msg.HasReply() {
		return false
	}
	if err := msg.Respond(response); err != nil {
		slog.ErrorContext(ctx, "error responding to NATS message", logging.ErrKey, err)
		return true
	}
	slog.DebugContext(ctx, "responded to NATS message", "bytes", len(response))
	return true
}

// HandleGetMeeting returns the meeting, transcript and participants of the
// meeting id carried in the message body.
func (h *RecordingHandler) HandleGetMeeting(ctx context.Context, msg domain.Message) ([]byte, error) {
	meetingID := strings.TrimSpace(string(msg.Data()))
	ctx = logging.AppendCtx(ctx, slog.String("meeting_id", meetingID))

	details, err := h.meetingQueryService.GetMeetingWithDetails(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(details)
}

// HandleGetMeetingByBot returns the meeting materialized for the bot id
// carried in the message body.
func (h *RecordingHandler) HandleGetMeetingByBot(ctx context.Context, msg domain.Message) ([]byte, error) {
	botID := strings.TrimSpace(string(msg.Data()))
	ctx = logging.AppendCtx(ctx, slog.String("bot_id", botID))

	meeting, err := h.meetingQueryService.GetMeetingByBot(ctx, botID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(meeting)
}

type contentGeneratedResponse struct {
	Accepted bool `json:"accepted"`
}

// HandleContentGenerated correlates a content generation delivery with its
// pending request.
func (h *RecordingHandler) HandleContentGenerated(ctx context.Context, msg domain.Message) ([]byte, error) {
	var delivery models.ContentGeneratedMessage
	if err := json.Unmarshal(msg.Data(), &delivery); err != nil {
		slog.WarnContext(ctx, "dropping malformed content generation delivery", logging.ErrKey, err)
		return nil, domain.NewValidationError("malformed content generation delivery", err)
	}

	accepted, err := h.contentRequestService.Resolve(ctx, delivery)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contentGeneratedResponse{Accepted: accepted})
}
