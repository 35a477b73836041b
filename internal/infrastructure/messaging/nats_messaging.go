// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/constants"
)

// INatsConn is the NATS connection interface needed for best-effort broadcasts.
type INatsConn interface {
	IsConnected() bool
	Publish(subj string, data []byte) error
}

// IJetStreamPublisher is the JetStream interface needed for durable enqueues.
// It matches jetstream.JetStream and allows for mocking in tests.
type IJetStreamPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// MessageBuilder builds the downstream messages and sends them to the NATS server.
type MessageBuilder struct {
	NatsConn  INatsConn
	JetStream IJetStreamPublisher
}

// Ensure that MessageBuilder implements domain.MeetingChangeNotifier
var _ domain.MeetingChangeNotifier = (*MessageBuilder)(nil)

// NewMessageBuilder creates a new MessageBuilder.
func NewMessageBuilder(natsConn INatsConn, js IJetStreamPublisher) *MessageBuilder {
	return &MessageBuilder{
		NatsConn:  natsConn,
		JetStream: js,
	}
}

// publish sends the message to the NATS server.
func (m *MessageBuilder) publish(ctx context.Context, subject string, data []byte) error {
	err := m.NatsConn.Publish(subject, data)
	if err != nil {
		slog.ErrorContext(ctx, "error sending message to NATS", logging.ErrKey, err, "subject", subject)
		return err
	}
	slog.DebugContext(ctx, "sent message to NATS", "subject", subject)
	return nil
}

// BroadcastMeetingChanged publishes a meeting change on the per-meeting subject.
// Delivery is best-effort.
func (m *MessageBuilder) BroadcastMeetingChanged(ctx context.Context, msg models.MeetingChangedMessage) error {
	if msg.MeetingID == "" {
		return domain.NewValidationError("meeting id is required")
	}
	if m.NatsConn == nil {
		return domain.NewUnavailableError("NATS connection is not configured")
	}

	dataBytes, err := json.Marshal(msg)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err)
		return err
	}

	return m.publish(ctx, models.MeetingChangedSubject(msg.MeetingID), dataBytes)
}

// EnqueueContentGeneration publishes a content generation job to JetStream.
// The request id is the message id, so a repeated enqueue of the same
// request is deduplicated by the server.
func (m *MessageBuilder) EnqueueContentGeneration(ctx context.Context, job models.ContentGenerationJob) error {
	if job.RequestID == "" || job.MeetingID == "" {
		return domain.NewValidationError("request id and meeting id are required")
	}
	if m.JetStream == nil {
		return domain.NewUnavailableError("JetStream is not configured")
	}

	dataBytes, err := json.Marshal(job)
	if err != nil {
		slog.ErrorContext(ctx, "error marshalling data into JSON", logging.ErrKey, err)
		return err
	}

	msg := nats.NewMsg(models.ContentGenerationSubject)
	msg.Data = dataBytes
	msg.Header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	ack, err := m.JetStream.PublishMsg(ctx, msg, jetstream.WithMsgID(job.RequestID))
	if err != nil {
		slog.ErrorContext(ctx, "error enqueueing content generation job",
			logging.ErrKey, err,
			"subject", models.ContentGenerationSubject,
			"request_id", job.RequestID,
			"meeting_id", job.MeetingID,
		)
		return err
	}

	slog.DebugContext(ctx, "enqueued content generation job",
		"subject", models.ContentGenerationSubject,
		"request_id", job.RequestID,
		"meeting_id", job.MeetingID,
		"stream", ack.Stream,
		"sequence", ack.Sequence,
		"duplicate", ack.Duplicate,
	)
	return nil
}
