// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package domain

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// Message represents a domain message interface
type Message interface {
	Subject() string
	Data() []byte
	Respond(data []byte) error
	HasReply() bool
}

// MessageHandler defines how the service handles incoming messages
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg Message)
	HandlerReady() bool
}

// MeetingChangeNotifier publishes meeting lifecycle events to downstream consumers.
//
// BroadcastMeetingChanged is best-effort and has no delivery guarantee.
// EnqueueContentGeneration is at-least-once: the request id is used as the
// message id so a redelivered enqueue is deduplicated server side.
type MeetingChangeNotifier interface {
	BroadcastMeetingChanged(ctx context.Context, msg models.MeetingChangedMessage) error
	EnqueueContentGeneration(ctx context.Context, job models.ContentGenerationJob) error
}
