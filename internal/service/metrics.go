// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

const meterName = "github.com/linuxfoundation/lfx-v2-recording-service/internal/service"

// reconcileMetrics are the counters the reconciliation loops record.
type reconcileMetrics struct {
	botStatusChanges      metric.Int64Counter
	botPollingErrors      metric.Int64Counter
	meetingsMaterialized  metric.Int64Counter
	participantsSkipped   metric.Int64Counter
	transcriptsBackfilled metric.Int64Counter
	transcriptsGivenUp    metric.Int64Counter
	contentDispatched     metric.Int64Counter
	contentDeliveries     metric.Int64Counter
}

func newReconcileMetrics() *reconcileMetrics {
	meter := otel.Meter(meterName)
	return &reconcileMetrics{
		botStatusChanges:      newCounter(meter, "recording.bot.status_changes", "Bot status transitions observed"),
		botPollingErrors:      newCounter(meter, "recording.bot.polling_errors", "Bot status polls that failed"),
		meetingsMaterialized:  newCounter(meter, "recording.meetings.materialized", "Meetings created from done bots"),
		participantsSkipped:   newCounter(meter, "recording.participants.skipped", "Participant rows that could not be stored"),
		transcriptsBackfilled: newCounter(meter, "recording.transcripts.backfilled", "Empty transcripts filled by the backfill loop"),
		transcriptsGivenUp:    newCounter(meter, "recording.transcripts.given_up", "Transcripts abandoned at the attempt ceiling"),
		contentDispatched:     newCounter(meter, "recording.content.dispatched", "Content generation jobs enqueued"),
		contentDeliveries:     newCounter(meter, "recording.content.deliveries", "Content generation deliveries by outcome"),
	}
}

func newCounter(meter metric.Meter, name, description string) metric.Int64Counter {
	counter, err := meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		slog.Warn("failed to create counter, using a no-op counter", "counter", name, logging.ErrKey, err)
		return noop.Int64Counter{}
	}
	return counter
}

func count(ctx context.Context, counter metric.Int64Counter, attrs ...attribute.KeyValue) {
	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}
