// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

const (
	natsClientName      = "lfx-v2-recording-service"
	natsDrainTimeout    = 25 * time.Second
	natsReconnectWait   = 2 * time.Second
	contentStreamMaxAge = 7 * 24 * time.Hour
)

// setupNATS connects to NATS. The connection reconnects forever; its state
// changes are logged.
func setupNATS(ctx context.Context, env environment) (*nats.Conn, error) {
	slog.With("nats_url", env.NATSURL).InfoContext(ctx, "attempting to connect to NATS")

	conn, err := nats.Connect(
		env.NATSURL,
		nats.Name(natsClientName),
		nats.DrainTimeout(natsDrainTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(natsReconnectWait),
		nats.ConnectHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection established")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.WarnContext(ctx, "NATS disconnected", logging.ErrKey, err)
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			slog.InfoContext(ctx, "NATS reconnected", "url", conn.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			if sub != nil {
				slog.ErrorContext(ctx, "async NATS error", logging.ErrKey, err, "subject", sub.Subject, "queue", sub.Queue)
				return
			}
			slog.ErrorContext(ctx, "async NATS error outside subscription", logging.ErrKey, err)
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			slog.InfoContext(ctx, "NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

// setupJetStream ensures the content generation stream and the content
// request bucket exist. Entries of the bucket expire with the request.
func setupJetStream(ctx context.Context, conn *nats.Conn, env environment) (jetstream.JetStream, jetstream.KeyValue, error) {
	js, err := jetstream.New(conn)
	if err != nil {
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        models.ContentGenerationStream,
		Description: "Content generation jobs for materialized meetings",
		Subjects:    []string{models.ContentGenerationSubject},
		Retention:   jetstream.WorkQueuePolicy,
		MaxAge:      contentStreamMaxAge,
		Duplicates:  env.ContentRequestTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create stream %s: %w", models.ContentGenerationStream, err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      store.KVStoreNameContentRequests,
		Description: "Pending content generation requests",
		TTL:         env.ContentRequestTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create key-value bucket %s: %w", store.KVStoreNameContentRequests, err)
	}

	return js, kv, nil
}

// createNatsSubscriptions subscribes the handler to the read API and the
// content delivery subjects in the service queue group.
func createNatsSubscriptions(ctx context.Context, conn *nats.Conn, handler domain.MessageHandler) ([]*nats.Subscription, error) {
	subjects := []string{
		models.GetMeetingSubject,
		models.GetMeetingByBotSubject,
		models.ContentGeneratedSubject,
	}

	subscriptions := make([]*nats.Subscription, 0, len(subjects))
	for _, subject := range subjects {
		sub, err := conn.QueueSubscribe(subject, models.RecordingsAPIQueue, func(msg *nats.Msg) {
			natsMsg := messaging.NewNatsMessage(msg)
			handler.HandleMessage(natsMsg.Context(ctx), natsMsg)
		})
		if err != nil {
			for _, s := range subscriptions {
				_ = s.Unsubscribe()
			}
			return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
		}
		slog.DebugContext(ctx, "subscribed to NATS subject", "subject", subject, "queue", models.RecordingsAPIQueue)
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions, nil
}
