// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/infrastructure/messaging"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/infrastructure/provider"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/infrastructure/store"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/scheduler"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/service"
	"github.com/linuxfoundation/lfx-v2-recording-service/pkg/utils"
)

// application holds the wired services of the reconciler.
type application struct {
	env          environment
	store        *store.SQLiteStore
	natsConn     *nats.Conn
	reconciler   *service.StatusReconciler
	backfiller   *service.TranscriptBackfiller
	handler      *handlers.RecordingHandler
	shutdownOTel func(context.Context) error
}

// newApplication opens the store, connects to NATS and wires the services.
// Close releases everything it opened.
func newApplication(ctx context.Context, env environment) (_ *application, err error) {
	app := &application{env: env}
	defer func() {
		if err != nil {
			app.Close(context.Background())
		}
	}()

	app.shutdownOTel, err = utils.SetupOTelSDK(ctx)
	if err != nil {
		return nil, err
	}

	app.store, err = store.OpenSQLiteStore(ctx, env.DatabasePath)
	if err != nil {
		return nil, err
	}

	app.natsConn, err = setupNATS(ctx, env)
	if err != nil {
		return nil, err
	}
	js, kv, err := setupJetStream(ctx, app.natsConn, env)
	if err != nil {
		return nil, err
	}

	serviceConfig := service.ServiceConfig{
		TranscriptAttemptCeiling: env.TranscriptAttemptCeiling,
		Workers:                  env.ReconcileWorkers,
		ContentRequestTimeout:    env.ContentRequestTimeout,
	}
	providerClient := provider.NewClient(provider.Config{
		APIKey:  env.ProviderAPIKey,
		BaseURL: env.ProviderBaseURL,
	})
	messageBuilder := messaging.NewMessageBuilder(app.natsConn, js)
	contentRequestService := service.NewContentRequestService(
		store.NewNatsContentRequestRepository(kv),
		messageBuilder,
		serviceConfig,
	)
	materializer := service.NewMeetingMaterializer(
		app.store,
		app.store,
		messageBuilder,
		contentRequestService,
	)
	app.reconciler = service.NewStatusReconciler(
		app.store,
		app.store,
		providerClient,
		materializer,
		serviceConfig,
	)
	app.backfiller = service.NewTranscriptBackfiller(
		app.store,
		providerClient,
		messageBuilder,
		contentRequestService,
		serviceConfig,
	)
	app.handler = handlers.NewRecordingHandler(
		service.NewMeetingQueryService(app.store),
		contentRequestService,
	)

	slog.InfoContext(ctx, "reconciler initialized",
		"database_path", app.store.Path(),
		"workers", env.ReconcileWorkers,
		"transcript_attempt_ceiling", env.TranscriptAttemptCeiling,
	)
	return app, nil
}

// newDriver returns the scheduler driving the reconciliation loops.
func (a *application) newDriver() (*scheduler.Driver, error) {
	return scheduler.NewDriver(a.reconciler, a.backfiller, scheduler.RealClock(), scheduler.Config{
		Interval: a.env.ReconcileInterval,
		LockPath: a.env.LockPath,
	})
}

// Close drains NATS, closes the store and flushes telemetry.
func (a *application) Close(ctx context.Context) {
	if a.natsConn != nil && !a.natsConn.IsClosed() {
		if err := a.natsConn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			slog.ErrorContext(ctx, "error draining NATS connection", logging.ErrKey, err)
		}
		// Drain returns before in-flight handlers finish; the store must outlive them.
		deadline := time.Now().Add(natsDrainTimeout)
		for !a.natsConn.IsClosed() && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.ErrorContext(ctx, "error closing store", logging.ErrKey, err)
		}
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			slog.ErrorContext(ctx, "error shutting down OpenTelemetry", logging.ErrKey, err)
		}
	}
}
