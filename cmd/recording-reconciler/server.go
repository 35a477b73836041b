// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/handlers"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/middleware"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/service"
)

const httpShutdownTimeout = 10 * time.Second

// healthHandler reports the reconciler ready once NATS is connected, the store
// is open and the loops and request handlers are wired.
func (a *application) healthHandler() *handlers.HealthHandler {
	return handlers.NewHealthHandler(
		handlers.ReadinessCheck{Name: "nats", Ready: func() bool {
			return a.natsConn != nil && a.natsConn.IsConnected()
		}},
		handlers.ReadinessCheck{Name: "store", Ready: func() bool {
			return a.store != nil && a.store.IsReady()
		}},
		handlers.ReadinessCheck{Name: "loops", Ready: func() bool {
			return a.reconciler != nil && a.backfiller != nil &&
				servicesReady(a.reconciler, a.backfiller)
		}},
		handlers.ReadinessCheck{Name: "handlers", Ready: func() bool {
			return a.handler != nil && a.handler.HandlerReady()
		}},
	)
}

// servicesReady reports whether every service has its dependencies wired.
func servicesReady(services ...service.Service) bool {
	for _, svc := range services {
		if svc == nil || !svc.ServiceReady() {
			return false
		}
	}
	return true
}

// setupHTTPServer configures and starts the probe server. Listener failures
// are sent on the returned channel.
func setupHTTPServer(ctx context.Context, addr string, health *handlers.HealthHandler) (*http.Server, <-chan error) {
	var handler http.Handler = health.Routes()

	// RequestIDMiddleware runs first, so it is added last.
	handler = middleware.RequestLoggerMiddleware()(handler)
	handler = middleware.RequestIDMiddleware()(handler)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 3 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.DebugContext(ctx, "starting http server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http listener error", logging.ErrKey, err)
			errCh <- err
		}
		close(errCh)
	}()

	return httpServer, errCh
}

// shutdownHTTPServer stops accepting probe requests and waits for in-flight ones.
func shutdownHTTPServer(httpServer *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "http shutdown error", logging.ErrKey, err)
	}
}
