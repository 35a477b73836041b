// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
)

// ReadinessCheck is a named dependency consulted by the readiness probe.
type ReadinessCheck struct {
	Name  string
	Ready func() bool
}

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checks []ReadinessCheck
}

func NewHealthHandler(checks ...ReadinessCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Routes returns the probe endpoints mounted on a new mux.
func (h *HealthHandler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", h.Livez)
	mux.HandleFunc("GET /readyz", h.Readyz)
	return mux
}

// Livez checks if the service is alive.
func (h *HealthHandler) Livez(w http.ResponseWriter, _ *http.Request) {
	// This always returns as long as the process is running. The reconciler
	// must self-terminate on non-recoverable errors.
	writeText(w, http.StatusOK, "OK\n")
}

// Readyz checks if every dependency is able to serve.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	var failing []string
	for _, check := range h.checks {
		if check.Ready == nil || !check.Ready() {
			failing = append(failing, check.Name)
		}
	}
	if len(failing) > 0 {
		slog.DebugContext(r.Context(), "service not ready", "failing", failing)
		writeText(w, http.StatusServiceUnavailable, "not ready: "+strings.Join(failing, ", ")+"\n")
		return
	}
	writeText(w, http.StatusOK, "OK\n")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
