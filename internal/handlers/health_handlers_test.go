// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthHandler(t *testing.T) {
	ready := func() bool { return true }
	notReady := func() bool { return false }

	tests := []struct {
		name           string
		path           string
		checks         []ReadinessCheck
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "livez ignores dependencies",
			path:           "/livez",
			checks:         []ReadinessCheck{{Name: "nats", Ready: notReady}},
			expectedStatus: http.StatusOK,
			expectedBody:   "OK\n",
		},
		{
			name:           "readyz with every dependency ready",
			path:           "/readyz",
			checks:         []ReadinessCheck{{Name: "nats", Ready: ready}, {Name: "store", Ready: ready}},
			expectedStatus: http.StatusOK,
			expectedBody:   "OK\n",
		},
		{
			name: "readyz names failing dependencies",
			path: "/readyz",
			checks: []ReadinessCheck{
				{Name: "nats", Ready: notReady},
				{Name: "store", Ready: ready},
				{Name: "handlers", Ready: notReady},
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "not ready: nats, handlers\n",
		},
		{
			name:           "readyz treats a missing check as not ready",
			path:           "/readyz",
			checks:         []ReadinessCheck{{Name: "store"}},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "not ready: store\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := NewHealthHandler(tt.checks...).Routes()

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Equal(t, tt.expectedBody, rec.Body.String())
		})
	}
}

func TestHealthHandler_RejectsOtherMethods(t *testing.T) {
	mux := NewHealthHandler().Routes()

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/livez", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
