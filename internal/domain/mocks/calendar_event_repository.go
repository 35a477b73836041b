// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// MockCalendarEventRepository implements CalendarEventRepository for testing
type MockCalendarEventRepository struct {
	mock.Mock
}

func (m *MockCalendarEventRepository) CreateCalendarEvent(ctx context.Context, event *models.CalendarEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockCalendarEventRepository) GetCalendarEvent(ctx context.Context, eventID string) (*models.CalendarEvent, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CalendarEvent), args.Error(1)
}
