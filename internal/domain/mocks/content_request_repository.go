// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// MockContentRequestRepository implements ContentRequestRepository for testing
type MockContentRequestRepository struct {
	mock.Mock
}

func (m *MockContentRequestRepository) Create(ctx context.Context, request *models.ContentRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockContentRequestRepository) GetWithRevision(ctx context.Context, requestID string) (*models.ContentRequest, uint64, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*models.ContentRequest), args.Get(1).(uint64), args.Error(2)
}

func (m *MockContentRequestRepository) Delete(ctx context.Context, requestID string, revision uint64) error {
	args := m.Called(ctx, requestID, revision)
	return args.Error(0)
}
