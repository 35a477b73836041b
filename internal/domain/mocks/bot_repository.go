// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// MockBotRepository implements BotRepository for testing
type MockBotRepository struct {
	mock.Mock
}

func (m *MockBotRepository) CreateBot(ctx context.Context, bot *models.Bot) error {
	args := m.Called(ctx, bot)
	return args.Error(0)
}

func (m *MockBotRepository) GetBot(ctx context.Context, botID string) (*models.Bot, error) {
	args := m.Called(ctx, botID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bot), args.Error(1)
}

func (m *MockBotRepository) SetBotStatus(ctx context.Context, botID string, status models.BotStatus) error {
	args := m.Called(ctx, botID, status)
	return args.Error(0)
}

func (m *MockBotRepository) ListPendingBots(ctx context.Context) ([]*models.Bot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bot), args.Error(1)
}

func (m *MockBotRepository) ListDoneBotsWithoutMeeting(ctx context.Context) ([]*models.Bot, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Bot), args.Error(1)
}
