// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
)

// TestEntity for testing the base repository
type TestEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestNatsBaseRepository_IsReady(t *testing.T) {
	assert.True(t, NewNatsBaseRepository[TestEntity](newMockNatsKeyValue(), "test").IsReady())
	assert.False(t, NewNatsBaseRepository[TestEntity](nil, "test").IsReady())
}

func TestNatsBaseRepository_GetWithRevision(t *testing.T) {
	ctx := context.Background()

	t.Run("successful get", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		entityJSON, _ := json.Marshal(&TestEntity{ID: "test-1", Name: "Test Entity"})
		mockKV.data["test-key"] = entityJSON
		mockKV.revisions["test-key"] = 7

		result, revision, err := repo.GetWithRevision(ctx, "test-key")
		require.NoError(t, err)
		assert.Equal(t, uint64(7), revision)
		assert.Equal(t, "test-1", result.ID)
		assert.Equal(t, "Test Entity", result.Name)
	})

	t.Run("not found", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](newMockNatsKeyValue(), "test")

		result, _, err := repo.GetWithRevision(ctx, "nonexistent")
		assert.Nil(t, result)
		assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
	})

	t.Run("repository not ready", func(t *testing.T) {
		repo := NewNatsBaseRepository[TestEntity](nil, "test")

		_, _, err := repo.GetWithRevision(ctx, "key")
		assert.Equal(t, domain.ErrorTypeUnavailable, domain.GetErrorType(err))
	})

	t.Run("backend error", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.getError = errors.New("nats: timeout")
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		_, _, err := repo.GetWithRevision(ctx, "key")
		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})

	t.Run("corrupt payload", func(t *testing.T) {
		mockKV := newMockNatsKeyValue()
		mockKV.data["key"] = []byte("{not json")
		repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

		_, _, err := repo.GetWithRevision(ctx, "key")
		assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
	})
}

func TestNatsBaseRepository_PutAndDelete(t *testing.T) {
	ctx := context.Background()
	mockKV := newMockNatsKeyValue()
	repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

	require.NoError(t, repo.Put(ctx, "key", &TestEntity{ID: "1", Name: "one"}))
	require.NoError(t, repo.Put(ctx, "key", &TestEntity{ID: "1", Name: "two"}))

	stored, revision, err := repo.GetWithRevision(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "two", stored.Name)
	assert.Equal(t, uint64(2), revision)

	require.NoError(t, repo.Delete(ctx, "key", revision))
	assert.Equal(t, []int{1}, mockKV.deleteOpts, "delete must carry the expected revision")

	_, _, err = repo.GetWithRevision(ctx, "key")
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))

	err = repo.Delete(ctx, "key", revision)
	assert.Equal(t, domain.ErrorTypeNotFound, domain.GetErrorType(err))
}

func TestNatsBaseRepository_DeleteErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantType domain.ErrorType
	}{
		{
			name:     "revision moved on",
			err:      &jetstream.APIError{Code: 400, ErrorCode: jetstream.JSErrCodeStreamWrongLastSequence, Description: "wrong last sequence: 4"},
			wantType: domain.ErrorTypeConflict,
		},
		{
			name:     "wrapped revision mismatch",
			err:      errors.New("nats: wrong last sequence: 4"),
			wantType: domain.ErrorTypeConflict,
		},
		{
			name:     "backend failure",
			err:      errors.New("nats: timeout"),
			wantType: domain.ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockKV := newMockNatsKeyValue()
			mockKV.data["key"] = []byte(`{"id":"1"}`)
			mockKV.revisions["key"] = 3
			mockKV.deleteError = tt.err
			repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

			err := repo.Delete(context.Background(), "key", 3)
			assert.Equal(t, tt.wantType, domain.GetErrorType(err))
		})
	}
}

func TestNatsBaseRepository_PutError(t *testing.T) {
	mockKV := newMockNatsKeyValue()
	mockKV.putError = errors.New("nats: no responders")
	repo := NewNatsBaseRepository[TestEntity](mockKV, "test")

	err := repo.Put(context.Background(), "key", &TestEntity{ID: "1"})
	assert.Equal(t, domain.ErrorTypeInternal, domain.GetErrorType(err))
}
