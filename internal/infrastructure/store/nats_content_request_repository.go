// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain/models"
)

// NatsContentRequestRepository keeps outstanding content generation requests
// in a NATS KV bucket. The bucket TTL expires requests nobody answered.
type NatsContentRequestRepository struct {
	*NatsBaseRepository[models.ContentRequest]
	keys *KeyBuilder
}

// NewNatsContentRequestRepository creates a repository on the given bucket.
func NewNatsContentRequestRepository(kvStore INatsKeyValue) *NatsContentRequestRepository {
	return &NatsContentRequestRepository{
		NatsBaseRepository: NewNatsBaseRepository[models.ContentRequest](kvStore, "content request"),
		keys:               NewKeyBuilder(""),
	}
}

func (r *NatsContentRequestRepository) key(requestID string) string {
	return r.keys.EntityKeyEncoded(KeyPrefixContentRequest, requestID)
}

// Create records a new content request.
func (r *NatsContentRequestRepository) Create(ctx context.Context, request *models.ContentRequest) error {
	if request == nil || request.RequestID == "" {
		return domain.NewValidationError("content request id is required")
	}
	return r.Put(ctx, r.key(request.RequestID), request)
}

// GetWithRevision returns the content request and its revision, or a
// NotFound error.
func (r *NatsContentRequestRepository) GetWithRevision(ctx context.Context, requestID string) (*models.ContentRequest, uint64, error) {
	if requestID == "" {
		return nil, 0, domain.NewNotFoundError("content request id is empty")
	}
	return r.NatsBaseRepository.GetWithRevision(ctx, r.key(requestID))
}

// Delete removes the content request if it is still at revision. Only one
// of several concurrent deletes of the same revision succeeds.
func (r *NatsContentRequestRepository) Delete(ctx context.Context, requestID string, revision uint64) error {
	return r.NatsBaseRepository.Delete(ctx, r.key(requestID), revision)
}
