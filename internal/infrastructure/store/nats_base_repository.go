// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linuxfoundation/lfx-v2-recording-service/internal/domain"
	"github.com/linuxfoundation/lfx-v2-recording-service/internal/logging"
)

// NATS Key-Value store bucket names
const (
	KVStoreNameContentRequests = "recording-content-requests"
)

// INatsKeyValue is the subset of jetstream.KeyValue the repositories use.
type INatsKeyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(context.Context, string, []byte) (uint64, error)
	Delete(context.Context, string, ...jetstream.KVDeleteOpt) error
}

// NatsBaseRepository provides JSON entity storage on top of a NATS KV bucket.
type NatsBaseRepository[T any] struct {
	kvStore    INatsKeyValue
	entityName string // Used in error messages (e.g., "content request")
}

// NewNatsBaseRepository creates a new base repository for NATS KV operations
func NewNatsBaseRepository[T any](kvStore INatsKeyValue, entityName string) *NatsBaseRepository[T] {
	return &NatsBaseRepository[T]{
		kvStore:    kvStore,
		entityName: entityName,
	}
}

// IsReady checks if the repository is ready for use
func (r *NatsBaseRepository[T]) IsReady() bool {
	return r.kvStore != nil
}

func (r *NatsBaseRepository[T]) startSpan(ctx context.Context, operation, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "nats.kv."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "nats"),
			attribute.String("db.operation", operation),
			attribute.String("db.nats.key", key),
			attribute.String("db.nats.entity", r.entityName),
		),
	)
}

// kvError classifies a bucket error: a missing key is NotFound, anything else
// is logged and reported as Internal.
func (r *NatsBaseRepository[T]) kvError(ctx context.Context, operation, key string, err error) error {
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return domain.NewNotFoundError(fmt.Sprintf("%s with key '%s' not found", r.entityName, key), err)
	}
	slog.ErrorContext(ctx, "NATS KV operation failed",
		logging.ErrKey, err,
		"operation", operation,
		"entity", r.entityName,
		"key", key,
	)
	return domain.NewInternalError(fmt.Sprintf("failed to %s %s", operation, r.entityName), err)
}

// GetWithRevision retrieves and unmarshals an entity together with the
// revision it was read at, for a later revision-checked Delete. A missing key
// is a NotFound error.
func (r *NatsBaseRepository[T]) GetWithRevision(ctx context.Context, key string) (_ *T, _ uint64, err error) {
	ctx, span := r.startSpan(ctx, "get", key)
	defer func() { err = endSpan(span, err) }()

	if !r.IsReady() {
		return nil, 0, domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
	}

	entry, err := r.kvStore.Get(ctx, key)
	if err != nil {
		return nil, 0, r.kvError(ctx, "get", key, err)
	}
	span.SetAttributes(attribute.Int64("db.nats.revision", int64(entry.Revision())))

	var entity T
	if err := json.Unmarshal(entry.Value(), &entity); err != nil {
		return nil, 0, r.kvError(ctx, "decode", key, err)
	}
	return &entity, entry.Revision(), nil
}

// Put marshals and stores an entity under key, overwriting any previous value.
func (r *NatsBaseRepository[T]) Put(ctx context.Context, key string, entity *T) (err error) {
	ctx, span := r.startSpan(ctx, "put", key)
	defer func() { err = endSpan(span, err) }()

	if !r.IsReady() {
		return domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to encode %s", r.entityName), err)
	}

	revision, err := r.kvStore.Put(ctx, key, data)
	if err != nil {
		return r.kvError(ctx, "put", key, err)
	}
	span.SetAttributes(attribute.Int64("db.nats.revision", int64(revision)))
	return nil
}

// Delete removes an entity only while it is still at revision. A missing key
// is a NotFound error and a newer revision is a Conflict error.
func (r *NatsBaseRepository[T]) Delete(ctx context.Context, key string, revision uint64) (err error) {
	ctx, span := r.startSpan(ctx, "delete", key)
	defer func() { err = endSpan(span, err) }()
	span.SetAttributes(attribute.Int64("db.nats.revision", int64(revision)))

	if !r.IsReady() {
		return domain.NewUnavailableError(fmt.Sprintf("%s repository is not available", r.entityName))
	}

	if err := r.kvStore.Delete(ctx, key, jetstream.LastRevision(revision)); err != nil {
		if isRevisionMismatch(err) {
			slog.WarnContext(ctx, "revision mismatch", logging.ErrKey, err, "key", key, "revision", revision)
			return domain.NewConflictError(fmt.Sprintf("%s with key '%s' changed since revision %d", r.entityName, key, revision), err)
		}
		return r.kvError(ctx, "delete", key, err)
	}
	return nil
}

// isRevisionMismatch reports whether a write was rejected because the key
// moved past the expected revision.
func isRevisionMismatch(err error) bool {
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}
	return strings.Contains(err.Error(), "wrong last sequence")
}
