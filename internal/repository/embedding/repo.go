// Package embedding persists one embedding vector per (entity, embedding type)
// pair, keyed by a content hash for staleness detection.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/markaspot/dedup/internal/domain"
)

// store is the consumer interface for embedding records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
}

// Repo implements the embedding record storage contract.
type Repo struct {
	store store
}

// New creates an embedding repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Store upserts a record by its (entity type, entity id, embedding type) identity.
// The sole mutation point for embeddings.
func (r *Repo) Store(ctx context.Context, rec domain.EmbeddingRecord) error {
	key := embKey(rec.EntityType, rec.EntityID, rec.EmbeddingType)
	if err := r.store.HSet(ctx, key, buildHashFields(rec)); err != nil {
		return fmt.Errorf("store embedding %s: %w", key, err)
	}
	return nil
}

// Get returns the current record for the identity tuple,
// or domain.ErrEmbeddingNotFound.
func (r *Repo) Get(
	ctx context.Context, entityType, entityID string, t domain.EmbeddingType,
) (domain.EmbeddingRecord, error) {
	key := embKey(entityType, entityID, t)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domain.EmbeddingRecord{}, fmt.Errorf("get embedding %s: %w", key, err)
	}
	if len(m) == 0 {
		return domain.EmbeddingRecord{}, domain.ErrEmbeddingNotFound
	}
	return parseHashFields(entityType, entityID, t, m), nil
}

// IsCurrent reports whether a record exists and its stored content hash equals
// contentHash. Callers use it to skip expensive regeneration.
func (r *Repo) IsCurrent(
	ctx context.Context, entityType, entityID, contentHash string, t domain.EmbeddingType,
) (bool, error) {
	rec, err := r.Get(ctx, entityType, entityID, t)
	if errors.Is(err, domain.ErrEmbeddingNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.ContentHash == contentHash, nil
}

// Delete removes the record for the identity tuple. Deleting a missing record
// is a no-op.
func (r *Repo) Delete(ctx context.Context, entityType, entityID string, t domain.EmbeddingType) error {
	key := embKey(entityType, entityID, t)
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("delete embedding %s: %w", key, err)
	}
	return nil
}

func embKey(entityType, entityID string, t domain.EmbeddingType) string {
	return domain.KeyPrefix + "emb:" + entityType + ":" + entityID + ":" + string(t)
}
