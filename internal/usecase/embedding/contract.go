package embedding

import (
	"context"

	"github.com/markaspot/dedup/internal/domain"
)

// Repository persists embedding records by identity tuple.
type Repository interface {
	Store(ctx context.Context, rec domain.EmbeddingRecord) error
	Get(ctx context.Context, entityType, entityID string, t domain.EmbeddingType) (domain.EmbeddingRecord, error)
	IsCurrent(ctx context.Context, entityType, entityID, contentHash string, t domain.EmbeddingType) (bool, error)
	Delete(ctx context.Context, entityType, entityID string, t domain.EmbeddingType) error
}

// ReportSource reads report snapshots for backfill scans.
type ReportSource interface {
	ListRecentIDs(ctx context.Context, offset, count int) ([]string, error)
	Get(ctx context.Context, id string) (domain.Report, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
