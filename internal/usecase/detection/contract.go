package detection

import (
	"context"

	"github.com/markaspot/dedup/internal/domain"
)

// Reports persists report snapshots.
type Reports interface {
	Upsert(ctx context.Context, rep domain.Report) error
	Get(ctx context.Context, id string) (domain.Report, error)
	Delete(ctx context.Context, id string) error
}

// Embeddings keeps report embeddings current.
type Embeddings interface {
	Ensure(ctx context.Context, rep domain.Report) (domain.EmbeddingRecord, bool, error)
	Delete(ctx context.Context, reportID string) error
}

// Matcher scores a report against candidate reports.
type Matcher interface {
	FindDuplicates(ctx context.Context, rep domain.Report, opts domain.DetectionOptions) ([]domain.Candidate, error)
}

// Matches records detected pairs and removes matches for withdrawn reports.
type Matches interface {
	Record(ctx context.Context, a, b string, score float64, distance *float64) (domain.Match, domain.RecordOutcome, error)
	DeleteForEntity(ctx context.Context, entityID string) (int, error)
}
