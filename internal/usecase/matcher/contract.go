package matcher

import (
	"context"
	"time"

	"github.com/markaspot/dedup/internal/domain"
	"github.com/markaspot/dedup/internal/domain/geo"
)

// EmbeddingReader fetches stored vectors for similarity scoring.
type EmbeddingReader interface {
	Get(ctx context.Context, entityType, entityID string, t domain.EmbeddingType) (domain.EmbeddingRecord, error)
}

// CandidateSource finds report snapshots eligible for comparison.
type CandidateSource interface {
	FindCandidates(ctx context.Context, since time.Time, exclude []string, bbox *geo.Box) ([]domain.Report, error)
}
