package match

import (
	"context"
	"time"

	"github.com/markaspot/dedup/internal/domain"
)

// Repository is the storage contract for match records.
type Repository interface {
	FindByPair(ctx context.Context, source, match string) (domain.Match, error)
	Create(ctx context.Context, m domain.Match) (created domain.Match, isNew bool, err error)
	Get(ctx context.Context, id int64) (domain.Match, error)
	Reactivate(ctx context.Context, id int64, score float64, distance *float64, at time.Time) error
	SetReview(ctx context.Context, id int64, status domain.MatchStatus, reviewerID string, at time.Time) error
	ListForEntity(ctx context.Context, entityID string) ([]domain.Match, error)
	Pending(ctx context.Context, offset, limit int) ([]domain.Match, error)
	Counts(ctx context.Context) (domain.MatchCounts, error)
	DeleteForEntity(ctx context.Context, entityID string) (int, error)
}
