package review

import (
	"context"

	"github.com/markaspot/dedup/internal/domain"
)

// Matches applies reviewer decisions to match records.
type Matches interface {
	Review(ctx context.Context, id int64, decision domain.MatchStatus, reviewerID string) (domain.Match, error)
}

// Reports reads and mutates report snapshots for confirm side effects.
type Reports interface {
	Get(ctx context.Context, id string) (domain.Report, error)
	SetStatus(ctx context.Context, id, status string) error
	AppendNote(ctx context.Context, id, note string) error
}
