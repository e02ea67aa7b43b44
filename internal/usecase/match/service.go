package match

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/markaspot/dedup/internal/domain"
	"github.com/markaspot/dedup/internal/metrics"
)

// Service owns the match lifecycle: recording detected pairs and applying
// reviewer decisions.
type Service struct {
	repo   Repository
	clock  domain.Clock
	logger *zap.Logger
}

// New creates a match service.
func New(repo Repository, clock domain.Clock, logger *zap.Logger) *Service {
	return &Service{repo: repo, clock: clock, logger: logger}
}

// Record persists one detected duplicate pair. The pair is canonicalized
// first, so (A,B) and (B,A) always address the same record. Rules:
//
//   - no existing record: a new pending record is inserted
//   - existing rejected record: reactivated as pending with fresh score,
//     distance, and creation time (a re-detection after rejection means the
//     evidence changed and deserves another look)
//   - existing pending or confirmed record: left untouched
func (s *Service) Record(
	ctx context.Context, a, b string, score float64, distance *float64,
) (domain.Match, domain.RecordOutcome, error) {
	source, match := domain.CanonicalPair(a, b)

	existing, err := s.repo.FindByPair(ctx, source, match)
	if err != nil && !errors.Is(err, domain.ErrMatchNotFound) {
		return domain.Match{}, "", fmt.Errorf("lookup pair: %w", err)
	}

	if err == nil {
		switch existing.Status {
		case domain.MatchRejected:
			if err := s.repo.Reactivate(ctx, existing.ID, score, distance, s.clock.Now()); err != nil {
				return domain.Match{}, "", fmt.Errorf("reactivate match %d: %w", existing.ID, err)
			}
			reactivated, err := s.repo.Get(ctx, existing.ID)
			if err != nil {
				return domain.Match{}, "", err
			}
			metrics.MatchesRecordedTotal.WithLabelValues(string(domain.RecordReactivated)).Inc()
			s.logger.Info("Rejected match reactivated",
				zap.Int64("match_id", existing.ID),
				zap.String("source_id", source),
				zap.String("matched_id", match),
				zap.Float64("score", score),
			)
			return reactivated, domain.RecordReactivated, nil
		default:
			// pending и confirmed не трогаем
			metrics.MatchesRecordedTotal.WithLabelValues(string(domain.RecordNoop)).Inc()
			return existing, domain.RecordNoop, nil
		}
	}

	m := domain.Match{
		SourceID:       source,
		MatchID:        match,
		Score:          score,
		DistanceMeters: distance,
		Status:         domain.MatchPending,
		CreatedAt:      s.clock.Now(),
	}

	created, isNew, err := s.repo.Create(ctx, m)
	if err != nil {
		return domain.Match{}, "", fmt.Errorf("create match: %w", err)
	}
	if !isNew {
		// concurrent scan won the pair claim
		metrics.MatchesRecordedTotal.WithLabelValues(string(domain.RecordNoop)).Inc()
		return created, domain.RecordNoop, nil
	}

	metrics.MatchesRecordedTotal.WithLabelValues(string(domain.RecordCreated)).Inc()
	s.logger.Info("Duplicate match recorded",
		zap.Int64("match_id", created.ID),
		zap.String("source_id", source),
		zap.String("matched_id", match),
		zap.Float64("score", score),
	)
	return created, domain.RecordCreated, nil
}

// Get returns one match record by id.
func (s *Service) Get(ctx context.Context, id int64) (domain.Match, error) {
	return s.repo.Get(ctx, id)
}

// ListForEntity returns matches involving entityID, score descending,
// optionally filtered to one lifecycle state.
func (s *Service) ListForEntity(
	ctx context.Context, entityID string, status domain.MatchStatus,
) ([]domain.Match, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, domain.ErrInvalidStatus)
	}

	all, err := s.repo.ListForEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}

	filtered := all[:0]
	for _, m := range all {
		if m.Status == status {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// Review applies a reviewer decision to a pending match. Only pending matches
// are reviewable; a second decision on the same match fails with
// domain.ErrAlreadyReviewed. Confirmed matches are never downgradable.
func (s *Service) Review(
	ctx context.Context, id int64, decision domain.MatchStatus, reviewerID string,
) (domain.Match, error) {
	if !decision.ReviewDecision() {
		return domain.Match{}, fmt.Errorf("decision %q: %w", decision, domain.ErrInvalidStatus)
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Match{}, err
	}
	if existing.Status != domain.MatchPending {
		return domain.Match{}, fmt.Errorf("match %d is %s: %w", id, existing.Status, domain.ErrAlreadyReviewed)
	}

	now := s.clock.Now()
	if err := s.repo.SetReview(ctx, id, decision, reviewerID, now); err != nil {
		return domain.Match{}, err
	}

	metrics.MatchReviewsTotal.WithLabelValues(string(decision)).Inc()
	s.logger.Info("Match reviewed",
		zap.Int64("match_id", id),
		zap.String("decision", string(decision)),
		zap.String("reviewer_id", reviewerID),
	)

	existing.Status = decision
	existing.ReviewerID = reviewerID
	existing.ReviewedAt = now
	return existing, nil
}

// Pending returns pending matches newest first, paginated.
func (s *Service) Pending(ctx context.Context, offset, limit int) ([]domain.Match, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.Pending(ctx, offset, limit)
}

// Counts aggregates match records by lifecycle state.
func (s *Service) Counts(ctx context.Context) (domain.MatchCounts, error) {
	return s.repo.Counts(ctx)
}

// DeleteForEntity removes every match involving entityID and returns how many
// records were deleted. Called when a report is withdrawn from the index.
func (s *Service) DeleteForEntity(ctx context.Context, entityID string) (int, error) {
	n, err := s.repo.DeleteForEntity(ctx, entityID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Matches deleted for entity",
			zap.String("entity_id", entityID),
			zap.Int("deleted", n),
		)
	}
	return n, nil
}
