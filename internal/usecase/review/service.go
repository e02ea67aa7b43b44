package review

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/markaspot/dedup/internal/domain"
)

// Service drives the human review workflow. Confirming a match closes the
// duplicate report; rejecting only records the decision.
type Service struct {
	matches      Matches
	reports      Reports
	closedStatus string
	logger       *zap.Logger
}

// New creates a review service. closedStatus is the report status the duplicate
// side is moved to on confirmation.
func New(matches Matches, reports Reports, closedStatus string, logger *zap.Logger) *Service {
	return &Service{
		matches:      matches,
		reports:      reports,
		closedStatus: closedStatus,
		logger:       logger,
	}
}

// Confirm marks the match confirmed, then closes the duplicate side: an audit
// note referencing the canonical source is appended to the matched report and
// its status is set to the configured closed state. The review decision is
// durable even when the side effects fail; those failures are reported to the
// caller for retry.
func (s *Service) Confirm(ctx context.Context, matchID int64, reviewerID string) (domain.Match, error) {
	m, err := s.matches.Review(ctx, matchID, domain.MatchConfirmed, reviewerID)
	if err != nil {
		return domain.Match{}, err
	}

	if err := s.closeDuplicate(ctx, m); err != nil {
		return m, fmt.Errorf("confirm side effects for match %d: %w", matchID, err)
	}

	s.logger.Info("Match confirmed, duplicate closed",
		zap.Int64("match_id", matchID),
		zap.String("source_id", m.SourceID),
		zap.String("duplicate_id", m.MatchID),
		zap.String("reviewer_id", reviewerID),
	)
	return m, nil
}

// Reject marks the match rejected. No report side effects; the pair can come
// back to pending only through re-detection.
func (s *Service) Reject(ctx context.Context, matchID int64, reviewerID string) (domain.Match, error) {
	m, err := s.matches.Review(ctx, matchID, domain.MatchRejected, reviewerID)
	if err != nil {
		return domain.Match{}, err
	}

	s.logger.Info("Match rejected",
		zap.Int64("match_id", matchID),
		zap.String("reviewer_id", reviewerID),
	)
	return m, nil
}

// closeDuplicate appends the locale-aware audit note to the duplicate side and
// transitions its status. The duplicate is always the match side of the
// canonical pair.
func (s *Service) closeDuplicate(ctx context.Context, m domain.Match) error {
	dup, err := s.reports.Get(ctx, m.MatchID)
	if errors.Is(err, domain.ErrReportNotFound) {
		// snapshot withdrawn since detection; nothing left to close
		s.logger.Warn("Duplicate report missing on confirm",
			zap.Int64("match_id", m.ID),
			zap.String("duplicate_id", m.MatchID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load duplicate %s: %w", m.MatchID, err)
	}

	note := closureNote(dup.Language, m.SourceID)
	if err := s.reports.AppendNote(ctx, dup.ID, note); err != nil {
		return fmt.Errorf("append note to %s: %w", dup.ID, err)
	}
	if err := s.reports.SetStatus(ctx, dup.ID, s.closedStatus); err != nil {
		return fmt.Errorf("close report %s: %w", dup.ID, err)
	}
	return nil
}
