package detection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/markaspot/dedup/internal/domain"
)

// Service orchestrates report ingestion: snapshot persistence, embedding
// generation, duplicate scan, and match recording. Detection is best-effort:
// failures past the snapshot write are logged and never fail ingestion.
type Service struct {
	reports    Reports
	embeddings Embeddings
	matcher    Matcher
	matches    Matches
	opts       domain.DetectionOptions
	logger     *zap.Logger
}

// New creates a detection service. opts is the standing scan tuning; zero
// fields fall back to defaults.
func New(
	reports Reports, embeddings Embeddings, matcher Matcher, matches Matches,
	opts domain.DetectionOptions, logger *zap.Logger,
) *Service {
	opts.ApplyDefaults()
	return &Service{
		reports:    reports,
		embeddings: embeddings,
		matcher:    matcher,
		matches:    matches,
		opts:       opts,
		logger:     logger,
	}
}

// IngestResult summarizes what one ingestion pass did.
type IngestResult struct {
	EmbeddingGenerated bool
	Candidates         int // duplicates found by the scan
	Recorded           int // created or reactivated match records
}

// Ingest upserts the snapshot and runs the detection pipeline. Only the
// snapshot write can fail the call; embedding and scan errors degrade to an
// ingestion without detection.
func (s *Service) Ingest(ctx context.Context, rep domain.Report) (IngestResult, error) {
	if err := s.reports.Upsert(ctx, rep); err != nil {
		return IngestResult{}, fmt.Errorf("upsert report %s: %w", rep.ID, err)
	}

	var result IngestResult

	_, generated, err := s.embeddings.Ensure(ctx, rep)
	if err != nil {
		// нет эмбеддинга — нет скана, но сам отчёт сохранён
		s.logger.Warn("Embedding unavailable, skipping duplicate scan",
			zap.String("report_id", rep.ID),
			zap.Error(err),
		)
		return result, nil
	}
	result.EmbeddingGenerated = generated

	candidates, err := s.matcher.FindDuplicates(ctx, rep, s.opts)
	if err != nil {
		s.logger.Error("Duplicate scan failed",
			zap.String("report_id", rep.ID),
			zap.Error(err),
		)
		return result, nil
	}
	result.Candidates = len(candidates)

	for _, c := range candidates {
		_, outcome, err := s.matches.Record(ctx, rep.ID, c.MatchID, c.Score, c.DistanceMeters)
		if err != nil {
			s.logger.Error("Recording match failed",
				zap.String("report_id", rep.ID),
				zap.String("candidate_id", c.MatchID),
				zap.Error(err),
			)
			continue
		}
		if outcome != domain.RecordNoop {
			result.Recorded++
		}
	}

	return result, nil
}

// Options returns the standing scan tuning, for callers that override
// individual fields per request.
func (s *Service) Options() domain.DetectionOptions {
	return s.opts
}

// Scan runs an on-demand duplicate scan for a stored report without touching
// match records. opts is used as given; start from Options() to override
// selectively.
func (s *Service) Scan(
	ctx context.Context, reportID string, opts domain.DetectionOptions,
) ([]domain.Candidate, error) {
	rep, err := s.reports.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	return s.matcher.FindDuplicates(ctx, rep, opts)
}

// Withdraw removes a report and everything derived from it: snapshot,
// embedding, and all match records on either side. Returns the number of
// match records deleted.
func (s *Service) Withdraw(ctx context.Context, reportID string) (int, error) {
	if _, err := s.reports.Get(ctx, reportID); err != nil {
		return 0, err
	}

	if err := s.embeddings.Delete(ctx, reportID); err != nil {
		return 0, fmt.Errorf("delete embedding for %s: %w", reportID, err)
	}

	deleted, err := s.matches.DeleteForEntity(ctx, reportID)
	if err != nil {
		return 0, fmt.Errorf("delete matches for %s: %w", reportID, err)
	}

	if err := s.reports.Delete(ctx, reportID); err != nil {
		return deleted, fmt.Errorf("delete report %s: %w", reportID, err)
	}

	s.logger.Info("Report withdrawn",
		zap.String("report_id", reportID),
		zap.Int("matches_deleted", deleted),
	)
	return deleted, nil
}
