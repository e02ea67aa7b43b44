package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/markaspot/dedup/internal/domain"
	"github.com/markaspot/dedup/internal/domain/vector"
)

// Service keeps report embeddings in sync with report content.
type Service struct {
	repo    Repository
	reports ReportSource
	embed   Embedder
	model   string
	clock   domain.Clock
	logger  *zap.Logger
}

// New creates an embedding service.
func New(
	repo Repository, reports ReportSource, embed Embedder,
	model string, clock domain.Clock, logger *zap.Logger,
) *Service {
	return &Service{
		repo:    repo,
		reports: reports,
		embed:   embed,
		model:   model,
		clock:   clock,
		logger:  logger,
	}
}

// Ensure guarantees a current embedding exists for the report. When the stored
// content hash already matches the report text, the existing record is returned
// without an API call. Returns generated=true when a new vector was produced.
func (s *Service) Ensure(ctx context.Context, rep domain.Report) (domain.EmbeddingRecord, bool, error) {
	hash := vector.TextHash(rep.Text())

	current, err := s.repo.IsCurrent(ctx, domain.EntityType, rep.ID, hash, domain.EmbeddingTypeBody)
	if err != nil {
		return domain.EmbeddingRecord{}, false, fmt.Errorf("check embedding currency: %w", err)
	}
	if current {
		rec, err := s.repo.Get(ctx, domain.EntityType, rep.ID, domain.EmbeddingTypeBody)
		if err == nil {
			return rec, false, nil
		}
		if !errors.Is(err, domain.ErrEmbeddingNotFound) {
			return domain.EmbeddingRecord{}, false, err
		}
		// запись исчезла между проверками — генерируем заново
	}

	res, err := s.embed.Embed(ctx, rep.Text())
	if err != nil {
		return domain.EmbeddingRecord{}, false, fmt.Errorf("embed report %s: %w", rep.ID, err)
	}

	rec := domain.EmbeddingRecord{
		EntityType:    domain.EntityType,
		EntityID:      rep.ID,
		EmbeddingType: domain.EmbeddingTypeBody,
		Vector:        res.Embedding,
		Model:         s.model,
		Dimensions:    len(res.Embedding),
		ContentHash:   hash,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Store(ctx, rec); err != nil {
		return domain.EmbeddingRecord{}, false, err
	}

	s.logger.Debug("Embedding generated",
		zap.String("report_id", rep.ID),
		zap.Int("dimensions", rec.Dimensions),
		zap.Int("total_tokens", res.TotalTokens),
	)

	return rec, true, nil
}

// Get returns the current embedding record for a report.
func (s *Service) Get(ctx context.Context, reportID string) (domain.EmbeddingRecord, error) {
	return s.repo.Get(ctx, domain.EntityType, reportID, domain.EmbeddingTypeBody)
}

// Delete removes the report's embedding. Missing records are a no-op.
func (s *Service) Delete(ctx context.Context, reportID string) error {
	return s.repo.Delete(ctx, domain.EntityType, reportID, domain.EmbeddingTypeBody)
}

// BackfillResult reports the outcome of one RegenerateMissing pass.
type BackfillResult struct {
	Scanned   int
	Generated int
	Skipped   int      // embedding already current
	Failed    []string // report ids that could not be processed
}

// RegenerateMissing scans the newest limit reports and generates embeddings for
// those whose stored vector is missing or stale. Misses are vectorized in a
// single batch request; per-report failures are collected, not fatal.
func (s *Service) RegenerateMissing(ctx context.Context, limit int) (BackfillResult, error) {
	ids, err := s.reports.ListRecentIDs(ctx, 0, limit)
	if err != nil {
		return BackfillResult{}, fmt.Errorf("list reports: %w", err)
	}

	var result BackfillResult
	var missReports []domain.Report
	var missHashes []string

	for _, id := range ids {
		result.Scanned++

		rep, err := s.reports.Get(ctx, id)
		if errors.Is(err, domain.ErrReportNotFound) {
			// index entry outlived the snapshot
			continue
		}
		if err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}

		hash := vector.TextHash(rep.Text())
		current, err := s.repo.IsCurrent(ctx, domain.EntityType, id, hash, domain.EmbeddingTypeBody)
		if err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		if current {
			result.Skipped++
			continue
		}

		missReports = append(missReports, rep)
		missHashes = append(missHashes, hash)
	}

	if len(missReports) == 0 {
		return result, nil
	}

	texts := make([]string, len(missReports))
	for i, rep := range missReports {
		texts[i] = rep.Text()
	}

	batch, err := s.batchEmbed(ctx, texts)
	if err != nil {
		for _, rep := range missReports {
			result.Failed = append(result.Failed, rep.ID)
		}
		s.logger.Error("Backfill batch embedding failed",
			zap.Int("batch_size", len(texts)),
			zap.Error(err),
		)
		return result, nil
	}

	now := s.clock.Now()
	for i, rep := range missReports {
		rec := domain.EmbeddingRecord{
			EntityType:    domain.EntityType,
			EntityID:      rep.ID,
			EmbeddingType: domain.EmbeddingTypeBody,
			Vector:        batch.Embeddings[i],
			Model:         s.model,
			Dimensions:    len(batch.Embeddings[i]),
			ContentHash:   missHashes[i],
			CreatedAt:     now,
		}
		if err := s.repo.Store(ctx, rec); err != nil {
			result.Failed = append(result.Failed, rep.ID)
			continue
		}
		result.Generated++
	}

	s.logger.Info("Embedding backfill completed",
		zap.Int("scanned", result.Scanned),
		zap.Int("generated", result.Generated),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failed)),
	)

	return result, nil
}

func (s *Service) batchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		if len(res.Embeddings) != len(texts) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"batch embed returned %d vectors for %d texts", len(res.Embeddings), len(texts))
		}
		return res, nil
	}
	res, err := domain.BatchFallback(ctx, s.embed, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch fallback: %w", err)
	}
	return res, nil
}
