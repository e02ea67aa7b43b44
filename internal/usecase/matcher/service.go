package matcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/markaspot/dedup/internal/domain"
	"github.com/markaspot/dedup/internal/domain/geo"
	"github.com/markaspot/dedup/internal/domain/vector"
	"github.com/markaspot/dedup/internal/metrics"
)

// Service scores candidate reports against a source report and ranks the
// results. It never writes anything; recording matches is the match service's
// job.
type Service struct {
	embeddings EmbeddingReader
	candidates CandidateSource
	clock      domain.Clock
	logger     *zap.Logger
}

// New creates a matcher service.
func New(
	embeddings EmbeddingReader, candidates CandidateSource,
	clock domain.Clock, logger *zap.Logger,
) *Service {
	return &Service{
		embeddings: embeddings,
		candidates: candidates,
		clock:      clock,
		logger:     logger,
	}
}

// FindDuplicates returns candidates whose cosine similarity to rep meets
// opts.Threshold, ranked by score descending and truncated to opts.Limit.
//
// A positive RadiusMeters restricts candidates to that Haversine distance from
// rep. The radius is a hard requirement: when it is set and either side lacks
// a location the candidate is excluded, so a source without geolocation yields
// no matches under a geo-filtered scan. RadiusMeters 0 ignores geography.
// Candidates whose vector dimensions disagree with rep's are logged and
// skipped, never fatal.
func (s *Service) FindDuplicates(
	ctx context.Context, rep domain.Report, opts domain.DetectionOptions,
) ([]domain.Candidate, error) {
	opts.ApplyDefaults()

	start := time.Now()

	src, err := s.embeddings.Get(ctx, domain.EntityType, rep.ID, domain.EmbeddingTypeBody)
	if errors.Is(err, domain.ErrEmbeddingNotFound) {
		// nothing to compare against yet
		return nil, nil
	}
	if err != nil {
		metrics.DetectionScansTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("source embedding: %w", err)
	}

	geoFiltered := opts.RadiusMeters > 0
	if geoFiltered && !rep.HasLocation() {
		// радиус задан, а у источника нет координат — совпадений нет
		return nil, nil
	}

	var bbox *geo.Box
	if geoFiltered {
		b := geo.BoundingBox(*rep.Location, opts.RadiusMeters)
		bbox = &b
	}

	since := s.clock.Now().AddDate(0, 0, -opts.WindowDays)
	exclude := append([]string{rep.ID}, opts.ExcludeIDs...)

	candidates, err := s.candidates.FindCandidates(ctx, since, exclude, bbox)
	if err != nil {
		metrics.DetectionScansTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	out := make([]domain.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		var distance *float64
		if geoFiltered {
			if !cand.HasLocation() {
				continue
			}
			d := geo.Distance(*rep.Location, *cand.Location)
			if d > opts.RadiusMeters {
				continue
			}
			distance = &d
		}

		candEmb, err := s.embeddings.Get(ctx, domain.EntityType, cand.ID, domain.EmbeddingTypeBody)
		if errors.Is(err, domain.ErrEmbeddingNotFound) {
			continue
		}
		if err != nil {
			metrics.DetectionScansTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("candidate embedding %s: %w", cand.ID, err)
		}

		score, err := vector.CosineSimilarity(src.Vector, candEmb.Vector)
		if errors.Is(err, domain.ErrVectorDimMismatch) {
			s.logger.Warn("Skipping candidate with mismatched vector dimensions",
				zap.String("report_id", rep.ID),
				zap.String("candidate_id", cand.ID),
				zap.Int("source_dims", len(src.Vector)),
				zap.Int("candidate_dims", len(candEmb.Vector)),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("score candidate %s: %w", cand.ID, err)
		}

		if score < opts.Threshold {
			continue
		}

		out = append(out, domain.Candidate{
			MatchID:        cand.ID,
			Score:          score,
			DistanceMeters: distance,
			CreatedAt:      cand.CreatedAt,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}

	metrics.DetectionScansTotal.WithLabelValues("success").Inc()
	metrics.DetectionScanDuration.Observe(time.Since(start).Seconds())
	metrics.DetectionCandidatesScanned.Observe(float64(len(candidates)))

	s.logger.Debug("Duplicate scan completed",
		zap.String("report_id", rep.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(out)),
		zap.Float64("threshold", opts.Threshold),
	)

	return out, nil
}
