package match

import (
	"strconv"
	"time"

	"github.com/markaspot/dedup/internal/domain"
)

// Hash field names for a persisted match record.
const (
	fieldSourceID   = "source_id"
	fieldMatchID    = "match_id"
	fieldScore      = "score"
	fieldDistance   = "distance_meters"
	fieldStatus     = "status"
	fieldReviewer   = "reviewer_id"
	fieldReviewedAt = "reviewed_at"
	fieldCreatedAt  = "created_at"
)

func buildHashFields(m domain.Match) map[string]string {
	fields := map[string]string{
		fieldSourceID:   m.SourceID,
		fieldMatchID:    m.MatchID,
		fieldScore:      strconv.FormatFloat(m.Score, 'f', -1, 64),
		fieldStatus:     string(m.Status),
		fieldReviewer:   m.ReviewerID,
		fieldCreatedAt:  strconv.FormatInt(m.CreatedAt.Unix(), 10),
		fieldDistance:   "",
		fieldReviewedAt: "",
	}
	if m.DistanceMeters != nil {
		fields[fieldDistance] = strconv.FormatFloat(*m.DistanceMeters, 'f', -1, 64)
	}
	if !m.ReviewedAt.IsZero() {
		fields[fieldReviewedAt] = strconv.FormatInt(m.ReviewedAt.Unix(), 10)
	}
	return fields
}

func parseHashFields(id int64, m map[string]string) domain.Match {
	rec := domain.Match{
		ID:         id,
		SourceID:   m[fieldSourceID],
		MatchID:    m[fieldMatchID],
		Status:     domain.MatchStatus(m[fieldStatus]),
		ReviewerID: m[fieldReviewer],
	}
	if score, err := strconv.ParseFloat(m[fieldScore], 64); err == nil {
		rec.Score = score
	}
	if raw := m[fieldDistance]; raw != "" {
		if d, err := strconv.ParseFloat(raw, 64); err == nil {
			rec.DistanceMeters = &d
		}
	}
	if raw := m[fieldReviewedAt]; raw != "" {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
			rec.ReviewedAt = time.Unix(ts, 0).UTC()
		}
	}
	if ts, err := strconv.ParseInt(m[fieldCreatedAt], 10, 64); err == nil {
		rec.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return rec
}
