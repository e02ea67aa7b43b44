package chi

import (
	"fmt"
	"strings"
	"time"

	"github.com/markaspot/dedup/internal/domain"
	"github.com/markaspot/dedup/internal/domain/geo"
)

// Error codes returned in the JSON error body.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeReportNotFound   = "report_not_found"
	codeMatchNotFound    = "match_not_found"
	codeAlreadyReviewed  = "already_reviewed"
	codeProviderError    = "embedding_provider_error"
	codeInternalError    = "internal_error"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type reportRequest struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Body       string     `json:"body"`
	Status     string     `json:"status"`
	Language   string     `json:"language,omitempty"`
	CategoryID string     `json:"category_id,omitempty"`
	Lat        *float64   `json:"lat,omitempty"`
	Lon        *float64   `json:"lon,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

func (r reportRequest) toDomain(now time.Time) (domain.Report, error) {
	if r.ID == "" {
		return domain.Report{}, fmt.Errorf("id is required")
	}
	if strings.ContainsRune(r.ID, ':') {
		// ':' разделяет сегменты ключей в хранилище
		return domain.Report{}, fmt.Errorf("id must not contain ':'")
	}
	if r.Title == "" && r.Body == "" {
		return domain.Report{}, fmt.Errorf("title or body is required")
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		return domain.Report{}, fmt.Errorf("lat and lon must be provided together")
	}

	rep := domain.Report{
		ID:         r.ID,
		Title:      r.Title,
		Body:       r.Body,
		Status:     r.Status,
		Language:   r.Language,
		CategoryID: r.CategoryID,
		CreatedAt:  now,
	}
	if rep.Status == "" {
		rep.Status = domain.ReportStatusOpen
	}
	if r.CreatedAt != nil {
		rep.CreatedAt = r.CreatedAt.UTC()
	}
	if r.Lat != nil {
		if !geo.ValidateCoordinates(*r.Lat, *r.Lon) {
			return domain.Report{}, fmt.Errorf("invalid coordinates (%v, %v)", *r.Lat, *r.Lon)
		}
		rep.Location = &geo.Point{Lat: *r.Lat, Lon: *r.Lon}
	}
	return rep, nil
}

type ingestResponse struct {
	ID                 string `json:"id"`
	EmbeddingGenerated bool   `json:"embedding_generated"`
	Candidates         int    `json:"candidates"`
	MatchesRecorded    int    `json:"matches_recorded"`
}

type candidateResponse struct {
	MatchID        string    `json:"match_id"`
	Score          float64   `json:"score"`
	DistanceMeters *float64  `json:"distance_meters,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func candidateToResponse(c domain.Candidate) candidateResponse {
	return candidateResponse{
		MatchID:        c.MatchID,
		Score:          c.Score,
		DistanceMeters: c.DistanceMeters,
		CreatedAt:      c.CreatedAt,
	}
}

type candidateListResponse struct {
	Items []candidateResponse `json:"items"`
	Total int                 `json:"total"`
}

type matchResponse struct {
	ID             int64      `json:"id"`
	SourceID       string     `json:"source_id"`
	MatchID        string     `json:"match_id"`
	OtherID        string     `json:"other_id,omitempty"`
	Score          float64    `json:"score"`
	DistanceMeters *float64   `json:"distance_meters,omitempty"`
	Status         string     `json:"status"`
	ReviewerID     string     `json:"reviewer_id,omitempty"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// matchToResponse renders a match record. entityID, when non-empty, annotates
// the response with the pair member opposite to it.
func matchToResponse(m domain.Match, entityID string) matchResponse {
	resp := matchResponse{
		ID:             m.ID,
		SourceID:       m.SourceID,
		MatchID:        m.MatchID,
		Score:          m.Score,
		DistanceMeters: m.DistanceMeters,
		Status:         string(m.Status),
		ReviewerID:     m.ReviewerID,
		CreatedAt:      m.CreatedAt,
	}
	if entityID != "" {
		resp.OtherID = m.Other(entityID)
	}
	if !m.ReviewedAt.IsZero() {
		at := m.ReviewedAt
		resp.ReviewedAt = &at
	}
	return resp
}

type matchListResponse struct {
	Items []matchResponse `json:"items"`
	Total int             `json:"total"`
}

type reviewRequest struct {
	Status     string `json:"status"`
	ReviewerID string `json:"reviewer_id"`
}

type countsResponse struct {
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Rejected  int `json:"rejected"`
	Total     int `json:"total"`
}

type deleteResponse struct {
	ID             string `json:"id"`
	MatchesDeleted int    `json:"matches_deleted"`
}

type regenerateResponse struct {
	Scanned   int      `json:"scanned"`
	Generated int      `json:"generated"`
	Skipped   int      `json:"skipped"`
	Failed    []string `json:"failed,omitempty"`
}
