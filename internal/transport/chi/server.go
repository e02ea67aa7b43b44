package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/markaspot/dedup/internal/domain"
	detectionuc "github.com/markaspot/dedup/internal/usecase/detection"
	embeddinguc "github.com/markaspot/dedup/internal/usecase/embedding"
	healthuc "github.com/markaspot/dedup/internal/usecase/health"
	matchuc "github.com/markaspot/dedup/internal/usecase/match"
	reviewuc "github.com/markaspot/dedup/internal/usecase/review"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the duplicate detection API over chi.
type Server struct {
	detection     *detectionuc.Service
	embeddings    *embeddinguc.Service
	matches       *matchuc.Service
	review        *reviewuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	detection *detectionuc.Service,
	embeddings *embeddinguc.Service,
	matches *matchuc.Service,
	review *reviewuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		detection:  detection,
		embeddings: embeddings,
		matches:    matches,
		review:     review,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrReportNotFound, http.StatusNotFound, codeReportNotFound),
		sentinelHandler(domain.ErrMatchNotFound, http.StatusNotFound, codeMatchNotFound),
		sentinelHandler(domain.ErrEmbeddingNotFound, http.StatusNotFound, codeReportNotFound),
		sentinelHandler(domain.ErrInvalidStatus, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrAlreadyReviewed, http.StatusConflict, codeAlreadyReviewed),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeProviderError),
	}
	return s
}

// Routes mounts all API routes on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.healthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/reports", s.ingestReport)
		r.Get("/reports/{id}/duplicates", s.findDuplicates)
		r.Get("/reports/{id}/matches", s.listMatches)
		r.Delete("/reports/{id}", s.withdrawReport)

		r.Post("/embeddings/regenerate", s.regenerateEmbeddings)

		r.Get("/matches/pending", s.pendingMatches)
		r.Get("/matches/counts", s.matchCounts)
		r.Get("/matches/{id}", s.getMatch)
		r.Post("/matches/{id}/review", s.reviewMatch)
	})
}

// ingestReport handles POST /v1/reports.
func (s *Server) ingestReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rep, err := req.toDomain(time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	result, err := s.detection.Ingest(r.Context(), rep)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, ingestResponse{
		ID:                 rep.ID,
		EmbeddingGenerated: result.EmbeddingGenerated,
		Candidates:         result.Candidates,
		MatchesRecorded:    result.Recorded,
	})
}

// findDuplicates handles GET /v1/reports/{id}/duplicates.
func (s *Server) findDuplicates(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	opts, err := scanOptionsFromQuery(r, s.detection.Options())
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	candidates, err := s.detection.Scan(r.Context(), id, opts)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]candidateResponse, len(candidates))
	for i, c := range candidates {
		items[i] = candidateToResponse(c)
	}
	writeJSON(w, http.StatusOK, candidateListResponse{Items: items, Total: len(items)})
}

// listMatches handles GET /v1/reports/{id}/matches.
func (s *Server) listMatches(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status := domain.MatchStatus(r.URL.Query().Get("status"))

	matches, err := s.matches.ListForEntity(r.Context(), id, status)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]matchResponse, len(matches))
	for i, m := range matches {
		items[i] = matchToResponse(m, id)
	}
	writeJSON(w, http.StatusOK, matchListResponse{Items: items, Total: len(items)})
}

// withdrawReport handles DELETE /v1/reports/{id}.
func (s *Server) withdrawReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := s.detection.Withdraw(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{ID: id, MatchesDeleted: deleted})
}

// getMatch handles GET /v1/matches/{id}.
func (s *Server) getMatch(w http.ResponseWriter, r *http.Request) {
	id, err := matchIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	m, err := s.matches.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchToResponse(m, ""))
}

// reviewMatch handles POST /v1/matches/{id}/review.
func (s *Server) reviewMatch(w http.ResponseWriter, r *http.Request) {
	id, err := matchIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ReviewerID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "reviewer_id is required")
		return
	}

	var m domain.Match
	switch domain.MatchStatus(req.Status) {
	case domain.MatchConfirmed:
		m, err = s.review.Confirm(r.Context(), id, req.ReviewerID)
	case domain.MatchRejected:
		m, err = s.review.Reject(r.Context(), id, req.ReviewerID)
	default:
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"status must be \"confirmed\" or \"rejected\"")
		return
	}
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, matchToResponse(m, ""))
}

// regenerateEmbeddings handles POST /v1/embeddings/regenerate.
func (s *Server) regenerateEmbeddings(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)

	result, err := s.embeddings.RegenerateMissing(r.Context(), limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, regenerateResponse{
		Scanned:   result.Scanned,
		Generated: result.Generated,
		Skipped:   result.Skipped,
		Failed:    result.Failed,
	})
}

// pendingMatches handles GET /v1/matches/pending.
func (s *Server) pendingMatches(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 50)

	matches, err := s.matches.Pending(r.Context(), offset, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]matchResponse, len(matches))
	for i, m := range matches {
		items[i] = matchToResponse(m, "")
	}
	writeJSON(w, http.StatusOK, matchListResponse{Items: items, Total: len(items)})
}

// matchCounts handles GET /v1/matches/counts.
func (s *Server) matchCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.matches.Counts(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, countsResponse{
		Pending:   counts.Pending,
		Confirmed: counts.Confirmed,
		Rejected:  counts.Rejected,
		Total:     counts.Total,
	})
}

// healthCheck handles GET /health.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

func matchIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("match id must be an integer")
	}
	return id, nil
}

// scanOptionsFromQuery builds scan options from query parameters, falling back
// to the standing tuning for anything absent.
func scanOptionsFromQuery(r *http.Request, base domain.DetectionOptions) (domain.DetectionOptions, error) {
	q := r.URL.Query()
	opts := base

	if raw := q.Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 || v > 1 {
			return opts, errors.New("threshold must be a number in (0, 1]")
		}
		opts.Threshold = v
	}
	if raw := q.Get("radius_meters"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return opts, errors.New("radius_meters must be a non-negative number")
		}
		opts.RadiusMeters = v
	}
	if raw := q.Get("window_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return opts, errors.New("window_days must be a positive integer")
		}
		opts.WindowDays = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return opts, errors.New("limit must be a positive integer")
		}
		opts.Limit = v
	}
	return opts, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrReportNotFound,
		domain.ErrMatchNotFound,
		domain.ErrEmbeddingNotFound,
		domain.ErrInvalidStatus,
		domain.ErrVectorDimMismatch,
		domain.ErrAlreadyReviewed,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
