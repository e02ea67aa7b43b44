package chi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/markaspot/dedup/internal/domain"
	embeddinguc "github.com/markaspot/dedup/internal/usecase/embedding"
)

// --- Mocks ---

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type mockEmbeddingRepo struct {
	stored  []domain.EmbeddingRecord
	current map[string]bool
}

func (m *mockEmbeddingRepo) Store(_ context.Context, rec domain.EmbeddingRecord) error {
	m.stored = append(m.stored, rec)
	return nil
}

func (m *mockEmbeddingRepo) Get(
	_ context.Context, _, _ string, _ domain.EmbeddingType,
) (domain.EmbeddingRecord, error) {
	return domain.EmbeddingRecord{}, domain.ErrEmbeddingNotFound
}

func (m *mockEmbeddingRepo) IsCurrent(
	_ context.Context, _, entityID, _ string, _ domain.EmbeddingType,
) (bool, error) {
	return m.current[entityID], nil
}

func (m *mockEmbeddingRepo) Delete(_ context.Context, _, _ string, _ domain.EmbeddingType) error {
	return nil
}

type mockReportSource struct {
	reports map[string]domain.Report
	ids     []string
}

func (m *mockReportSource) ListRecentIDs(_ context.Context, _, _ int) ([]string, error) {
	return m.ids, nil
}

func (m *mockReportSource) Get(_ context.Context, id string) (domain.Report, error) {
	rep, ok := m.reports[id]
	if !ok {
		return domain.Report{}, domain.ErrReportNotFound
	}
	return rep, nil
}

type mockTextEmbedder struct{}

func (mockTextEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}, nil
}

// --- Tests ---

func TestRegenerateEmbeddings(t *testing.T) {
	reports := &mockReportSource{
		ids: []string{"100", "200"},
		reports: map[string]domain.Report{
			"100": {ID: "100", Title: "pothole", Status: domain.ReportStatusOpen},
			"200": {ID: "200", Title: "streetlight", Status: domain.ReportStatusOpen},
		},
	}
	repo := &mockEmbeddingRepo{current: map[string]bool{"200": true}}
	embSvc := embeddinguc.New(
		repo, reports, mockTextEmbedder{}, "test-model",
		fixedClock{t: testNow}, zap.NewNop(),
	)

	server := NewServer(nil, embSvc, nil, nil, nil, zap.NewNop())
	r := chi.NewRouter()
	server.Routes(r)

	req := httptest.NewRequest("POST", "/v1/embeddings/regenerate?limit=10", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp regenerateResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Scanned != 2 {
		t.Errorf("scanned: got %d, want 2", resp.Scanned)
	}
	if resp.Generated != 1 {
		t.Errorf("generated: got %d, want 1", resp.Generated)
	}
	if resp.Skipped != 1 {
		t.Errorf("skipped: got %d, want 1", resp.Skipped)
	}
	if len(resp.Failed) != 0 {
		t.Errorf("failed: got %v, want none", resp.Failed)
	}
	if len(repo.stored) != 1 || repo.stored[0].EntityID != "100" {
		t.Errorf("stored records: %+v", repo.stored)
	}
}
