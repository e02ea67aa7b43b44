package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/markaspot/dedup/internal/domain"
	"github.com/markaspot/dedup/internal/domain/vector"
)

// --- Mocks ---

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type mockRepo struct {
	records map[string]domain.EmbeddingRecord // keyed by entity id
	stored  []domain.EmbeddingRecord
	err     error
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[string]domain.EmbeddingRecord)}
}

func (m *mockRepo) Store(_ context.Context, rec domain.EmbeddingRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records[rec.EntityID] = rec
	m.stored = append(m.stored, rec)
	return nil
}

func (m *mockRepo) Get(_ context.Context, _, entityID string, _ domain.EmbeddingType) (domain.EmbeddingRecord, error) {
	rec, ok := m.records[entityID]
	if !ok {
		return domain.EmbeddingRecord{}, domain.ErrEmbeddingNotFound
	}
	return rec, nil
}

func (m *mockRepo) IsCurrent(_ context.Context, _, entityID, contentHash string, _ domain.EmbeddingType) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	rec, ok := m.records[entityID]
	return ok && rec.ContentHash == contentHash, nil
}

func (m *mockRepo) Delete(_ context.Context, _, entityID string, _ domain.EmbeddingType) error {
	delete(m.records, entityID)
	return nil
}

type mockReports struct {
	reports map[string]domain.Report
	ids     []string
}

func (m *mockReports) ListRecentIDs(_ context.Context, offset, count int) ([]string, error) {
	if offset >= len(m.ids) {
		return nil, nil
	}
	end := offset + count
	if end > len(m.ids) {
		end = len(m.ids)
	}
	return m.ids[offset:end], nil
}

func (m *mockReports) Get(_ context.Context, id string) (domain.Report, error) {
	rep, ok := m.reports[id]
	if !ok {
		return domain.Report{}, domain.ErrReportNotFound
	}
	return rep, nil
}

type mockEmbedder struct {
	vec        []float32
	err        error
	calls      int
	batchCalls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 5}, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = m.vec
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: 5 * len(texts)}, nil
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(repo *mockRepo, reports *mockReports, emb *mockEmbedder) *Service {
	return New(repo, reports, emb, "test-model", fixedClock{t: testNow}, zap.NewNop())
}

func testReport(id, title string) domain.Report {
	return domain.Report{ID: id, Title: title, Status: domain.ReportStatusOpen, CreatedAt: testNow}
}

// --- Tests ---

func TestEnsure_GeneratesWhenMissing(t *testing.T) {
	repo := newMockRepo()
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newTestService(repo, &mockReports{}, emb)

	rep := testReport("100", "Pothole on Main St")
	rec, generated, err := svc.Ensure(context.Background(), rep)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !generated {
		t.Fatal("expected a new vector to be generated")
	}
	if emb.calls != 1 {
		t.Errorf("embedder calls = %d, expected 1", emb.calls)
	}
	if rec.EntityID != "100" || rec.EntityType != domain.EntityType {
		t.Errorf("wrong identity: %+v", rec)
	}
	if rec.ContentHash != vector.TextHash(rep.Text()) {
		t.Error("content hash must cover the report text")
	}
	if rec.Dimensions != 2 || rec.Model != "test-model" {
		t.Errorf("rec = %+v", rec)
	}
	if !rec.CreatedAt.Equal(testNow) {
		t.Errorf("created_at = %v, expected clock time", rec.CreatedAt)
	}
}

func TestEnsure_SkipsWhenCurrent(t *testing.T) {
	repo := newMockRepo()
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newTestService(repo, &mockReports{}, emb)

	rep := testReport("100", "Pothole on Main St")
	if _, _, err := svc.Ensure(context.Background(), rep); err != nil {
		t.Fatalf("first Ensure: %v", err)
	}

	rec, generated, err := svc.Ensure(context.Background(), rep)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if generated {
		t.Fatal("unchanged text must not regenerate")
	}
	if emb.calls != 1 {
		t.Errorf("embedder calls = %d, expected 1 (second call skipped)", emb.calls)
	}
	if rec.EntityID != "100" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestEnsure_RegeneratesOnTextChange(t *testing.T) {
	repo := newMockRepo()
	emb := &mockEmbedder{vec: []float32{0.1, 0.2}}
	svc := newTestService(repo, &mockReports{}, emb)

	if _, _, err := svc.Ensure(context.Background(), testReport("100", "Pothole")); err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	_, generated, err := svc.Ensure(context.Background(), testReport("100", "Pothole, now bigger"))
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !generated {
		t.Fatal("changed text must regenerate")
	}
	if emb.calls != 2 {
		t.Errorf("embedder calls = %d, expected 2", emb.calls)
	}
}

func TestEnsure_ProviderErrorPropagates(t *testing.T) {
	repo := newMockRepo()
	boom := errors.New("provider down")
	svc := newTestService(repo, &mockReports{}, &mockEmbedder{err: boom})

	_, _, err := svc.Ensure(context.Background(), testReport("100", "Pothole"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(repo.stored) != 0 {
		t.Error("nothing must be stored on provider failure")
	}
}

func TestRegenerateMissing(t *testing.T) {
	repo := newMockRepo()
	emb := &mockEmbedder{vec: []float32{0.5}}
	reports := &mockReports{
		ids: []string{"100", "101", "102"},
		reports: map[string]domain.Report{
			"100": testReport("100", "one"),
			"101": testReport("101", "two"),
			"102": testReport("102", "three"),
		},
	}
	svc := newTestService(repo, reports, emb)

	// 101 уже актуален
	if _, _, err := svc.Ensure(context.Background(), reports.reports["101"]); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	emb.calls = 0

	result, err := svc.RegenerateMissing(context.Background(), 10)
	if err != nil {
		t.Fatalf("RegenerateMissing: %v", err)
	}
	if result.Scanned != 3 {
		t.Errorf("scanned = %d, expected 3", result.Scanned)
	}
	if result.Generated != 2 {
		t.Errorf("generated = %d, expected 2", result.Generated)
	}
	if result.Skipped != 1 {
		t.Errorf("skipped = %d, expected 1", result.Skipped)
	}
	if len(result.Failed) != 0 {
		t.Errorf("failed = %v, expected none", result.Failed)
	}
	if emb.batchCalls != 1 {
		t.Errorf("batch calls = %d, expected a single batch", emb.batchCalls)
	}
	if emb.calls != 0 {
		t.Errorf("single-text calls = %d, expected 0", emb.calls)
	}
}

func TestRegenerateMissing_BatchErrorCollected(t *testing.T) {
	repo := newMockRepo()
	emb := &mockEmbedder{err: errors.New("provider down")}
	reports := &mockReports{
		ids:     []string{"100"},
		reports: map[string]domain.Report{"100": testReport("100", "one")},
	}
	svc := newTestService(repo, reports, emb)

	result, err := svc.RegenerateMissing(context.Background(), 10)
	if err != nil {
		t.Fatalf("batch failure must not be fatal: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0] != "100" {
		t.Errorf("failed = %v, expected [100]", result.Failed)
	}
	if result.Generated != 0 {
		t.Errorf("generated = %d, expected 0", result.Generated)
	}
}

func TestRegenerateMissing_MissingSnapshotSkipped(t *testing.T) {
	repo := newMockRepo()
	emb := &mockEmbedder{vec: []float32{0.5}}
	reports := &mockReports{
		ids:     []string{"100", "gone"},
		reports: map[string]domain.Report{"100": testReport("100", "one")},
	}
	svc := newTestService(repo, reports, emb)

	result, err := svc.RegenerateMissing(context.Background(), 10)
	if err != nil {
		t.Fatalf("RegenerateMissing: %v", err)
	}
	if result.Generated != 1 {
		t.Errorf("generated = %d, expected 1", result.Generated)
	}
	if len(result.Failed) != 0 {
		t.Errorf("stale index entry must not count as failure: %v", result.Failed)
	}
}

func TestDelete(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo, &mockReports{}, &mockEmbedder{vec: []float32{0.1}})

	if _, _, err := svc.Ensure(context.Background(), testReport("100", "one")); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if err := svc.Delete(context.Background(), "100"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), "100"); !errors.Is(err, domain.ErrEmbeddingNotFound) {
		t.Fatalf("expected ErrEmbeddingNotFound after delete, got %v", err)
	}
}
