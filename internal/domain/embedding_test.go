package domain

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type stubEmbedder struct {
	texts []string
	err   error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.texts = append(s.texts, text)
	if s.err != nil {
		return EmbeddingResult{}, s.err
	}
	return EmbeddingResult{Embedding: []float32{0.1}, PromptTokens: 2, TotalTokens: 2}, nil
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchTexts []string
	batchCalls int
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchCalls++
	s.batchTexts = texts
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = []float32{0.5}
	}
	return BatchEmbeddingResult{Embeddings: embeddings, PromptTokens: len(texts), TotalTokens: len(texts)}, nil
}

// --- Tests ---

func TestInstructionEmbedder_PrependsPrefix(t *testing.T) {
	inner := &stubEmbedder{}
	e := NewInstructionEmbedder(inner, "passage: ")

	if _, err := e.Embed(context.Background(), "pothole on main st"); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(inner.texts) != 1 || inner.texts[0] != "passage: pothole on main st" {
		t.Errorf("inner received %v", inner.texts)
	}
}

func TestInstructionEmbedder_BatchUsesInnerBatch(t *testing.T) {
	inner := &stubBatchEmbedder{}
	e := NewInstructionEmbedder(inner, "passage: ")

	res, err := e.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("batch embed: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("batch calls: got %d, want 1", inner.batchCalls)
	}
	if len(inner.batchTexts) != 2 || inner.batchTexts[1] != "passage: b" {
		t.Errorf("inner batch received %v", inner.batchTexts)
	}
	if len(res.Embeddings) != 2 {
		t.Errorf("embeddings: got %d, want 2", len(res.Embeddings))
	}
}

func TestInstructionEmbedder_BatchFallback(t *testing.T) {
	inner := &stubEmbedder{}
	e := NewInstructionEmbedder(inner, "p: ")

	res, err := e.BatchEmbed(context.Background(), []string{"x", "y", "z"})
	if err != nil {
		t.Fatalf("batch embed: %v", err)
	}
	if len(inner.texts) != 3 {
		t.Errorf("fallback calls: got %d, want 3", len(inner.texts))
	}
	if res.TotalTokens != 6 {
		t.Errorf("tokens: got %d, want 6", res.TotalTokens)
	}
}

func TestBatchFallback_StopsOnError(t *testing.T) {
	inner := &stubEmbedder{err: errors.New("api down")}

	_, err := BatchFallback(context.Background(), inner, []string{"a", "b"})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(inner.texts) != 1 {
		t.Errorf("calls after failure: got %d, want 1", len(inner.texts))
	}
}
