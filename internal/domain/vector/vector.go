// Package vector holds the pure similarity and hashing math used by duplicate
// detection. No storage, no I/O.
package vector

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"

	"github.com/markaspot/dedup/internal/domain"
)

// CosineSimilarity returns the cosine of the angle between a and b, in [-1,1].
// Vectors of unequal length fail with domain.ErrVectorDimMismatch.
// Returns 0 when either vector has zero norm (degenerate all-zero vector).
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrVectorDimMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// TextHash returns the SHA-256 hex digest of the normalized text. Whitespace
// runs collapse to a single space, the result is trimmed and lower-cased, so
// trivially reformatted re-submissions hash identically and don't force an
// embedding regeneration.
func TextHash(text string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(text), " "))
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}
