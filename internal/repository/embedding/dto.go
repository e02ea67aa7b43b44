package embedding

import (
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/markaspot/dedup/internal/domain"
)

// Hash field names for a persisted embedding record.
const (
	fieldVector      = "vector"
	fieldModel       = "model"
	fieldDimensions  = "dimensions"
	fieldContentHash = "content_hash"
	fieldCreatedAt   = "created_at"
)

// buildHashFields converts a record into a flat map[string]string for HSET.
func buildHashFields(rec domain.EmbeddingRecord) map[string]string {
	return map[string]string{
		fieldVector:      vectorToBytes(rec.Vector),
		fieldModel:       rec.Model,
		fieldDimensions:  strconv.Itoa(rec.Dimensions),
		fieldContentHash: rec.ContentHash,
		fieldCreatedAt:   strconv.FormatInt(rec.CreatedAt.Unix(), 10),
	}
}

// parseHashFields converts a flat hash map back into a record.
func parseHashFields(
	entityType, entityID string, t domain.EmbeddingType, m map[string]string,
) domain.EmbeddingRecord {
	rec := domain.EmbeddingRecord{
		EntityType:    entityType,
		EntityID:      entityID,
		EmbeddingType: t,
		Vector:        bytesToVector(m[fieldVector]),
		Model:         m[fieldModel],
		ContentHash:   m[fieldContentHash],
	}
	if dims, err := strconv.Atoi(m[fieldDimensions]); err == nil {
		rec.Dimensions = dims
	}
	if ts, err := strconv.ParseInt(m[fieldCreatedAt], 10, 64); err == nil {
		rec.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return rec
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string back to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
