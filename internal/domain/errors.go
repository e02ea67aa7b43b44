package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrReportNotFound signals a missing report snapshot.
	ErrReportNotFound = errors.New("report not found")
	// ErrMatchNotFound signals a missing duplicate match record.
	ErrMatchNotFound = errors.New("match not found")
	// ErrEmbeddingNotFound signals a missing embedding record. A normal
	// "not yet processed" condition for the matcher, a 404 for the API.
	ErrEmbeddingNotFound = errors.New("embedding not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidStatus signals a review decision outside {confirmed, rejected}.
	ErrInvalidStatus = errors.New("invalid match status")
	// ErrAlreadyReviewed signals a review attempt on a non-pending match.
	// Confirmed is terminal; rejected reopens only via re-detection.
	ErrAlreadyReviewed = errors.New("match already reviewed")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
