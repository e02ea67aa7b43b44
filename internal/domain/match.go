package domain

import (
	"strconv"
	"time"
)

// MatchStatus is the review lifecycle state of a duplicate match.
type MatchStatus string

// Match lifecycle states.
const (
	MatchPending   MatchStatus = "pending"
	MatchConfirmed MatchStatus = "confirmed"
	MatchRejected  MatchStatus = "rejected"
)

// Valid reports whether s is a known lifecycle state.
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchPending, MatchConfirmed, MatchRejected:
		return true
	}
	return false
}

// ReviewDecision reports whether s is a status a reviewer may assign.
func (s MatchStatus) ReviewDecision() bool {
	return s == MatchConfirmed || s == MatchRejected
}

// Match is one persisted duplicate-pair record. SourceID/MatchID are stored in
// canonical order (smaller identity first) so an unordered pair maps to exactly
// one record regardless of discovery order.
type Match struct {
	ID             int64
	SourceID       string
	MatchID        string
	Score          float64
	DistanceMeters *float64 // nil when geolocation was unavailable on either side
	Status         MatchStatus
	ReviewerID     string    // empty until reviewed
	ReviewedAt     time.Time // zero until reviewed
	CreatedAt      time.Time
}

// Other returns the pair member that is not entityID.
func (m Match) Other(entityID string) string {
	if m.SourceID == entityID {
		return m.MatchID
	}
	return m.SourceID
}

// Involves reports whether entityID is either side of the pair.
func (m Match) Involves(entityID string) bool {
	return m.SourceID == entityID || m.MatchID == entityID
}

// CanonicalPair orders an unordered entity pair: numeric identities compare
// numerically, everything else lexically. Guarantees (A,B) and (B,A) canonicalize
// to the same (source, match) tuple.
func CanonicalPair(a, b string) (source, match string) {
	if pairLess(a, b) {
		return a, b
	}
	return b, a
}

func pairLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// RecordOutcome says what recording a detected pair did to the stored record.
type RecordOutcome string

// Record outcomes.
const (
	RecordCreated     RecordOutcome = "created"
	RecordReactivated RecordOutcome = "reactivated"
	RecordNoop        RecordOutcome = "noop"
)

// MatchCounts aggregates match records by lifecycle state.
type MatchCounts struct {
	Pending   int
	Confirmed int
	Rejected  int
	Total     int
}

// Candidate is one scored duplicate candidate returned by the matcher.
type Candidate struct {
	MatchID        string
	Score          float64
	DistanceMeters *float64
	CreatedAt      time.Time
}

// DetectionOptions tune one duplicate scan.
type DetectionOptions struct {
	Threshold    float64 // minimum cosine similarity, inclusive
	RadiusMeters float64 // 0 disables geo filtering
	WindowDays   int     // candidate creation time window
	Limit        int     // max results after ranking
	ExcludeIDs   []string
}

// Detection defaults, matching the shipped module configuration.
const (
	DefaultThreshold    = 0.85
	DefaultRadiusMeters = 500
	DefaultWindowDays   = 30
	DefaultLimit        = 10
)

// DefaultDetectionOptions returns the standard scan tuning.
func DefaultDetectionOptions() DetectionOptions {
	return DetectionOptions{
		Threshold:    DefaultThreshold,
		RadiusMeters: DefaultRadiusMeters,
		WindowDays:   DefaultWindowDays,
		Limit:        DefaultLimit,
	}
}

// ApplyDefaults fills unset option fields with the standard tuning.
// RadiusMeters is left alone: 0 is a meaningful value (geo filtering off).
func (o *DetectionOptions) ApplyDefaults() {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.WindowDays <= 0 {
		o.WindowDays = DefaultWindowDays
	}
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
}
