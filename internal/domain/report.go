package domain

import (
	"strings"
	"time"

	"github.com/markaspot/dedup/internal/domain/geo"
)

// Report statuses mirrored from the owning content store.
const (
	// ReportStatusOpen is the published, active state eligible for matching.
	ReportStatusOpen = "open"
)

// Report is a snapshot of a citizen report (service request) mirrored in from
// the content store. It exposes only the fields duplicate detection needs;
// the content store remains the owner of the full record.
type Report struct {
	ID         string
	Title      string
	Body       string
	Status     string
	Language   string // BCP-47 primary subtag, e.g. "en", "de"
	CategoryID string
	Location   *geo.Point // nil when the report carries no geolocation
	CreatedAt  time.Time
}

// EntityType is the entity type tag reports carry in embedding identities.
const EntityType = "report"

// Text returns the content that embeddings are computed over.
func (r Report) Text() string {
	if r.Title == "" {
		return r.Body
	}
	if r.Body == "" {
		return r.Title
	}
	return r.Title + "\n" + r.Body
}

// Active reports whether the report is in a state eligible for matching.
func (r Report) Active() bool {
	return strings.EqualFold(r.Status, ReportStatusOpen)
}

// HasLocation reports whether the report carries a geolocation.
func (r Report) HasLocation() bool {
	return r.Location != nil
}
