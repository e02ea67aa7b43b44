package report

import (
	"strconv"
	"time"

	"github.com/markaspot/dedup/internal/domain"
	"github.com/markaspot/dedup/internal/domain/geo"
)

// Hash field names for a persisted report snapshot.
const (
	fieldTitle     = "title"
	fieldBody      = "body"
	fieldStatus    = "status"
	fieldLanguage  = "language"
	fieldCategory  = "category"
	fieldLat       = "lat"
	fieldLon       = "lon"
	fieldCreatedAt = "created_at"
)

func buildHashFields(rep domain.Report) map[string]string {
	m := map[string]string{
		fieldTitle:     rep.Title,
		fieldBody:      rep.Body,
		fieldStatus:    rep.Status,
		fieldLanguage:  rep.Language,
		fieldCategory:  rep.CategoryID,
		fieldCreatedAt: strconv.FormatInt(rep.CreatedAt.Unix(), 10),
	}
	if rep.Location != nil {
		m[fieldLat] = strconv.FormatFloat(rep.Location.Lat, 'f', -1, 64)
		m[fieldLon] = strconv.FormatFloat(rep.Location.Lon, 'f', -1, 64)
	}
	return m
}

func parseHashFields(id string, m map[string]string) domain.Report {
	rep := domain.Report{
		ID:         id,
		Title:      m[fieldTitle],
		Body:       m[fieldBody],
		Status:     m[fieldStatus],
		Language:   m[fieldLanguage],
		CategoryID: m[fieldCategory],
	}
	if ts, err := strconv.ParseInt(m[fieldCreatedAt], 10, 64); err == nil {
		rep.CreatedAt = time.Unix(ts, 0).UTC()
	}

	latStr, okLat := m[fieldLat]
	lonStr, okLon := m[fieldLon]
	if okLat && okLon {
		lat, errLat := strconv.ParseFloat(latStr, 64)
		lon, errLon := strconv.ParseFloat(lonStr, 64)
		if errLat == nil && errLon == nil {
			rep.Location = &geo.Point{Lat: lat, Lon: lon}
		}
	}
	return rep
}
