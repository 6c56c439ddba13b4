package ingestion

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

const defaultDetailURL = "#"

// Normalize converts one raw feature into an event. It fails only when the
// feature carries no usable id; every other field falls back to a default.
func Normalize(f RawFeature) (models.EarthquakeEvent, error) {
	id, ok := extractID(f.ID)
	if !ok {
		return models.EarthquakeEvent{}, ErrMalformedRecord
	}

	e := models.EarthquakeEvent{
		ID:        id,
		DetailURL: defaultDetailURL,
	}

	if p := f.Properties; p != nil {
		if p.Mag != nil {
			m := *p.Mag
			e.Magnitude = &m
		}
		if p.Place != nil {
			e.Place = *p.Place
		}
		if p.Time != nil {
			e.TimeMillis = int64(*p.Time)
		}
		if p.URL != nil && *p.URL != "" {
			e.DetailURL = *p.URL
		}
	}

	if g := f.Geometry; g != nil {
		c := g.Coordinates
		if len(c) >= 2 {
			e.Longitude, e.Latitude = c[0], c[1]
		}
		if len(c) >= 3 {
			e.DepthKm = c[2]
		}
	}

	return e, nil
}

// NormalizeAll normalizes features in order, dropping the ones without an id.
func NormalizeAll(features []RawFeature) ([]models.EarthquakeEvent, int) {
	events := make([]models.EarthquakeEvent, 0, len(features))
	dropped := 0
	for _, f := range features {
		e, err := Normalize(f)
		if err != nil {
			dropped++
			continue
		}
		events = append(events, e)
	}
	return events, dropped
}

// extractID accepts a JSON string or number. null, empty and anything else
// yield no id.
func extractID(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, strings.TrimSpace(s) != ""
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}
