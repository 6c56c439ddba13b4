package api

import (
	"time"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Metadata Metadata  `json:"metadata"`
	Features []Feature `json:"features"`
}

type Metadata struct {
	Source    string     `json:"source,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	Total     int        `json:"total"`
	Shown     int        `json:"shown"`
	Returned  int        `json:"returned"`
}

type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(events []models.EarthquakeEvent, nowMillis int64) FeatureCollection {
	features := make([]Feature, 0, len(events))

	for _, e := range events {
		ev := decorate(e, nowMillis)
		f := Feature{
			Type: "Feature",
			ID:   e.ID,
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{e.Longitude, e.Latitude, e.DepthKm},
			},
			Properties: map[string]any{
				"mag":         e.Magnitude,
				"place":       e.Place,
				"time":        e.TimeMillis,
				"url":         e.DetailURL,
				"color":       ev.Color,
				"color_class": ev.ColorClass,
				"radius":      ev.Radius,
				"age":         ev.Age,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Metadata: Metadata{Returned: len(features)},
		Features: features,
	}
}
