package models

import "time"

type FeedDescriptor struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// EarthquakeEvent is the canonical form of one feed record. Every field
// except ID has a default, so consumers never branch on absence.
type EarthquakeEvent struct {
	ID         string   `json:"id"`
	Magnitude  *float64 `json:"magnitude"` // nil when the feed omits it
	Place      string   `json:"place"`
	TimeMillis int64    `json:"time"` // epoch milliseconds
	DepthKm    float64  `json:"depth_km"`
	Longitude  float64  `json:"longitude"`
	Latitude   float64  `json:"latitude"`
	DetailURL  string   `json:"url"`
}

func (e EarthquakeEvent) Time() time.Time {
	return time.UnixMilli(e.TimeMillis).UTC()
}

// Snapshot is one complete set of events from a single successful fetch.
// It is replaced wholesale and must not be mutated once published.
type Snapshot struct {
	SourceKey string            `json:"source"`
	Events    []EarthquakeEvent `json:"events"`
	FetchedAt time.Time         `json:"fetched_at"`
	RequestID string            `json:"request_id"`
}

type HistogramBin struct {
	Band  string `json:"band"`
	Count int    `json:"count"`
}

type DerivedView struct {
	Filtered  []EarthquakeEvent `json:"filtered"`
	Histogram []HistogramBin    `json:"histogram"`
	Total     int               `json:"total"`
	Shown     int               `json:"shown"`
}
