package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Fetcher retrieves the raw records of one feed.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]RawFeature, error)
}

type usgsResponse struct {
	Features []RawFeature `json:"features"`
}

// RawFeature is one GeoJSON feature as the feed sends it. Every field may be
// missing; pointers distinguish absent from zero.
type RawFeature struct {
	ID         json.RawMessage `json:"id"`
	Properties *RawProperties  `json:"properties"`
	Geometry   *RawGeometry    `json:"geometry"`
}

type RawProperties struct {
	Mag   *float64 `json:"mag"`
	Place *string  `json:"place"`
	Time  *float64 `json:"time"` // epoch ms
	URL   *string  `json:"url"`
}

type RawGeometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

// UnmarshalJSON never fails, so one odd record cannot sink the whole
// payload. A field of the wrong type is treated as missing, and a record
// that is not an object is left without an id.
func (f *RawFeature) UnmarshalJSON(data []byte) error {
	*f = RawFeature{}

	var fields struct {
		ID         json.RawMessage `json:"id"`
		Properties json.RawMessage `json:"properties"`
		Geometry   json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	f.ID = fields.ID

	var props map[string]json.RawMessage
	if json.Unmarshal(fields.Properties, &props) == nil && props != nil {
		f.Properties = &RawProperties{
			Mag:   optional[float64](props["mag"]),
			Place: optional[string](props["place"]),
			Time:  optional[float64](props["time"]),
			URL:   optional[string](props["url"]),
		}
	}

	var geom map[string]json.RawMessage
	if json.Unmarshal(fields.Geometry, &geom) == nil && geom != nil {
		f.Geometry = &RawGeometry{Coordinates: coordinates(geom["coordinates"])}
	}

	return nil
}

// optional decodes raw as a T, returning nil when it is absent, null or of
// another type.
func optional[T any](raw json.RawMessage) *T {
	if len(raw) == 0 {
		return nil
	}
	var v *T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// coordinates keeps the position of every element; non-numeric ones become 0.
func coordinates(raw json.RawMessage) []float64 {
	var elems []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &elems) != nil {
		return nil
	}
	out := make([]float64, len(elems))
	for i, e := range elems {
		if v := optional[float64](e); v != nil {
			out[i] = *v
		}
	}
	return out
}

// USGSClient fetches GeoJSON summary feeds over HTTP.
type USGSClient struct {
	client *http.Client
}

func NewUSGSClient(timeout time.Duration) *USGSClient {
	return &USGSClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *USGSClient) Fetch(ctx context.Context, url string) ([]RawFeature, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("error creating request: %w", err)}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classify(ctx, url, fmt.Errorf("error while doing request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	var data usgsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, classify(ctx, url, fmt.Errorf("error decoding resp.Body: %w", err))
	}

	return data.Features, nil
}

// classify separates supersession from genuine failures. Only the caller's
// cancellation counts; client timeouts are network errors.
func classify(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return &NetworkError{URL: url, Err: err}
}
