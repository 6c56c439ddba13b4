package models

import (
	"fmt"
	"math"
	"strings"
)

type SortKey string

const (
	SortTimeDesc SortKey = "time_desc"
	SortTimeAsc  SortKey = "time_asc"
	SortMagDesc  SortKey = "mag_desc"
	SortMagAsc   SortKey = "mag_asc"
)

// ParseSortKey accepts the four sort keys case-insensitively. An empty
// string yields the default, time_desc.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortTimeDesc:
		return SortTimeDesc, nil
	case SortTimeAsc:
		return SortTimeAsc, nil
	case SortMagDesc:
		return SortMagDesc, nil
	case SortMagAsc:
		return SortMagAsc, nil
	default:
		return "", fmt.Errorf("unknown sort key: %q", s)
	}
}

type FilterState struct {
	MinMagnitude float64 `json:"min_magnitude"`
	SearchText   string  `json:"search"`
	SortKey      SortKey `json:"sort"`
}

func DefaultFilter() FilterState {
	return FilterState{SortKey: SortTimeDesc}
}

func (f FilterState) Validate() error {
	if math.IsNaN(f.MinMagnitude) || f.MinMagnitude < 0 {
		return fmt.Errorf("min magnitude must be >= 0, got %v", f.MinMagnitude)
	}
	if _, err := ParseSortKey(string(f.SortKey)); err != nil {
		return err
	}
	return nil
}
