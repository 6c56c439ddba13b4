// Package view derives what the presentation layer shows from a snapshot and
// a filter: the filtered/sorted event list, the magnitude histogram and the
// per-event visual parameters. Everything here is pure and synchronous.
package view

import (
	"cmp"
	"slices"
	"strings"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

// Apply returns the events that pass f, ordered by f.SortKey. The sort is
// stable, so ties keep feed order. events is not modified.
func Apply(events []models.EarthquakeEvent, f models.FilterState) []models.EarthquakeEvent {
	query := ""
	if strings.TrimSpace(f.SearchText) != "" {
		query = strings.ToLower(f.SearchText)
	}

	out := make([]models.EarthquakeEvent, 0, len(events))
	for _, e := range events {
		// A zero minimum disables the magnitude predicate, so events
		// without a magnitude stay visible at the default setting.
		if f.MinMagnitude > 0 && (e.Magnitude == nil || *e.Magnitude < f.MinMagnitude) {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(e.Place), query) {
			continue
		}
		out = append(out, e)
	}

	slices.SortStableFunc(out, comparator(f.SortKey))
	return out
}

func comparator(key models.SortKey) func(a, b models.EarthquakeEvent) int {
	switch key {
	case models.SortTimeAsc:
		return func(a, b models.EarthquakeEvent) int {
			return cmp.Compare(a.TimeMillis, b.TimeMillis)
		}
	case models.SortMagDesc:
		return func(a, b models.EarthquakeEvent) int {
			return compareMagnitude(b.Magnitude, a.Magnitude, false)
		}
	case models.SortMagAsc:
		return func(a, b models.EarthquakeEvent) int {
			return compareMagnitude(a.Magnitude, b.Magnitude, true)
		}
	default:
		return func(a, b models.EarthquakeEvent) int {
			return cmp.Compare(b.TimeMillis, a.TimeMillis)
		}
	}
}

// compareMagnitude orders known magnitudes ascending. A nil magnitude is
// +Inf when nilHigh is set and -Inf otherwise.
func compareMagnitude(a, b *float64, nilHigh bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		if nilHigh {
			return 1
		}
		return -1
	case b == nil:
		if nilHigh {
			return -1
		}
		return 1
	}
	return cmp.Compare(*a, *b)
}
