package view

import "github.com/mr1hm/go-quake-feed/internal/models"

// Bands in display order. Each band is [lower, next lower).
var Bands = []string{"<3", "3-4", "4-5", "5-6", "6+"}

// Bucket counts events per magnitude band. It always returns all five bands
// in order. A missing magnitude counts as 0 here, unlike in Apply.
func Bucket(events []models.EarthquakeEvent) []models.HistogramBin {
	counts := make([]int, len(Bands))
	for _, e := range events {
		counts[bandIndex(MagnitudeOrZero(e.Magnitude))]++
	}

	bins := make([]models.HistogramBin, len(Bands))
	for i, band := range Bands {
		bins[i] = models.HistogramBin{Band: band, Count: counts[i]}
	}
	return bins
}

func bandIndex(m float64) int {
	switch {
	case m < 3:
		return 0
	case m < 4:
		return 1
	case m < 5:
		return 2
	case m < 6:
		return 3
	default:
		return 4
	}
}
