package view

import (
	"fmt"
	"math"
)

// Color is a hex color token for one step of the magnitude scale.
type Color string

const (
	ColorGreat    Color = "#7f1d1d"
	ColorMajor    Color = "#b91c1c"
	ColorStrong   Color = "#dc2626"
	ColorModerate Color = "#f59e0b"
	ColorLight    Color = "#10b981"
	ColorMinor    Color = "#3b82f6"
)

func (c Color) Class() string {
	switch c {
	case ColorGreat:
		return "great"
	case ColorMajor:
		return "major"
	case ColorStrong:
		return "strong"
	case ColorModerate:
		return "moderate"
	case ColorLight:
		return "light"
	default:
		return "minor"
	}
}

// RGB splits the token into its components. Unparseable tokens yield zeros.
func (c Color) RGB() (r, g, b int) {
	if _, err := fmt.Sscanf(string(c), "#%02x%02x%02x", &r, &g, &b); err != nil {
		return 0, 0, 0
	}
	return r, g, b
}

// ColorOf maps a magnitude to its color. Thresholds are checked from the top;
// nil and anything below 3 get the default.
func ColorOf(mag *float64) Color {
	if mag == nil {
		return ColorMinor
	}
	m := *mag
	switch {
	case m >= 7:
		return ColorGreat
	case m >= 6:
		return ColorMajor
	case m >= 5:
		return ColorStrong
	case m >= 4:
		return ColorModerate
	case m >= 3:
		return ColorLight
	default:
		return ColorMinor
	}
}

const (
	minRadius = 4
	maxRadius = 30
)

// RadiusOf returns the marker radius for a magnitude, always within [4, 30].
func RadiusOf(mag float64) float64 {
	if math.IsNaN(mag) {
		return minRadius
	}
	r := math.Pow(1.7, math.Max(0, mag)) + mag*1.25
	return math.Min(math.Max(r, minRadius), maxRadius)
}

func MagnitudeOrZero(mag *float64) float64 {
	if mag == nil {
		return 0
	}
	return *mag
}

// RelativeAge renders how long before now the timestamp was, e.g. "45s ago".
// Each coarser unit is rounded from the already rounded finer one, so 89.6s
// becomes 90s and then "2m ago".
func RelativeAge(tsMillis, nowMillis int64) string {
	sec := roundHalfUp(float64(nowMillis-tsMillis) / 1000)
	mins := roundHalfUp(sec / 60)
	hrs := roundHalfUp(mins / 60)
	days := roundHalfUp(hrs / 24)

	switch {
	case sec < 60:
		return fmt.Sprintf("%ds ago", int64(sec))
	case mins < 60:
		return fmt.Sprintf("%dm ago", int64(mins))
	case hrs < 24:
		return fmt.Sprintf("%dh ago", int64(hrs))
	default:
		return fmt.Sprintf("%dd ago", int64(days))
	}
}

func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
