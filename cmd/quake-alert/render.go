package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/mr1hm/go-quake-feed/internal/models"
	"github.com/mr1hm/go-quake-feed/internal/view"
)

const histogramBarWidth = 40

type table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

func newTable(w io.Writer, headers []string) *table {
	t := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)
	return &table{table: t, header: headers}
}

func (t *table) AddRow(row []string) {
	t.rows = append(t.rows, row)
}

func (t *table) Render() {
	t.table.Header(t.header)
	t.table.Bulk(t.rows)
	t.table.Render()
}

func renderView(w io.Writer, feed models.FeedDescriptor, dv models.DerivedView, limit int, nowMillis int64) {
	color.New(color.Bold).Fprintf(w, "%s\n", feed.Label)
	fmt.Fprintf(w, "Shown: %d / Total: %d\n\n", dv.Shown, dv.Total)

	events := dv.Filtered
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}

	if len(events) == 0 {
		fmt.Fprintln(w, "No earthquakes match the current filters.")
	} else {
		t := newTable(w, []string{"MAG", "PLACE", "AGE", "DEPTH", "ID"})
		for _, e := range events {
			t.AddRow([]string{
				colorize(view.ColorOf(e.Magnitude), formatMagnitude(e.Magnitude)),
				placeLabel(e.Place),
				view.RelativeAge(e.TimeMillis, nowMillis),
				strconv.FormatFloat(e.DepthKm, 'f', 1, 64) + " km",
				e.ID,
			})
		}
		t.Render()
	}

	fmt.Fprintln(w)
	renderHistogram(w, dv.Histogram)
}

func renderHistogram(w io.Writer, bins []models.HistogramBin) {
	peak := 0
	for _, b := range bins {
		peak = max(peak, b.Count)
	}

	t := newTable(w, []string{"BAND", "COUNT", ""})
	for _, b := range bins {
		bar := 0
		if peak > 0 {
			bar = b.Count * histogramBarWidth / peak
		}
		t.AddRow([]string{b.Band, strconv.Itoa(b.Count), strings.Repeat("#", bar)})
	}
	t.Render()
}

func colorize(c view.Color, s string) string {
	r, g, b := c.RGB()
	return color.RGB(r, g, b).Sprint(s)
}

func formatMagnitude(mag *float64) string {
	if mag == nil {
		return "M ?"
	}
	return fmt.Sprintf("M %.1f", *mag)
}

func placeLabel(place string) string {
	if strings.TrimSpace(place) == "" {
		return "Unknown"
	}
	return place
}
