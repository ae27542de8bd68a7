// Package charts builds the data payloads the dashboard draws charts from.
// Only data decisions live here: ranking cut-offs, label truncation, units
// and colour assignment.
package charts

import (
	"sales-dashboard/internal/models"
)

const (
	maxLabelLen = 25
	million     = 1_000_000
)

// RankPalette colours ranked bars, one colour per rank.
var RankPalette = []string{
	"#4C9AFF", "#36CFC9", "#9254DE", "#F759AB", "#FFA940",
	"#40A9FF", "#73D13D", "#B37FEB", "#FF85C0", "#FFD666",
}

// CategoryPalette colours category slices.
var CategoryPalette = []string{"#4C9AFF", "#36CFC9", "#9254DE", "#F759AB", "#FFA940", "#73D13D"}

// SegmentPalette colours segments in id order.
var SegmentPalette = []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7"}

// Colors assigns palette colours to n series entries, cycling when n
// exceeds the palette.
func Colors(palette []string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = palette[i%len(palette)]
	}
	return out
}

// TruncateLabel shortens long product names for axis labels.
func TruncateLabel(s string) string {
	r := []rune(s)
	if len(r) > maxLabelLen {
		return string(r[:maxLabelLen]) + "..."
	}
	return s
}

// Millions converts an amount to millions of currency units.
func Millions(v float64) float64 {
	return v / million
}

// Bar builds a horizontal ranked bar chart.
func Bar(title, valueLabel, valueFmt string, labels []string, values []float64, palette []string) models.ChartPayload {
	return models.ChartPayload{
		Kind:       models.ChartBar,
		Title:      title,
		ValueLabel: valueLabel,
		ValueFmt:   valueFmt,
		Labels:     labels,
		Values:     values,
		Colors:     Colors(palette, len(labels)),
	}
}

// Pie builds a share chart.
func Pie(title string, labels []string, values []float64, palette []string) models.ChartPayload {
	return models.ChartPayload{
		Kind:     models.ChartPie,
		Title:    title,
		ValueFmt: "%.1f%%",
		Labels:   labels,
		Values:   values,
		Colors:   Colors(palette, len(labels)),
	}
}

// Message stands in for a chart whose data is unavailable.
func Message(msg string) models.ChartPayload {
	return models.ChartPayload{
		Kind:    models.ChartMessage,
		Title:   "Visualization",
		Message: msg,
	}
}
