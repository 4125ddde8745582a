// Package graph renders category totals as chart images.
package graph

import (
	"io"

	"expense-manager/internal/models"

	chart "github.com/wcharczuk/go-chart/v2"
)

// RenderCategoryBars writes a PNG bar chart of per-category totals. An empty
// total set renders a single placeholder bar rather than failing.
func RenderCategoryBars(w io.Writer, title string, totals []models.CategoryTotal) error {
	bars := make([]chart.Value, 0, len(totals))
	var max float64
	for _, t := range totals {
		bars = append(bars, chart.Value{Label: t.Category, Value: t.Total})
		if t.Total > max {
			max = t.Total
		}
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Label: "No expenses", Value: 0})
	}

	bc := chart.BarChart{
		Title:    title,
		Width:    640,
		Height:   420,
		BarWidth: 48,
		Background: chart.Style{
			Padding: chart.Box{Top: 48},
		},
		Bars: bars,
	}
	if max <= 0 {
		// go-chart cannot derive a range from all-zero values
		bc.YAxis = chart.YAxis{Range: &chart.ContinuousRange{Min: 0, Max: 1}}
	}

	return bc.Render(chart.PNG, w)
}
