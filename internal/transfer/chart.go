package transfer

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"

	"renovo/internal/analytics"
)

// CategoryChart renders spend per category as a PNG bar chart.
func CategoryChart(report analytics.Report) ([]byte, error) {
	if len(report.ExpensesByCategory) == 0 {
		return nil, fmt.Errorf("no category totals to chart")
	}

	bars := make([]chart.Value, 0, len(report.ExpensesByCategory))
	for _, c := range report.ExpensesByCategory {
		bars = append(bars, chart.Value{
			Label: truncate(c.CategoryName, 18),
			Value: c.Amount.Float64(),
			Style: chart.Style{
				StrokeColor: chart.ColorBlue,
				FillColor:   chart.ColorBlue.WithAlpha(160),
			},
		})
	}

	graph := chart.BarChart{
		Title:      "Spend by category (" + string(report.Currency) + ")",
		TitleStyle: chart.Style{FontSize: 12, FontColor: chart.ColorBlack},
		Width:      1000,
		Height:     500,
		BarWidth:   50,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	buf := bytes.NewBuffer(nil)
	if err := graph.Render(chart.PNG, buf); err != nil {
		return nil, fmt.Errorf("render category chart: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
