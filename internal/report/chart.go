package report

import (
	"os"
	"path/filepath"

	"multistrat/types"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// SaveEquityChart renders the equity curve to a standalone HTML file.
func SaveEquityChart(path string, equity []types.EquityPoint) error {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Equity Curve",
			Width:     "1200px",
			Height:    "600px",
		}),
		charts.WithTitleOpts(opts.Title{Title: "Portfolio Equity"}),
	)

	dates := make([]string, 0, len(equity))
	values := make([]opts.LineData, 0, len(equity))
	for _, p := range equity {
		dates = append(dates, p.Timestamp.Format("2006-01-02"))
		values = append(values, opts.LineData{Value: p.Equity.InexactFloat64()})
	}
	line.SetXAxis(dates).AddSeries("equity", values)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return line.Render(f)
}
