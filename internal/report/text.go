// Package report renders backtest results: a console summary, a JSON dump
// and an equity-curve chart.
package report

import (
	"fmt"
	"io"

	"multistrat/internal/metrics"
)

// PrintSummary writes a human-readable report to w.
func PrintSummary(w io.Writer, s metrics.Summary) {
	fmt.Fprintln(w, "===== Backtest Report =====")
	if s.NoData {
		fmt.Fprintln(w, "No data: the run produced no equity points.")
		fmt.Fprintln(w, "===========================")
		return
	}

	fmt.Fprintf(w, "Start Date:            %s\n", s.StartDate.Format("2006-01-02"))
	fmt.Fprintf(w, "End Date:              %s\n", s.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Trades:          %d\n", s.TotalTrades)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Initial Cash:          %s\n", s.InitialCash)
	fmt.Fprintf(w, "Final Equity:          %s\n", s.FinalEquity)
	fmt.Fprintf(w, "Total Return:          %s (%.2f%%)\n", s.TotalReturn, s.TotalReturnPct)
	fmt.Fprintf(w, "CAGR:                  %.2f%%\n", s.CAGR*100)

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %.3f\n", s.Sharpe)
	if s.Sortino.Undefined {
		fmt.Fprintf(w, "Sortino Ratio:         undefined (no downside observed)\n")
	} else {
		fmt.Fprintf(w, "Sortino Ratio:         %.3f\n", s.Sortino.Value)
	}
	fmt.Fprintf(w, "Max Drawdown:          %.2f%%\n", s.MaxDrawdownPct)
	fmt.Fprintf(w, "Kelly:                 %.3f\n", s.Kelly)
	fmt.Fprintf(w, "Expectancy:            %.2f%%\n", s.Expectancy)

	fmt.Fprintln(w, "\n-- Trade-Level Metrics --")
	fmt.Fprintf(w, "Wins / Losses:         %d / %d\n", s.Wins, s.Losses)
	fmt.Fprintf(w, "Win Rate:              %.1f%%\n", s.WinRate*100)
	fmt.Fprintf(w, "Avg Win:               %.2f%%\n", s.AvgWinPct)
	fmt.Fprintf(w, "Avg Loss:              %.2f%%\n", s.AvgLossPct)

	if len(s.StrategyWeights) > 0 {
		fmt.Fprintln(w, "\n-- Final Strategy Weights --")
		for _, name := range sortedWeightKeys(s.StrategyWeights) {
			fmt.Fprintf(w, "%-22s %.1f%%\n", name+":", s.StrategyWeights[name]*100)
		}
	}

	fmt.Fprintln(w, "===========================")
}
