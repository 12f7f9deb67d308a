// Package metrics computes post-run summary statistics from the immutable
// trade log and equity series. Everything here is pure: no state, no side
// effects, and never an error on empty input.
package metrics

import (
	"math"
	"time"

	"multistrat/types"

	"github.com/shopspring/decimal"
)

const tradingDaysPerYear = 252

// Sortino carries the downside-deviation ratio. When a run has no negative
// daily returns the ratio is undefined rather than infinite; Undefined keeps
// serialization and comparisons well-defined.
type Sortino struct {
	Value     float64
	Undefined bool
}

func (s Sortino) MarshalJSON() ([]byte, error) {
	if s.Undefined {
		return []byte("null"), nil
	}
	return decimal.NewFromFloat(s.Value).MarshalJSON()
}

func (s *Sortino) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Sortino{Undefined: true}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	*s = Sortino{Value: d.InexactFloat64()}
	return nil
}

// Summary is the flat, serializable result of one backtest run.
type Summary struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`

	InitialCash    decimal.Decimal `json:"initialCash"`
	FinalEquity    decimal.Decimal `json:"finalEquity"`
	TotalReturn    decimal.Decimal `json:"totalReturn"`
	TotalReturnPct float64         `json:"totalReturnPct"`
	CAGR           float64         `json:"cagr"`

	Sharpe         float64 `json:"sharpe"`
	Sortino        Sortino `json:"sortino"`
	MaxDrawdownPct float64 `json:"maxDrawdownPct"`
	Kelly          float64 `json:"kelly"`
	Expectancy     float64 `json:"expectancy"`

	TotalTrades int     `json:"totalTrades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"`
	LossRate    float64 `json:"lossRate"`
	AvgWinPct   float64 `json:"avgWinPct"`
	AvgLossPct  float64 `json:"avgLossPct"`

	StrategyWeights map[string]float64 `json:"strategyWeights,omitempty"`

	// NoData marks a run that produced no equity points at all.
	NoData bool `json:"noData,omitempty"`
}

// Compute derives every summary statistic from the equity series and trade
// log. Empty input yields an explicit no-data summary, never a panic.
func Compute(initialCash decimal.Decimal, equity []types.EquityPoint, trades []types.Trade, weights map[string]float64) Summary {
	s := Summary{
		InitialCash:     initialCash,
		Sortino:         Sortino{Undefined: true},
		StrategyWeights: weights,
		TotalTrades:     len(trades),
	}

	if len(equity) == 0 {
		s.NoData = true
		s.FinalEquity = initialCash
		return s
	}

	s.StartDate = equity[0].Timestamp
	s.EndDate = equity[len(equity)-1].Timestamp
	s.FinalEquity = equity[len(equity)-1].Equity
	s.TotalReturn = s.FinalEquity.Sub(initialCash)
	if initialCash.IsPositive() {
		s.TotalReturnPct = s.TotalReturn.Div(initialCash).InexactFloat64() * 100
	}
	s.CAGR = cagr(initialCash, s.FinalEquity, s.StartDate, s.EndDate)

	daily := dailyReturns(equity)
	s.Sharpe = sharpe(daily)
	s.Sortino = sortino(daily)
	s.MaxDrawdownPct = maxDrawdown(equity)

	s.applyTradeStats(trades)
	return s
}

func (s *Summary) applyTradeStats(trades []types.Trade) {
	var sumWinPct, sumLossPct float64
	for _, t := range trades {
		if t.PnL == nil || !t.Action.IsClosing() {
			continue
		}
		switch {
		case t.PnL.IsPositive():
			s.Wins++
			if t.PnLPercent != nil {
				sumWinPct += t.PnLPercent.InexactFloat64()
			}
		case t.PnL.IsNegative():
			s.Losses++
			if t.PnLPercent != nil {
				sumLossPct += t.PnLPercent.InexactFloat64()
			}
		}
	}

	closed := s.Wins + s.Losses
	if closed == 0 {
		return
	}
	s.WinRate = float64(s.Wins) / float64(closed)
	s.LossRate = float64(s.Losses) / float64(closed)
	if s.Wins > 0 {
		s.AvgWinPct = sumWinPct / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPct = sumLossPct / float64(s.Losses)
	}

	s.Kelly = kelly(s.WinRate, s.LossRate, s.AvgWinPct, s.AvgLossPct)
	s.Expectancy = expectancy(s.WinRate, s.LossRate, s.AvgWinPct, s.AvgLossPct)
}

func cagr(initial, final decimal.Decimal, start, end time.Time) float64 {
	days := end.Sub(start).Hours() / 24
	if days <= 0 || !initial.IsPositive() || !final.IsPositive() {
		return 0
	}
	ratio := final.Div(initial).InexactFloat64()
	return math.Pow(ratio, 365.25/days) - 1
}

func dailyReturns(equity []types.EquityPoint) []float64 {
	var returns []float64
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if !prev.IsPositive() {
			continue
		}
		r := equity[i].Equity.Sub(prev).Div(prev).InexactFloat64()
		returns = append(returns, r)
	}
	return returns
}

func sharpe(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	mean, std := meanStd(daily)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// sortino uses the standard deviation of negative daily returns only.
func sortino(daily []float64) Sortino {
	var downside []float64
	for _, r := range daily {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return Sortino{Undefined: true}
	}
	mean, _ := meanStd(daily)
	_, downStd := meanStd(downside)
	if downStd == 0 {
		return Sortino{}
	}
	return Sortino{Value: mean / downStd * math.Sqrt(tradingDaysPerYear)}
}

func maxDrawdown(equity []types.EquityPoint) float64 {
	maxDD := 0.0
	peak := 0.0
	for _, p := range equity {
		v := p.Equity.InexactFloat64()
		if v > peak {
			peak = v
		}
		if peak > 0 {
			dd := (peak - v) / peak
			if dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// kelly sizes the edge from win/loss statistics; without both an average win
// and an average loss the formula degenerates, so it is guarded to zero.
func kelly(winRate, lossRate, avgWinPct, avgLossPct float64) float64 {
	if avgWinPct == 0 || avgLossPct == 0 {
		return 0
	}
	return winRate/math.Abs(avgLossPct) - lossRate/avgWinPct
}

// expectancy compounds the average win and loss at their observed rates.
func expectancy(winRate, lossRate, avgWinPct, avgLossPct float64) float64 {
	win := math.Pow(1+avgWinPct/100, winRate)
	loss := math.Pow(1-math.Abs(avgLossPct)/100, lossRate)
	return (win*loss - 1) * 100
}

func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var varianceSum float64
	for _, x := range xs {
		diff := x - mean
		varianceSum += diff * diff
	}
	return mean, math.Sqrt(varianceSum / float64(len(xs)))
}
