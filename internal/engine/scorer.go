package engine

import (
	"math"
	"time"

	"multistrat/types"
)

const neutralScore = 1.0

// PerformanceScorer condenses a strategy's recent trades into one
// non-negative score for the CapitalAllocator. With fewer than two trades in
// the window there is no evidence either way, so the score is neutral.
type PerformanceScorer struct {
	lookbackDays int
}

func NewPerformanceScorer(lookbackDays int) *PerformanceScorer {
	if lookbackDays <= 0 {
		lookbackDays = 90
	}
	return &PerformanceScorer{lookbackDays: lookbackDays}
}

// Score builds a synthetic cumulative cash-flow curve from the strategy's
// trades inside the trailing window (buys subtract value, sells add it) and
// combines its return, a Sharpe-like ratio and max drawdown into one scalar.
func (s *PerformanceScorer) Score(trades []types.Trade, strategy string, asOf time.Time) float64 {
	cutoff := asOf.AddDate(0, 0, -s.lookbackDays)

	var curve []float64
	cum := 0.0
	for _, t := range trades {
		if t.Strategy != strategy || t.Date.Before(cutoff) || t.Date.After(asOf) {
			continue
		}
		value := t.Value.InexactFloat64()
		switch t.Action {
		case types.ActionBuy, types.ActionBuyOption, types.ActionAssignedPut, types.ActionAssignedCall:
			cum -= value
		case types.ActionSell, types.ActionSellOption:
			cum += value
		}
		curve = append(curve, cum)
	}

	if len(curve) < 2 {
		return neutralScore
	}

	returnsPct := 0.0
	if curve[0] != 0 {
		returnsPct = curve[len(curve)-1] / math.Abs(curve[0]) * 100
	}

	sharpe := sharpeFromCurve(curve)
	drawdownPct := drawdownFromCurve(curve)

	score := (1 + sharpe) * (1 + returnsPct/100) * (1 / (1 + drawdownPct/100))
	return math.Max(0, score)
}

// sharpeFromCurve annualizes mean/stdev of the curve's step returns.
func sharpeFromCurve(curve []float64) float64 {
	var steps []float64
	for i := 1; i < len(curve); i++ {
		prev := math.Abs(curve[i-1])
		if prev == 0 {
			continue
		}
		r := (curve[i] - curve[i-1]) / prev
		if math.IsInf(r, 0) || math.IsNaN(r) {
			continue
		}
		steps = append(steps, r)
	}
	if len(steps) < 2 {
		return 0
	}
	mean, std := meanStd(steps)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

func drawdownFromCurve(curve []float64) float64 {
	maxDD := 0.0
	peak := curve[0]
	for _, v := range curve {
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
	std := math.Sqrt(varianceSum / float64(len(xs)))
	return mean, std
}
