// Package report turns a backtest result into the artifacts a run writes:
// the summary table, the per-day CSV and the comparison chart.
package report

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"smacross/internal/strategy"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252

// Stats summarizes one cumulative-return curve.
type Stats struct {
	Label       string
	Periods     int
	TotalReturn float64
	CAGR        float64
	AnnVol      float64
	Sharpe      float64
	MaxDrawdown float64

	// Exposure and Entries are only meaningful for the strategy curve.
	HasPosition bool
	Exposure    float64
	Entries     int
}

// Summarize computes Stats for the strategy, the asset buy-and-hold and,
// when bench is not nil, the benchmark buy-and-hold, in that order.
func Summarize(r *strategy.Result, bench *strategy.Curve) []Stats {
	s := CurveStats(r.StrategyCurve())
	s.HasPosition = true
	s.Exposure, s.Entries = exposure(r.Position)

	out := []Stats{s, CurveStats(r.BuyHoldCurve())}
	if bench != nil {
		out = append(out, CurveStats(*bench))
	}
	return out
}

// CurveStats computes return and risk figures for a cumulative curve whose
// implicit starting value is 1.0. Risk-free rate is zero.
func CurveStats(c strategy.Curve) Stats {
	s := Stats{Label: c.Label, Periods: len(c.Values)}
	if len(c.Values) == 0 {
		return s
	}

	final := c.Values[len(c.Values)-1]
	s.TotalReturn = final - 1

	years := float64(len(c.Values)) / TradingDaysPerYear
	if years > 0 && final > 0 {
		s.CAGR = math.Pow(final, 1/years) - 1
	}

	returns := curveReturns(c.Values)
	if len(returns) > 1 {
		mean, std := stat.MeanStdDev(returns, nil)
		s.AnnVol = std * math.Sqrt(TradingDaysPerYear)
		if std > 0 {
			s.Sharpe = mean / std * math.Sqrt(TradingDaysPerYear)
		}
	}

	s.MaxDrawdown = maxDrawdown(c.Values)
	return s
}

// curveReturns recovers per-period returns from a cumulative curve.
func curveReturns(values []float64) []float64 {
	out := make([]float64, len(values))
	prev := 1.0
	for i, v := range values {
		out[i] = v/prev - 1
		prev = v
	}
	return out
}

// maxDrawdown returns the largest peak-to-trough decline as a positive
// fraction, measured from the implicit 1.0 start.
func maxDrawdown(values []float64) float64 {
	peak, worst := 1.0, 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if dd := 1 - v/peak; dd > worst {
			worst = dd
		}
	}
	return worst
}

// exposure returns the fraction of periods in the market and the number of
// flat-to-long transitions.
func exposure(position []int) (float64, int) {
	if len(position) == 0 {
		return 0, 0
	}
	in, entries := 0, 0
	for i, p := range position {
		if p == 1 {
			in++
			if i == 0 || position[i-1] == 0 {
				entries++
			}
		}
	}
	return float64(in) / float64(len(position)), entries
}
