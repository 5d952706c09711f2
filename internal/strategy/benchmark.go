package strategy

import (
	"fmt"
	"time"

	"smacross/internal/domain"
)

// Curve is a labeled cumulative-return series on a date index.
type Curve struct {
	Label  string
	Dates  []time.Time
	Values []float64
}

// AlignAndBuyHold restricts benchmark to exactly the reference dates and
// returns its buy-and-hold cumulative curve over that window. Dates are
// matched by calendar day. A reference date missing from the benchmark is an
// error; rows are never silently dropped.
func AlignAndBuyHold(benchmark domain.PriceSeries, dates []time.Time) (*Curve, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: no reference dates to align %s to", domain.ErrInsufficientData, benchmark.Symbol)
	}
	if len(benchmark.Dates) != len(benchmark.Close) {
		return nil, fmt.Errorf("%w: %s has %d dates but %d closes",
			domain.ErrInvalidParameter, benchmark.Symbol, len(benchmark.Dates), len(benchmark.Close))
	}

	index := make(map[string]int, benchmark.Len())
	for i, d := range benchmark.Dates {
		index[domain.DateKey(d)] = i
	}

	aligned := make([]float64, len(dates))
	var missing []string
	for i, d := range dates {
		j, ok := index[domain.DateKey(d)]
		if !ok {
			missing = append(missing, domain.DateKey(d))
			continue
		}
		aligned[i] = benchmark.Close[j]
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s has no price for %s (%d of %d reference dates missing)",
			domain.ErrAlignment, benchmark.Symbol, missing[0], len(missing), len(dates))
	}

	out := make([]time.Time, len(dates))
	copy(out, dates)

	// Rows outside the reference window are never looked at.
	window := domain.PriceSeries{Symbol: benchmark.Symbol, Dates: out, Close: aligned}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	return &Curve{
		Label:  BuyHoldLabel(benchmark.Symbol),
		Dates:  out,
		Values: Cumulative(SimpleReturns(aligned)),
	}, nil
}

// StrategyCurve returns the strategy cumulative curve of r with its label.
func (r *Result) StrategyCurve() Curve {
	return Curve{Label: StrategyLabel(r.Symbol), Dates: r.Dates, Values: r.CumulativeStrategy}
}

// BuyHoldCurve returns the passive cumulative curve of r with its label.
func (r *Result) BuyHoldCurve() Curve {
	return Curve{Label: BuyHoldLabel(r.Symbol), Dates: r.Dates, Values: r.CumulativeBuyHold}
}

// StrategyLabel is the human-readable label of the SMA strategy curve.
func StrategyLabel(symbol string) string {
	return fmt.Sprintf("SMA Strategy (%s)", symbol)
}

// BuyHoldLabel is the human-readable label of a buy-and-hold curve.
func BuyHoldLabel(symbol string) string {
	return fmt.Sprintf("Buy & Hold (%s)", symbol)
}
