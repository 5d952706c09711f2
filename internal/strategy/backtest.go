// Package strategy implements the SMA crossover backtest and the benchmark
// alignment it is compared against. Every function here is pure: inputs are
// never mutated and every returned slice is freshly allocated.
package strategy

import (
	"fmt"
	"time"

	"smacross/internal/domain"
)

// Result holds every series derived by Backtest, all aligned to the same
// trimmed date index.
type Result struct {
	Symbol string
	Window int

	Dates []time.Time
	Close []float64
	SMA   []float64

	// Signal is 1 when the close is strictly above its trailing SMA.
	Signal []int
	// Position is Signal lagged by one period; the first entry is flat.
	Position []int

	DailyReturn    []float64
	StrategyReturn []float64

	CumulativeStrategy []float64
	CumulativeBuyHold  []float64
}

// Len returns the number of retained periods.
func (r *Result) Len() int {
	return len(r.Dates)
}

// Backtest runs a long/flat strategy that holds the asset whenever the close
// traded above its trailing simple moving average on the previous period.
//
// The first window-1 observations have no SMA and are dropped from every
// output series. Returns are computed inside the retained window only, so
// the first retained period always has a zero return.
func Backtest(prices domain.PriceSeries, window int) (*Result, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidParameter, window)
	}
	if err := prices.Validate(); err != nil {
		return nil, err
	}
	if prices.Len() < window {
		return nil, fmt.Errorf("%w: %s has %d prices, window needs %d", domain.ErrInsufficientData, prices.Symbol, prices.Len(), window)
	}

	sma, err := SMA(prices.Close, window)
	if err != nil {
		return nil, err
	}

	warmup := window - 1
	n := prices.Len() - warmup

	dates := make([]time.Time, n)
	copy(dates, prices.Dates[warmup:])
	closes := make([]float64, n)
	copy(closes, prices.Close[warmup:])

	signal := make([]int, n)
	for t := range closes {
		if closes[t] > sma[t] {
			signal[t] = 1
		}
	}

	position := make([]int, n)
	for t := 1; t < n; t++ {
		position[t] = signal[t-1]
	}

	// NOTE: the first retained day gets a zero return instead of the move
	// from the last warm-up close. Kept for parity with the reference run.
	daily := SimpleReturns(closes)

	strategyReturns := make([]float64, n)
	for t := range daily {
		strategyReturns[t] = daily[t] * float64(position[t])
	}

	return &Result{
		Symbol:             prices.Symbol,
		Window:             window,
		Dates:              dates,
		Close:              closes,
		SMA:                sma,
		Signal:             signal,
		Position:           position,
		DailyReturn:        daily,
		StrategyReturn:     strategyReturns,
		CumulativeStrategy: Cumulative(strategyReturns),
		CumulativeBuyHold:  Cumulative(daily),
	}, nil
}

// SMA returns the trailing simple moving average of values over window
// periods. The output has len(values)-window+1 entries; entry i is the mean of
// values[i : i+window].
func SMA(values []float64, window int) ([]float64, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidParameter, window)
	}
	if len(values) < window {
		return nil, fmt.Errorf("%w: %d values, window needs %d", domain.ErrInsufficientData, len(values), window)
	}
	out := make([]float64, len(values)-window+1)
	for i := range out {
		sum := 0.0
		for _, v := range values[i : i+window] {
			sum += v
		}
		out[i] = sum / float64(window)
	}
	return out, nil
}

// SimpleReturns returns period-over-period simple returns. The first entry is
// zero because it has no prior period.
func SimpleReturns(values []float64) []float64 {
	out := make([]float64, len(values))
	for t := 1; t < len(values); t++ {
		out[t] = values[t]/values[t-1] - 1
	}
	return out
}

// Cumulative compounds returns into a growth curve starting from an implicit
// 1.0 before the first entry.
func Cumulative(returns []float64) []float64 {
	out := make([]float64, len(returns))
	acc := 1.0
	for i, r := range returns {
		acc *= 1 + r
		out[i] = acc
	}
	return out
}
