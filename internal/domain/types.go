// Package domain holds the core data types shared by the feeds, the
// backtester and the report writers.
package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"
)

// Bar is a single daily OHLCV observation as delivered by a price feed.
type Bar struct {
	Symbol    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// PriceSeries is a date-ordered close-price series for one instrument.
// Dates and Close are aligned index-for-index.
type PriceSeries struct {
	Symbol string
	Dates  []time.Time
	Close  []float64
}

// Len returns the number of observations in the series.
func (s PriceSeries) Len() int {
	return len(s.Close)
}

// Validate reports a series whose closes are not finite and positive, or
// whose dates do not line up with them in strictly increasing order.
func (s PriceSeries) Validate() error {
	if len(s.Dates) != len(s.Close) {
		return fmt.Errorf("%w: %s has %d dates but %d closes", ErrInvalidParameter, s.Symbol, len(s.Dates), len(s.Close))
	}
	for i, c := range s.Close {
		if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
			return fmt.Errorf("%w: %s close on %s is %v", ErrInvalidParameter, s.Symbol, DateKey(s.Dates[i]), c)
		}
		if i > 0 && !s.Dates[i].After(s.Dates[i-1]) {
			return fmt.Errorf("%w: %s dates not strictly increasing at %s", ErrInvalidParameter, s.Symbol, DateKey(s.Dates[i]))
		}
	}
	return nil
}

// SeriesFromBars builds a PriceSeries from bars, sorting by timestamp and
// keeping the last bar seen for any duplicated trading day.
func SeriesFromBars(symbol string, bars []Bar) PriceSeries {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	s := PriceSeries{
		Symbol: strings.ToUpper(symbol),
		Dates:  make([]time.Time, 0, len(sorted)),
		Close:  make([]float64, 0, len(sorted)),
	}
	for _, b := range sorted {
		d := TradingDay(b.Timestamp)
		if n := len(s.Dates); n > 0 && s.Dates[n-1].Equal(d) {
			s.Close[n-1] = b.Close
			continue
		}
		s.Dates = append(s.Dates, d)
		s.Close = append(s.Close, b.Close)
	}
	return s
}

var exchangeLocation = loadExchangeLocation()

// loadExchangeLocation returns America/New_York. The embedded tzdata makes
// the fallback unreachable in practice.
func loadExchangeLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// TradingDay normalizes a bar timestamp to midnight UTC of the exchange
// trading day it belongs to. A timestamp already at midnight UTC is a bare
// calendar date and is returned unchanged.
func TradingDay(t time.Time) time.Time {
	if u := t.UTC(); u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u
	}
	et := t.In(exchangeLocation)
	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey formats t as YYYY-MM-DD in its own location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// DateLayout is the calendar-date layout used in configuration and reports.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
