package strategy

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"smacross/internal/domain"
)

func TestAlignAndBuyHoldRestrictsToReferenceDates(t *testing.T) {
	bench := series("SPY", 50, 51, 52, 50, 55, 56)
	ref := []time.Time{bench.Dates[2], bench.Dates[3], bench.Dates[4]}

	c, err := AlignAndBuyHold(bench, ref)
	if err != nil {
		t.Fatalf("AlignAndBuyHold returned error: %v", err)
	}
	if c.Label != "Buy & Hold (SPY)" {
		t.Errorf("Label = %q, want %q", c.Label, "Buy & Hold (SPY)")
	}
	if len(c.Values) != 3 || len(c.Dates) != 3 {
		t.Fatalf("len(Values) = %d, len(Dates) = %d, want 3", len(c.Values), len(c.Dates))
	}
	want := []float64{1, 50.0 / 52, 55.0 / 52}
	for i := range want {
		if !approx(c.Values[i], want[i]) {
			t.Errorf("Values[%d] = %v, want %v", i, c.Values[i], want[i])
		}
	}
}

func TestAlignAndBuyHoldMatchesByCalendarDay(t *testing.T) {
	bench := series("SPY", 10, 11)
	ref := []time.Time{
		bench.Dates[0].Add(14*time.Hour + 30*time.Minute),
		bench.Dates[1].Add(14*time.Hour + 30*time.Minute),
	}
	c, err := AlignAndBuyHold(bench, ref)
	if err != nil {
		t.Fatalf("AlignAndBuyHold returned error: %v", err)
	}
	if !approx(c.Values[1], 1.1) {
		t.Errorf("Values[1] = %v, want 1.1", c.Values[1])
	}
}

func TestAlignAndBuyHoldMissingDate(t *testing.T) {
	bench := series("SPY", 10, 11, 12)
	ref := append([]time.Time(nil), bench.Dates...)
	ref = append(ref, bench.Dates[2].AddDate(0, 0, 1))

	_, err := AlignAndBuyHold(bench, ref)
	if !errors.Is(err, domain.ErrAlignment) {
		t.Fatalf("err = %v, want ErrAlignment", err)
	}
	if !strings.Contains(err.Error(), domain.DateKey(ref[3])) {
		t.Errorf("error %q does not name the missing date %s", err, domain.DateKey(ref[3]))
	}
}

func TestAlignAndBuyHoldIgnoresBadRowsOutsideWindow(t *testing.T) {
	bench := series("SPY", 10, 11, 12, 13)
	bench.Close[0] = math.NaN()
	ref := bench.Dates[1:]

	c, err := AlignAndBuyHold(bench, ref)
	if err != nil {
		t.Fatalf("AlignAndBuyHold returned error: %v", err)
	}
	if len(c.Values) != 3 || !approx(c.Values[2], 13.0/11.0) {
		t.Errorf("Values = %v, want 3 points ending at %v", c.Values, 13.0/11.0)
	}

	// A bad close inside the window is still rejected.
	bench.Close[2] = 0
	if _, err := AlignAndBuyHold(bench, ref); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("err = %v, want ErrInvalidParameter", err)
	}
}

func TestAlignAndBuyHoldEmptyReference(t *testing.T) {
	if _, err := AlignAndBuyHold(series("SPY", 1, 2), nil); !errors.Is(err, domain.ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestBacktestAndBenchmarkShareIndex(t *testing.T) {
	stock := series("AAPL", 100, 102, 101, 105, 110, 108, 111)
	bench := series("SPY", 400, 401, 399, 405, 410, 412, 415)

	r, err := Backtest(stock, 3)
	if err != nil {
		t.Fatalf("Backtest returned error: %v", err)
	}
	c, err := AlignAndBuyHold(bench, r.Dates)
	if err != nil {
		t.Fatalf("AlignAndBuyHold returned error: %v", err)
	}
	if len(c.Values) != r.Len() {
		t.Fatalf("benchmark len = %d, want %d", len(c.Values), r.Len())
	}
	for i := range r.Dates {
		if !c.Dates[i].Equal(r.Dates[i]) {
			t.Errorf("Dates[%d] = %s, want %s", i, c.Dates[i], r.Dates[i])
		}
	}
	if got := r.StrategyCurve().Label; got != "SMA Strategy (AAPL)" {
		t.Errorf("StrategyCurve().Label = %q", got)
	}
}
