package feed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"smacross/internal/config"
	"smacross/internal/domain"
	"smacross/internal/store"
)

// fakeSource serves canned series and counts calls.
type fakeSource struct {
	series map[string]domain.PriceSeries
	err    map[string]error
	calls  atomic.Int32
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	f.calls.Add(1)
	if err := f.err[symbol]; err != nil {
		return domain.PriceSeries{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.PriceSeries{}, err
	}
	return f.series[symbol], nil
}

func TestFetchPair(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{series: map[string]domain.PriceSeries{
		"AAPL": {Symbol: "AAPL", Dates: []time.Time{d}, Close: []float64{185}},
		"SPY":  {Symbol: "SPY", Dates: []time.Time{d}, Close: []float64{470}},
	}}

	asset, bench, err := FetchPair(context.Background(), src, "AAPL", "SPY", d, time.Time{})
	if err != nil {
		t.Fatalf("FetchPair: %v", err)
	}
	if asset.Symbol != "AAPL" || bench.Symbol != "SPY" {
		t.Errorf("FetchPair = %s, %s; want AAPL, SPY", asset.Symbol, bench.Symbol)
	}
	if src.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", src.calls.Load())
	}
}

func TestFetchPairPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{
		series: map[string]domain.PriceSeries{"AAPL": {Symbol: "AAPL"}},
		err:    map[string]error{"SPY": boom},
	}
	_, _, err := FetchPair(context.Background(), src, "AAPL", "SPY", time.Time{}, time.Time{})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestNewSource(t *testing.T) {
	bars := store.NewParquetStore(t.TempDir())
	tests := []struct {
		source string
		want   string
	}{
		{config.SourceYahoo, "yahoo"},
		{config.SourceAlpaca, "alpaca"},
		{config.SourceCSV, "csv"},
		{config.SourceParquet, "parquet"},
	}
	for _, tt := range tests {
		cfg := config.Default()
		cfg.Feed.Source = tt.source
		cfg.Feed.CSVDir = t.TempDir()
		src, err := NewSource(cfg, bars, nil)
		if err != nil {
			t.Fatalf("NewSource(%q): %v", tt.source, err)
		}
		if src.Name() != tt.want {
			t.Errorf("NewSource(%q).Name() = %q, want %q", tt.source, src.Name(), tt.want)
		}
	}

	cfg := config.Default()
	cfg.Feed.Source = "bloomberg"
	if _, err := NewSource(cfg, bars, nil); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("unknown source: err = %v, want ErrInvalidParameter", err)
	}

	cfg.Feed.Source = config.SourceParquet
	if _, err := NewSource(cfg, nil, nil); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("parquet without store: err = %v, want ErrInvalidParameter", err)
	}
}

func TestStoreSource(t *testing.T) {
	ps := store.NewParquetStore(t.TempDir())
	ctx := context.Background()
	bars := []domain.Bar{
		{Symbol: "SPY", Timestamp: time.Date(2024, 1, 2, 5, 0, 0, 0, time.UTC), Close: 470},
		{Symbol: "SPY", Timestamp: time.Date(2024, 1, 3, 5, 0, 0, 0, time.UTC), Close: 468},
	}
	if err := ps.WriteBars(ctx, bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	s, err := NewStoreSource(ps).FetchSeries(ctx, "spy", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{})
	if err != nil {
		t.Fatalf("FetchSeries: %v", err)
	}
	if s.Len() != 2 || s.Close[1] != 468 {
		t.Errorf("series = %+v", s)
	}
	if got := domain.DateKey(s.Dates[0]); got != "2024-01-02" {
		t.Errorf("Dates[0] = %s, want 2024-01-02", got)
	}
}

func TestLatestFinished(t *testing.T) {
	et, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("no tzdata: %v", err)
	}
	days := []string{"2024-03-11", "2024-03-12", "2024-03-13"}

	before := time.Date(2024, 3, 13, 15, 0, 0, 0, et)
	got, err := latestFinished(days, before)
	if err != nil {
		t.Fatalf("latestFinished: %v", err)
	}
	if domain.DateKey(got) != "2024-03-12" {
		t.Errorf("during session = %s, want 2024-03-12", domain.DateKey(got))
	}

	after := time.Date(2024, 3, 13, 21, 0, 0, 0, et)
	got, err = latestFinished(days, after)
	if err != nil {
		t.Fatalf("latestFinished: %v", err)
	}
	if domain.DateKey(got) != "2024-03-13" {
		t.Errorf("after cutoff = %s, want 2024-03-13", domain.DateKey(got))
	}

	if _, err := latestFinished(nil, after); err == nil {
		t.Error("latestFinished(nil) returned nil error")
	}
}
