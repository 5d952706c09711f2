// Package feed retrieves daily close-price series for a symbol and date range
// from Yahoo Finance, Alpaca, local CSV files or the local Parquet bar store.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"smacross/internal/config"
	"smacross/internal/domain"
	"smacross/internal/store"
)

// Source fetches a daily close series for [start, end). A zero end means
// "up to the latest available bar".
type Source interface {
	Name() string
	FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error)
}

// BarSource is a Source that can also return full OHLCV bars, which is what
// the fetch command mirrors into the bar store.
type BarSource interface {
	Source
	FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// NewSource builds the source named by cfg.Feed.Source. The store is only
// used by the parquet source and may be nil otherwise.
func NewSource(cfg *config.Config, bars store.BarStore, log *slog.Logger) (Source, error) {
	if log == nil {
		log = slog.Default()
	}
	switch strings.ToLower(cfg.Feed.Source) {
	case config.SourceYahoo:
		return NewYahooSource(YahooOptions{
			Adjusted:        cfg.Feed.Adjusted,
			MaxAttempts:     cfg.Feed.MaxAttempts,
			RateLimitPerMin: cfg.Feed.RateLimitPerMin,
			Timeout:         cfg.Feed.Timeout,
			Logger:          log,
		}), nil
	case config.SourceAlpaca:
		return NewAlpacaSource(AlpacaOptions{
			APIKey:          cfg.Alpaca.APIKey,
			APISecret:       cfg.Alpaca.APISecret,
			BaseURL:         cfg.Alpaca.BaseURL,
			DataURL:         cfg.Alpaca.DataURL,
			Feed:            cfg.Alpaca.Feed,
			MaxAttempts:     cfg.Feed.MaxAttempts,
			RateLimitPerMin: cfg.Feed.RateLimitPerMin,
			Logger:          log,
		}), nil
	case config.SourceCSV:
		return NewCSVSource(cfg.Feed.CSVDir, cfg.Feed.Adjusted), nil
	case config.SourceParquet:
		if bars == nil {
			return nil, fmt.Errorf("%w: parquet source needs a bar store", domain.ErrInvalidParameter)
		}
		return NewStoreSource(bars), nil
	default:
		return nil, fmt.Errorf("%w: unknown feed source %q", domain.ErrInvalidParameter, cfg.Feed.Source)
	}
}

// FetchPair fetches the asset and benchmark series concurrently. The first
// error cancels the other request.
func FetchPair(ctx context.Context, src Source, symbol, benchmark string, start, end time.Time) (asset, bench domain.PriceSeries, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := src.FetchSeries(gctx, symbol, start, end)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", symbol, err)
		}
		asset = s
		return nil
	})
	g.Go(func() error {
		s, err := src.FetchSeries(gctx, benchmark, start, end)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", benchmark, err)
		}
		bench = s
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.PriceSeries{}, domain.PriceSeries{}, err
	}
	return asset, bench, nil
}

// inRange reports whether trading day d falls in [start, end).
func inRange(d, start, end time.Time) bool {
	if d.Before(start) {
		return false
	}
	return end.IsZero() || d.Before(end)
}

// seriesFromBars filters bars to [start, end) by trading day and builds the
// close series.
func seriesFromBars(symbol string, bars []domain.Bar, start, end time.Time) domain.PriceSeries {
	kept := bars[:0:0]
	for _, b := range bars {
		if inRange(domain.TradingDay(b.Timestamp), start, end) {
			kept = append(kept, b)
		}
	}
	return domain.SeriesFromBars(symbol, kept)
}
