package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"smacross/internal/domain"
	"smacross/internal/feed"
	"smacross/internal/store"
)

// Fetcher mirrors bars from a remote source into the local bar store so later
// runs can use the parquet source offline.
type Fetcher struct {
	source     feed.BarSource
	store      store.BarStore
	maxWorkers int
	log        *slog.Logger
}

// NewFetcher creates a Fetcher. maxWorkers bounds concurrent symbol fetches.
func NewFetcher(src feed.Source, bars store.BarStore, maxWorkers int, log *slog.Logger) (*Fetcher, error) {
	bs, ok := src.(feed.BarSource)
	if !ok {
		return nil, fmt.Errorf("%w: source %q cannot be mirrored", domain.ErrInvalidParameter, src.Name())
	}
	if bars == nil {
		return nil, fmt.Errorf("%w: nil bar store", domain.ErrInvalidParameter)
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		source:     bs,
		store:      bars,
		maxWorkers: maxWorkers,
		log:        log.With("component", "fetcher", "source", src.Name()),
	}, nil
}

// Run fetches [start, end) for every distinct symbol and writes the bars to
// the store. It returns how many symbols were fetched and stops at the first
// failure.
func (f *Fetcher) Run(ctx context.Context, symbols []string, start, end time.Time) (int, error) {
	if len(symbols) == 0 {
		return 0, fmt.Errorf("%w: no symbols to fetch", domain.ErrInvalidParameter)
	}

	var (
		total    atomic.Int64
		runStart = time.Now()
	)

	seen := make(map[string]struct{}, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.maxWorkers)
	for _, sym := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(sym))
		if _, dup := seen[sym]; dup || sym == "" {
			continue
		}
		seen[sym] = struct{}{}
		g.Go(func() error {
			bars, err := f.source.FetchBars(gctx, sym, start, end)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", sym, err)
			}
			if len(bars) == 0 {
				f.log.Warn("no bars returned", "symbol", sym)
				return nil
			}
			if err := f.store.WriteBars(gctx, bars); err != nil {
				return fmt.Errorf("storing %s: %w", sym, err)
			}
			total.Add(int64(len(bars)))
			f.log.Info("stored bars", "symbol", sym, "bars", len(bars))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	if len(seen) == 0 {
		return 0, fmt.Errorf("%w: no symbols to fetch", domain.ErrInvalidParameter)
	}

	f.log.Info("fetch complete",
		"symbols", len(seen),
		"bars", total.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return len(seen), nil
}

// Refresh re-fetches [start, end) for every symbol already in the store.
func (f *Fetcher) Refresh(ctx context.Context, start, end time.Time) (int, error) {
	symbols, err := f.store.ListSymbols(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing stored symbols: %w", err)
	}
	if len(symbols) == 0 {
		return 0, fmt.Errorf("%w: bar store is empty, nothing to refresh", domain.ErrInsufficientData)
	}
	f.log.Info("refreshing stored symbols", "symbols", len(symbols))
	return f.Run(ctx, symbols, start, end)
}
