package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smacross/internal/domain"
	"smacross/internal/store"
)

var _ Source = (*StoreSource)(nil)

// StoreSource serves series from the local bar store, populated beforehand by
// the fetch command.
type StoreSource struct {
	bars store.BarStore
}

// NewStoreSource creates a StoreSource over bars.
func NewStoreSource(bars store.BarStore) *StoreSource {
	return &StoreSource{bars: bars}
}

// Name returns the source identifier.
func (s *StoreSource) Name() string { return "parquet" }

// FetchSeries returns the stored close series for symbol in [start, end).
func (s *StoreSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return domain.PriceSeries{}, fmt.Errorf("%w: empty symbol", domain.ErrInvalidParameter)
	}
	bars, err := s.bars.ReadBars(ctx, symbol, start, end)
	if err != nil {
		return domain.PriceSeries{}, fmt.Errorf("reading stored bars for %s: %w", symbol, err)
	}
	return seriesFromBars(symbol, bars, start, end), nil
}
