// Package store persists daily bars locally so repeated backtests can run
// without hitting a remote feed.
package store

import (
	"context"
	"time"

	"smacross/internal/domain"
)

// BarStore persists and retrieves daily bar data.
type BarStore interface {
	// WriteBars persists a batch of bars, merging with what is already stored.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for symbol with trading day in [start, end),
	// sorted by date. A zero end reads to the latest stored bar.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all symbols with stored bars, sorted.
	ListSymbols(ctx context.Context) ([]string, error)
}
