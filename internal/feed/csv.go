package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smacross/internal/domain"
)

var _ BarSource = (*CSVSource)(nil)

// CSVSource reads <Dir>/<SYMBOL>.csv files with a header row. The date column
// is "date" and the close column "close"; matching is case-insensitive. With
// Adjusted set an "Adj Close" column is preferred when present.
type CSVSource struct {
	Dir      string
	Adjusted bool
}

// NewCSVSource creates a CSVSource reading from dir.
func NewCSVSource(dir string, adjusted bool) *CSVSource {
	return &CSVSource{Dir: dir, Adjusted: adjusted}
}

// Name returns the source identifier.
func (c *CSVSource) Name() string { return "csv" }

// FetchSeries returns the close series for symbol in [start, end).
func (c *CSVSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	bars, err := c.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return seriesFromBars(symbol, bars, start, end), nil
}

// FetchBars returns the rows of the symbol's file in [start, end) as bars.
func (c *CSVSource) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrInvalidParameter)
	}
	path := filepath.Join(c.Dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no price file for %s at %s", domain.ErrInsufficientData, symbol, path)
		}
		return nil, err
	}
	defer f.Close()

	bars, err := readCSVBars(ctx, f, symbol, c.Adjusted)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	kept := bars[:0]
	for _, b := range bars {
		if inRange(b.Timestamp, start, end) {
			kept = append(kept, b)
		}
	}
	return kept, nil
}

// readCSVBars parses a date/close table. Rows with an empty close are
// skipped; any other unparsable value is an error.
func readCSVBars(ctx context.Context, r io.Reader, symbol string, adjusted bool) ([]domain.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", domain.ErrMissingColumn)
		}
		return nil, err
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, fmt.Errorf("%w: no date column in header %v", domain.ErrMissingColumn, header)
	}
	closeCol, ok := cols["close"]
	if adj, hasAdj := cols["adj close"]; adjusted && hasAdj {
		closeCol, ok = adj, true
	}
	if !ok {
		return nil, fmt.Errorf("%w: no close column in header %v", domain.ErrMissingColumn, header)
	}

	var bars []domain.Bar
	for line := 2; ; line++ {
		if line%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		raw := strings.TrimSpace(rec[closeCol])
		if raw == "" || strings.EqualFold(raw, "null") {
			continue
		}
		d, err := domain.ParseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		px, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("line %d: close %q: %w", line, raw, err)
		}
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: d,
			Close:     px.InexactFloat64(),
		})
	}
	return bars, nil
}
