package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"smacross/internal/domain"
	"smacross/internal/util"
)

var _ BarSource = (*AlpacaSource)(nil)

// AlpacaOptions configures an AlpacaSource.
type AlpacaOptions struct {
	APIKey    string
	APISecret string
	// BaseURL is the trading API, used only for the market calendar.
	BaseURL string
	// DataURL overrides the market-data endpoint when set.
	DataURL         string
	Feed            string
	MaxAttempts     int
	RateLimitPerMin int
	Logger          *slog.Logger
}

// AlpacaSource reads split- and dividend-adjusted daily bars from the Alpaca
// market-data API.
type AlpacaSource struct {
	client      *marketdata.Client
	feed        string
	apiKey      string
	apiSecret   string
	baseURL     string
	maxAttempts int
	limiter     *util.RateLimiter
	log         *slog.Logger
}

// NewAlpacaSource creates an AlpacaSource.
func NewAlpacaSource(opts AlpacaOptions) *AlpacaSource {
	clientOpts := marketdata.ClientOpts{
		APIKey:    opts.APIKey,
		APISecret: opts.APISecret,
	}
	if opts.DataURL != "" {
		clientOpts.BaseURL = opts.DataURL
	}
	feed := opts.Feed
	if feed == "" {
		feed = "iex"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &AlpacaSource{
		client:      marketdata.NewClient(clientOpts),
		feed:        feed,
		apiKey:      opts.APIKey,
		apiSecret:   opts.APISecret,
		baseURL:     opts.BaseURL,
		maxAttempts: opts.MaxAttempts,
		limiter:     util.NewRateLimiter(opts.RateLimitPerMin),
		log:         log.With("source", "alpaca"),
	}
}

// Name returns the source identifier.
func (a *AlpacaSource) Name() string { return "alpaca" }

// FetchSeries returns the daily close series for symbol in [start, end).
func (a *AlpacaSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	bars, err := a.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return seriesFromBars(symbol, bars, start, end), nil
}

// FetchBars returns daily bars for symbol in [start, end). A zero end is
// resolved to the day after the latest finished trading session.
func (a *AlpacaSource) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrInvalidParameter)
	}

	if end.IsZero() {
		last, err := LatestFinishedTradingDay(a.apiKey, a.apiSecret, a.baseURL)
		if err != nil {
			return nil, fmt.Errorf("determining end date: %w", err)
		}
		end = last.AddDate(0, 0, 1)
	}

	var alpacaBars []marketdata.Bar
	err := util.Retry(ctx, a.maxAttempts, time.Second, func() error {
		if err := a.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		bs, err := a.client.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame:  marketdata.OneDay,
			Adjustment: marketdata.All,
			Start:      start,
			End:        end,
			Feed:       marketdata.Feed(a.feed),
		})
		if err != nil {
			a.log.Warn("GetBars failed", "symbol", symbol, "err", err)
			return err
		}
		alpacaBars = bs
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("alpaca %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(alpacaBars))
	for _, ab := range alpacaBars {
		bars = append(bars, domain.Bar{
			Symbol:    symbol,
			Timestamp: ab.Timestamp,
			Open:      ab.Open,
			High:      ab.High,
			Low:       ab.Low,
			Close:     ab.Close,
			Volume:    int64(ab.Volume),
		})
	}
	a.log.Debug("fetched bars", "symbol", symbol, "bars", len(bars))
	return bars, nil
}
