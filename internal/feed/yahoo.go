package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smacross/internal/domain"
	"smacross/internal/util"
)

var _ BarSource = (*YahooSource)(nil)

// DefaultYahooHosts are tried in order on every attempt.
var DefaultYahooHosts = []string{
	"https://query1.finance.yahoo.com",
	"https://query2.finance.yahoo.com",
}

const yahooUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// YahooOptions configures a YahooSource. Zero values pick sensible defaults.
type YahooOptions struct {
	Hosts           []string
	Adjusted        bool
	MaxAttempts     int
	RateLimitPerMin int
	Timeout         time.Duration
	BaseDelay       time.Duration
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// YahooSource reads daily bars from the Yahoo Finance v8 chart endpoint.
type YahooSource struct {
	client      *http.Client
	hosts       []string
	adjusted    bool
	maxAttempts int
	baseDelay   time.Duration
	limiter     *util.RateLimiter
	log         *slog.Logger
}

// NewYahooSource creates a YahooSource.
func NewYahooSource(opts YahooOptions) *YahooSource {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	hosts := opts.Hosts
	if len(hosts) == 0 {
		hosts = DefaultYahooHosts
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &YahooSource{
		client:      client,
		hosts:       hosts,
		adjusted:    opts.Adjusted,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   baseDelay,
		limiter:     util.NewRateLimiter(opts.RateLimitPerMin),
		log:         log.With("source", "yahoo"),
	}
}

// Name returns the source identifier.
func (y *YahooSource) Name() string { return "yahoo" }

// FetchSeries returns the daily close series for symbol in [start, end).
func (y *YahooSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (domain.PriceSeries, error) {
	bars, err := y.FetchBars(ctx, symbol, start, end)
	if err != nil {
		return domain.PriceSeries{}, err
	}
	return domain.SeriesFromBars(symbol, bars), nil
}

// FetchBars returns daily bars for symbol in [start, end). When adjusted
// closes are enabled and present they replace the raw close, and open, high
// and low are rescaled to match.
func (y *YahooSource) FetchBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: empty symbol", domain.ErrInvalidParameter)
	}

	var resp *yahooChartResp
	err := util.Retry(ctx, y.maxAttempts, y.baseDelay, func() error {
		r, err := y.fetchOnce(ctx, symbol, start, end)
		if err != nil {
			y.log.Warn("chart request failed", "symbol", symbol, "err", err)
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}

	bars, err := resp.bars(symbol, y.adjusted)
	if err != nil {
		return nil, err
	}

	kept := bars[:0]
	for _, b := range bars {
		if inRange(domain.TradingDay(b.Timestamp), start, end) {
			kept = append(kept, b)
		}
	}
	y.log.Debug("fetched bars", "symbol", symbol, "bars", len(kept))
	return kept, nil
}

// fetchOnce tries every host once and returns the first decoded response.
func (y *YahooSource) fetchOnce(ctx context.Context, symbol string, start, end time.Time) (*yahooChartResp, error) {
	period2 := time.Now().Unix()
	if !end.IsZero() {
		period2 = end.Unix()
	}
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(period2, 10))
	q.Set("interval", "1d")
	q.Set("events", "div,splits")
	q.Set("includeAdjustedClose", "true")

	var lastErr error
	for _, host := range y.hosts {
		if err := y.limiter.Wait(ctx); err != nil {
			return nil, util.Permanent(err)
		}

		u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", strings.TrimRight(host, "/"), url.PathEscape(symbol), q.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, util.Permanent(err)
		}
		req.Header.Set("User-Agent", yahooUserAgent)
		req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := y.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, util.Permanent(ctx.Err())
			}
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("reading response: %w", readErr)
			continue
		}

		text := string(body)
		if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(text, "Edge: Too Many Requests") {
			lastErr = fmt.Errorf("%s returned 429: too many requests", host)
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, util.Permanent(fmt.Errorf("%w: %s", domain.ErrInsufficientData, chartErrorText(body, "symbol not found")))
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%s returned %d: %s", host, resp.StatusCode, preview(text))
			continue
		}
		if strings.HasPrefix(text, "<") || strings.HasPrefix(text, "Edge:") {
			lastErr = fmt.Errorf("%s returned non-json body: %s", host, preview(text))
			continue
		}

		var yc yahooChartResp
		if err := json.Unmarshal(body, &yc); err != nil {
			lastErr = fmt.Errorf("parsing json from %s: %v; body: %s", host, err, preview(text))
			continue
		}
		if yc.Chart.Error != nil {
			return nil, util.Permanent(fmt.Errorf("%w: %s", domain.ErrInsufficientData, yc.Chart.Error.Description))
		}
		return &yc, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no hosts configured")
	}
	return nil, lastErr
}

// yahooChartResp is the subset of the v8 chart payload we read. Prices are
// pointers because Yahoo emits null for halted sessions.
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (yc *yahooChartResp) bars(symbol string, adjusted bool) ([]domain.Bar, error) {
	if len(yc.Chart.Result) == 0 {
		return nil, nil
	}
	r := yc.Chart.Result[0]
	if len(r.Timestamp) == 0 {
		return nil, nil
	}

	var raw, closes []*float64
	if len(r.Indicators.Quote) > 0 {
		raw = r.Indicators.Quote[0].Close
	}
	useAdj := adjusted && len(r.Indicators.AdjClose) > 0 && r.Indicators.AdjClose[0].AdjClose != nil
	if useAdj {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else {
		closes = raw
	}
	if closes == nil {
		return nil, fmt.Errorf("%w: yahoo response for %s has no close prices", domain.ErrMissingColumn, symbol)
	}

	var q struct {
		Open, High, Low []*float64
		Volume          []*int64
	}
	if len(r.Indicators.Quote) > 0 {
		q.Open = r.Indicators.Quote[0].Open
		q.High = r.Indicators.Quote[0].High
		q.Low = r.Indicators.Quote[0].Low
		q.Volume = r.Indicators.Quote[0].Volume
	}

	bars := make([]domain.Bar, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		c := at(closes, i)
		if c == nil {
			continue
		}
		b := domain.Bar{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     *c,
		}
		// Open, high and low are only quoted raw; scale them by the same
		// split and dividend factor as the close.
		factor := 1.0
		if useAdj {
			if rc := at(raw, i); rc != nil && *rc > 0 {
				factor = *c / *rc
			}
		}
		if v := at(q.Open, i); v != nil {
			b.Open = *v * factor
		}
		if v := at(q.High, i); v != nil {
			b.High = *v * factor
		}
		if v := at(q.Low, i); v != nil {
			b.Low = *v * factor
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			b.Volume = *q.Volume[i]
		}
		bars = append(bars, b)
	}
	return bars, nil
}

func at(vals []*float64, i int) *float64 {
	if i >= len(vals) {
		return nil
	}
	return vals[i]
}

// chartErrorText extracts chart.error.description from body, if any.
func chartErrorText(body []byte, fallback string) string {
	var yc yahooChartResp
	if err := json.Unmarshal(body, &yc); err == nil && yc.Chart.Error != nil && yc.Chart.Error.Description != "" {
		return yc.Chart.Error.Description
	}
	return fallback
}

func preview(s string) string {
	if len(s) > 120 {
		return s[:120]
	}
	return s
}
