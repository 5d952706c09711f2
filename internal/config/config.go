// Package config loads the run configuration: built-in defaults, then an
// optional YAML file, then environment overrides. The CLI applies flag
// overrides on top and calls Validate.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"smacross/internal/domain"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration.
type Config struct {
	Backtest Backtest `yaml:"backtest"`
	Feed     Feed     `yaml:"feed"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Storage  Storage  `yaml:"storage"`
	Report   Report   `yaml:"report"`
	Logging  Logging  `yaml:"logging"`
}

// Backtest is the explicit parameter record handed to the runner.
type Backtest struct {
	Symbol    string `yaml:"symbol"`
	Benchmark string `yaml:"benchmark"`
	StartDate string `yaml:"start_date"`
	// EndDate is exclusive. Empty means "latest available".
	EndDate string `yaml:"end_date"`
	Window  int    `yaml:"window"`
}

// Feed selects and tunes the price source.
type Feed struct {
	Source          string        `yaml:"source"`
	CSVDir          string        `yaml:"csv_dir"`
	Adjusted        bool          `yaml:"adjusted"`
	MaxAttempts     int           `yaml:"max_attempts"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// Storage holds the local bar store location.
type Storage struct {
	DataDir string `yaml:"data_dir"`
}

// Report controls what the run writes and where.
type Report struct {
	OutputDir   string `yaml:"output_dir"`
	ChartEngine string `yaml:"chart_engine"`
	ChartFile   string `yaml:"chart_file"`
	CSV         bool   `yaml:"csv"`
	Summary     bool   `yaml:"summary"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Known feed sources and chart engines.
const (
	SourceYahoo   = "yahoo"
	SourceAlpaca  = "alpaca"
	SourceCSV     = "csv"
	SourceParquet = "parquet"

	ChartGonum   = "gonum"
	ChartECharts = "echarts"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the configuration of the reference study: AAPL against
// SPY, 2015-01-01 to 2022-12-31, 50-day SMA, adjusted Yahoo daily closes.
func Default() *Config {
	return &Config{
		Backtest: Backtest{
			Symbol:    "AAPL",
			Benchmark: "SPY",
			StartDate: "2015-01-01",
			EndDate:   "2022-12-31",
			Window:    50,
		},
		Feed: Feed{
			Source:          SourceYahoo,
			Adjusted:        true,
			MaxAttempts:     4,
			RateLimitPerMin: 120,
			Timeout:         30 * time.Second,
		},
		Alpaca: Alpaca{
			BaseURL: "https://paper-api.alpaca.markets",
			Feed:    "iex",
		},
		Storage: Storage{DataDir: "data"},
		Report: Report{
			OutputDir:   "out",
			ChartEngine: ChartGonum,
			ChartFile:   "sma_vs_buyhold.png",
			CSV:         true,
			Summary:     true,
		},
		Logging: Logging{Level: "info", Format: "text"},
	}
}

// Load starts from Default, overlays the YAML file at path when path is not
// empty, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("SMACROSS_SYMBOL"); v != "" {
		cfg.Backtest.Symbol = v
	}
	if v := os.Getenv("SMACROSS_BENCHMARK"); v != "" {
		cfg.Backtest.Benchmark = v
	}
	if v := os.Getenv("SMACROSS_WINDOW"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SMACROSS_WINDOW=%q: %w", v, err)
		}
		cfg.Backtest.Window = n
	}
	if v := os.Getenv("SMACROSS_SOURCE"); v != "" {
		cfg.Feed.Source = v
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	// Standard Alpaca env vars win over everything else.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	return nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate rejects configurations the runner cannot execute.
func (c *Config) Validate() error {
	b := c.Backtest
	if strings.TrimSpace(b.Symbol) == "" {
		return fmt.Errorf("%w: backtest.symbol is required", domain.ErrInvalidParameter)
	}
	if strings.TrimSpace(b.Benchmark) == "" {
		return fmt.Errorf("%w: backtest.benchmark is required", domain.ErrInvalidParameter)
	}
	if b.Window <= 0 {
		return fmt.Errorf("%w: backtest.window must be > 0, got %d", domain.ErrInvalidParameter, b.Window)
	}
	start, end, err := b.Range()
	if err != nil {
		return err
	}
	if !end.IsZero() && !end.After(start) {
		return fmt.Errorf("%w: end_date %s must be after start_date %s", domain.ErrInvalidParameter, b.EndDate, b.StartDate)
	}

	switch c.Feed.Source {
	case SourceYahoo, SourceParquet:
	case SourceAlpaca:
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			return fmt.Errorf("%w: alpaca source requires api_key and api_secret", domain.ErrInvalidParameter)
		}
	case SourceCSV:
		if c.Feed.CSVDir == "" {
			return fmt.Errorf("%w: csv source requires feed.csv_dir", domain.ErrInvalidParameter)
		}
	default:
		return fmt.Errorf("%w: unknown feed.source %q", domain.ErrInvalidParameter, c.Feed.Source)
	}

	switch c.Report.ChartEngine {
	case ChartGonum, ChartECharts, "":
	default:
		return fmt.Errorf("%w: unknown report.chart_engine %q", domain.ErrInvalidParameter, c.Report.ChartEngine)
	}
	return nil
}

// Range parses the start and end dates. A zero end means open-ended.
func (b Backtest) Range() (start, end time.Time, err error) {
	start, err = domain.ParseDate(b.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start_date: %v", domain.ErrInvalidParameter, err)
	}
	if strings.TrimSpace(b.EndDate) == "" {
		return start, time.Time{}, nil
	}
	end, err = domain.ParseDate(b.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end_date: %v", domain.ErrInvalidParameter, err)
	}
	return start, end, nil
}
