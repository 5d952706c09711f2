// Package engine coordinates a backtest run: fetch both series, run the
// strategy, align the benchmark and hand everything to the report writers.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"smacross/internal/config"
	"smacross/internal/domain"
	"smacross/internal/feed"
	"smacross/internal/report"
	"smacross/internal/strategy"
)

// Outcome is everything a run produced.
type Outcome struct {
	RunID     string
	Start     time.Time
	End       time.Time
	Result    *strategy.Result
	Benchmark *strategy.Curve
	Stats     []report.Stats
	ChartPath string
	CSVPath   string
}

// Runner executes backtests against a price source.
type Runner struct {
	source   feed.Source
	report   config.Report
	renderer report.Renderer
	out      io.Writer
	log      *slog.Logger
}

// NewRunner creates a Runner. The summary table is written to out when the
// report config enables it; a nil out discards it.
func NewRunner(src feed.Source, rep config.Report, out io.Writer, log *slog.Logger) (*Runner, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: nil price source", domain.ErrInvalidParameter)
	}
	renderer, err := report.NewRenderer(rep.ChartEngine)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runner{
		source:   src,
		report:   rep,
		renderer: renderer,
		out:      out,
		log:      log.With("component", "runner"),
	}, nil
}

// Run backtests bt.Symbol against bt.Benchmark and writes the configured
// artifacts. Parameters are validated before any fetch is made.
func (r *Runner) Run(ctx context.Context, bt config.Backtest) (*Outcome, error) {
	symbol := strings.ToUpper(strings.TrimSpace(bt.Symbol))
	benchmark := strings.ToUpper(strings.TrimSpace(bt.Benchmark))
	if symbol == "" || benchmark == "" {
		return nil, fmt.Errorf("%w: symbol and benchmark are required", domain.ErrInvalidParameter)
	}
	if bt.Window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidParameter, bt.Window)
	}
	start, end, err := bt.Range()
	if err != nil {
		return nil, err
	}

	out := &Outcome{RunID: report.NewRunID(), Start: start, End: end}
	log := r.log.With("run", out.RunID, "symbol", symbol, "benchmark", benchmark, "window", bt.Window)
	runStart := time.Now()

	log.Info("fetching prices", "source", r.source.Name(), "start", domain.DateKey(start), "end", dateOrLatest(end))
	asset, bench, err := feed.FetchPair(ctx, r.source, symbol, benchmark, start, end)
	if err != nil {
		return nil, err
	}
	log.Debug("fetched", "asset_rows", asset.Len(), "benchmark_rows", bench.Len())

	res, err := strategy.Backtest(asset, bt.Window)
	if err != nil {
		return nil, fmt.Errorf("backtesting %s: %w", symbol, err)
	}
	curve, err := strategy.AlignAndBuyHold(bench, res.Dates)
	if err != nil {
		return nil, err
	}
	out.Result = res
	out.Benchmark = curve
	out.Stats = report.Summarize(res, curve)

	if err := r.writeArtifacts(out, bt, symbol, benchmark); err != nil {
		return nil, err
	}

	log.Info("backtest complete",
		"periods", res.Len(),
		"strategy", report.FormatPct(out.Stats[0].TotalReturn),
		"buy_hold", report.FormatPct(out.Stats[1].TotalReturn),
		"benchmark", report.FormatPct(out.Stats[2].TotalReturn),
		"elapsed", time.Since(runStart).Round(time.Millisecond),
	)
	return out, nil
}

func (r *Runner) writeArtifacts(out *Outcome, bt config.Backtest, symbol, benchmark string) error {
	rep := r.report

	if rep.Summary {
		meta := report.Meta{
			RunID:     out.RunID,
			Symbol:    symbol,
			Benchmark: benchmark,
			Window:    bt.Window,
			Source:    r.source.Name(),
			Start:     out.Start,
			End:       out.End,
		}
		if err := report.WriteSummary(r.out, out.Stats, meta); err != nil {
			return fmt.Errorf("writing summary: %w", err)
		}
	}

	if rep.CSV {
		path := filepath.Join(rep.OutputDir, fmt.Sprintf("%s_sma%d.csv", symbol, bt.Window))
		if err := writeFile(path, func(w io.Writer) error {
			return report.WriteCSV(w, out.Result, out.Benchmark)
		}); err != nil {
			return fmt.Errorf("writing csv: %w", err)
		}
		out.CSVPath = path
		r.log.Info("wrote csv", "path", path)
	}

	if rep.ChartFile != "" {
		path := rep.ChartFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(rep.OutputDir, path)
		}
		data := report.NewChartData(out.Result, out.Benchmark, benchmark)
		if err := r.renderer.Render(data, path); err != nil {
			return fmt.Errorf("rendering chart: %w", err)
		}
		out.ChartPath = path
		r.log.Info("wrote chart", "path", path, "engine", r.renderer.Name())
	}
	return nil
}

// writeFile creates path (and its directory) and hands it to fn.
func writeFile(path string, fn func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}

func dateOrLatest(t time.Time) string {
	if t.IsZero() {
		return "latest"
	}
	return domain.DateKey(t)
}
