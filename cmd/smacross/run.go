package main

import (
	"github.com/spf13/cobra"

	"smacross/internal/config"
	"smacross/internal/engine"
	"smacross/internal/feed"
	"smacross/internal/store"
)

type runFlags struct {
	symbol      string
	benchmark   string
	start       string
	end         string
	window      int
	source      string
	chartEngine string
	output      string
}

func runCmd() *cobra.Command {
	cmd, _ := newRunCmd()
	return cmd
}

func newRunCmd() (*cobra.Command, *runFlags) {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Backtest the SMA strategy and write the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			applyRunFlags(cmd, cfg, *f)
			if err := cfg.Validate(); err != nil {
				return err
			}

			src, err := feed.NewSource(cfg, store.NewParquetStore(cfg.Storage.DataDir), logger)
			if err != nil {
				return err
			}
			runner, err := engine.NewRunner(src, cfg.Report, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			_, err = runner.Run(cmd.Context(), cfg.Backtest)
			return err
		},
	}

	cmd.Flags().StringVarP(&f.symbol, "symbol", "s", "", "Asset ticker")
	cmd.Flags().StringVarP(&f.benchmark, "benchmark", "b", "", "Benchmark ticker")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (YYYY-MM-DD, exclusive)")
	cmd.Flags().IntVarP(&f.window, "window", "w", 0, "SMA window in periods")
	cmd.Flags().StringVar(&f.source, "source", "", "Price source: yahoo, alpaca, csv, parquet")
	cmd.Flags().StringVar(&f.chartEngine, "chart-engine", "", "Chart engine: gonum or echarts")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output directory")
	return cmd, f
}

// applyRunFlags overrides cfg with the flags the user actually set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config, f runFlags) {
	flags := cmd.Flags()
	if flags.Changed("symbol") {
		cfg.Backtest.Symbol = f.symbol
	}
	if flags.Changed("benchmark") {
		cfg.Backtest.Benchmark = f.benchmark
	}
	if flags.Changed("start") {
		cfg.Backtest.StartDate = f.start
	}
	if flags.Changed("end") {
		cfg.Backtest.EndDate = f.end
	}
	if flags.Changed("window") {
		cfg.Backtest.Window = f.window
	}
	if flags.Changed("source") {
		cfg.Feed.Source = f.source
	}
	if flags.Changed("chart-engine") {
		cfg.Report.ChartEngine = f.chartEngine
	}
	if flags.Changed("output") {
		cfg.Report.OutputDir = f.output
	}
}
