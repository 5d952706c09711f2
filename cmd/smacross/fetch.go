package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smacross/internal/config"
	"smacross/internal/domain"
	"smacross/internal/engine"
	"smacross/internal/feed"
	"smacross/internal/store"
)

type fetchFlags struct {
	source  string
	start   string
	end     string
	workers int
	all     bool
}

func fetchCmd() *cobra.Command {
	cmd, _ := newFetchCmd()
	return cmd
}

func newFetchCmd() (*cobra.Command, *fetchFlags) {
	f := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch [SYMBOL...]",
		Short: "Mirror daily bars into the local Parquet store",
		Long: `fetch downloads daily bars from a remote source and merges them into
<data_dir>/daily/<SYMBOL>/<YYYY>.parquet so later runs can use --source parquet.
With no symbols it fetches the configured asset and benchmark; with --all it
refreshes every symbol already in the store.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.all && len(args) > 0 {
				return fmt.Errorf("%w: --all takes no symbols", domain.ErrInvalidParameter)
			}
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			applyFetchFlags(cmd, cfg, *f)
			if cfg.Feed.Source == config.SourceParquet {
				return fmt.Errorf("%w: fetch needs a remote source, not %q", domain.ErrInvalidParameter, cfg.Feed.Source)
			}
			from, to, err := cfg.Backtest.Range()
			if err != nil {
				return err
			}

			bars := store.NewParquetStore(cfg.Storage.DataDir)
			src, err := feed.NewSource(cfg, bars, logger)
			if err != nil {
				return err
			}
			fetcher, err := engine.NewFetcher(src, bars, f.workers, logger)
			if err != nil {
				return err
			}

			t0 := time.Now()
			var n int
			if f.all {
				n, err = fetcher.Refresh(cmd.Context(), from, to)
			} else {
				symbols := args
				if len(symbols) == 0 {
					symbols = []string{cfg.Backtest.Symbol, cfg.Backtest.Benchmark}
				}
				n, err = fetcher.Run(cmd.Context(), symbols, from, to)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d symbols into %s in %s\n",
				n, cfg.Storage.DataDir, time.Since(t0).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&f.source, "source", "", "Remote source: yahoo, alpaca, csv")
	cmd.Flags().StringVar(&f.start, "start", "", "Start date (YYYY-MM-DD, inclusive)")
	cmd.Flags().StringVar(&f.end, "end", "", "End date (YYYY-MM-DD, exclusive); empty for latest")
	cmd.Flags().IntVar(&f.workers, "workers", 4, "Concurrent symbol fetches")
	cmd.Flags().BoolVar(&f.all, "all", false, "Refresh every symbol already in the store")
	return cmd, f
}

// applyFetchFlags overrides cfg with the fetch flags the user actually set.
func applyFetchFlags(cmd *cobra.Command, cfg *config.Config, f fetchFlags) {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Feed.Source = f.source
	}
	if flags.Changed("start") {
		cfg.Backtest.StartDate = f.start
	}
	if flags.Changed("end") {
		cfg.Backtest.EndDate = f.end
	}
}
