package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/app"
	"github.com/dgnsrekt/intraday-dashboard/internal/batch"
	"github.com/dgnsrekt/intraday-dashboard/internal/export"
	"github.com/dgnsrekt/intraday-dashboard/internal/render"
)

func snapshotCmd() *cobra.Command {
	var (
		asJSON    bool
		alerts    bool
		compress  bool
		metric    string
		rows      int
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "snapshot [SYMBOL...]",
		Short: "Build and print dashboard snapshots",
		Long: `Fetch intraday bars (and the options snapshot when enabled), compute
indicators and signals, and print the market summary, options matrix and the
latest indicator rows.

Without arguments the symbols from watch.symbols (or symbol) are used.

Examples:
  # Summary tables for the configured symbol
  dashboard snapshot

  # Several symbols as JSON
  dashboard snapshot SPY QQQ IWM --json

  # Open interest matrix, export artifacts and send breakout alerts
  dashboard snapshot SPY --metric open_interest --output-dir out --notify`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			symbols := args
			if len(symbols) == 0 {
				symbols = cfg.WatchSymbols()
			}
			if metric != "" {
				cfg.Options.Metric = metric
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			run := time.Now().In(a.Location).Format("2006-01-02")
			var handlers []batch.Handler
			var exp *export.Manager
			if outputDir != "" {
				exp = export.NewManager(outputDir)
				handlers = append(handlers, exportSnapshot(exp, run, a.Chart, compress))
			}
			if alerts {
				handlers = append(handlers, alertBreakout(a))
			}

			start := time.Now()
			result, err := a.Runner(handlers...).Execute(ctx, symbols)
			if err != nil {
				return err
			}

			if exp != nil {
				commitExport(exp, run, result)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if len(symbols) == 1 && len(result.Snapshots) == 1 {
					err = enc.Encode(result.Snapshots[0])
				} else {
					err = enc.Encode(result.Snapshots)
				}
				if err != nil {
					return err
				}
			} else {
				for _, snap := range result.Snapshots {
					render.SummaryTable(os.Stdout, snap, a.Location)
					if cfg.Options.Enabled {
						render.OptionsTable(os.Stdout, snap.Symbol, snap.Options)
					}
					if rows > 0 {
						render.FrameTable(os.Stdout, snap.Frame, rows, a.Location)
					}
					fmt.Println()
				}
			}

			if alerts && len(symbols) > 1 {
				if err := a.Notifier.SendBatchSummary(ctx, result, time.Since(start)); err != nil {
					logger.Warn("batch notification failed", zap.Error(err))
				}
			}

			return reportResult(result)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print snapshots as JSON")
	cmd.Flags().BoolVar(&alerts, "notify", false, "send breakout alerts through ntfy")
	cmd.Flags().StringVar(&metric, "metric", "", "options metric: volume or open_interest")
	cmd.Flags().IntVar(&rows, "rows", 5, "indicator rows to print (0 hides the table)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "write snapshot JSON and chart HTML under this directory")
	cmd.Flags().BoolVar(&compress, "compress", false, "zstd compress exported snapshot JSON")

	return cmd
}
