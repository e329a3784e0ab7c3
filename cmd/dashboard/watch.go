package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/app"
	"github.com/dgnsrekt/intraday-dashboard/internal/batch"
	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
	"github.com/dgnsrekt/intraday-dashboard/internal/export"
)

func watchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh snapshots on an interval and alert on breakouts",
		Long: `Rebuild snapshots for watch.symbols every watch.interval. With
watch.market_hours_only the loop idles outside regular NYSE hours. Each
symbol's first breakout of the day is sent through ntfy; when
watch.output_dir is set the latest snapshot and chart are exported.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if interval > 0 {
				cfg.Watch.Interval = interval
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			scheduler := NewScheduler(a.Splitter)
			symbols := cfg.WatchSymbols()

			logger.Info("watch started",
				zap.Strings("symbols", symbols),
				zap.Duration("interval", cfg.Watch.Interval),
				zap.Bool("marketHoursOnly", cfg.Watch.MarketHoursOnly),
			)

			tick := func() {
				if cfg.Watch.MarketHoursOnly && !scheduler.IsMarketOpen() {
					logger.Debug("market closed", zap.String("date", scheduler.TodayDate()))
					return
				}
				runWatch(ctx, a, scheduler, symbols)
			}

			tick()
			ticker := time.NewTicker(cfg.Watch.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					tick()
				case <-ctx.Done():
					logger.Info("context cancelled, shutting down")
					return nil
				}
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "refresh interval (default watch.interval)")

	return cmd
}

func runWatch(ctx context.Context, a *app.App, scheduler *Scheduler, symbols []string) {
	run := scheduler.TodayDate()
	handlers := []batch.Handler{
		func(ctx context.Context, snap *dashboard.Snapshot) error {
			if snap.Summary == nil || !snap.Summary.Breakout || !scheduler.FirstBreakout(snap.Symbol) {
				return nil
			}
			if err := a.Notifier.SendBreakout(ctx, snap); err != nil {
				logger.Warn("breakout notification failed", zap.String("symbol", snap.Symbol), zap.Error(err))
			}
			return nil
		},
	}

	var exp *export.Manager
	if cfg.Watch.OutputDir != "" {
		exp = export.NewManager(cfg.Watch.OutputDir)
		handlers = append(handlers, exportSnapshot(exp, run, a.Chart, false))
	}

	result, err := a.Runner(handlers...).Execute(ctx, symbols)
	if err != nil {
		logger.Warn("watch run interrupted", zap.Error(err))
		return
	}
	if exp != nil {
		commitExport(exp, run, result)
	}
	_ = reportResult(result)
}
