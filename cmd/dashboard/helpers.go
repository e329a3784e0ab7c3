package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/app"
	"github.com/dgnsrekt/intraday-dashboard/internal/batch"
	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
	"github.com/dgnsrekt/intraday-dashboard/internal/export"
	"github.com/dgnsrekt/intraday-dashboard/internal/render"
)

// exportSnapshot stages {SYMBOL}/snapshot.json[.zst] and {SYMBOL}/chart.html
func exportSnapshot(exp *export.Manager, run string, chart render.ChartOptions, compress bool) batch.Handler {
	return func(ctx context.Context, snap *dashboard.Snapshot) error {
		name := "snapshot.json"
		if compress {
			name += ".zst"
		}
		if _, err := exp.StageJSON(run, filepath.Join(snap.Symbol, name), snap); err != nil {
			return fmt.Errorf("staging snapshot: %w", err)
		}
		_, err := exp.Stage(run, filepath.Join(snap.Symbol, "chart.html"), func(w io.Writer) error {
			return render.WriteChart(w, snap, chart)
		})
		if err != nil {
			return fmt.Errorf("staging chart: %w", err)
		}
		return nil
	}
}

// alertBreakout sends a breakout alert; delivery failures are logged only
func alertBreakout(a *app.App) batch.Handler {
	return func(ctx context.Context, snap *dashboard.Snapshot) error {
		if err := a.Notifier.SendBreakout(ctx, snap); err != nil {
			logger.Warn("breakout notification failed", zap.String("symbol", snap.Symbol), zap.Error(err))
		}
		return nil
	}
}

func commitExport(exp *export.Manager, run string, result *batch.Result) {
	if result.Success == 0 {
		if err := exp.Cleanup(run); err != nil {
			logger.Warn("failed to cleanup staging", zap.String("run", run), zap.Error(err))
		}
		return
	}
	moved, err := exp.Commit(run)
	if err != nil {
		logger.Warn("failed to commit export", zap.String("run", run), zap.Error(err))
		return
	}
	logger.Info("export committed",
		zap.String("dir", filepath.Join(exp.FinalDir(), run)),
		zap.Int("files", moved),
	)
}

func reportResult(result *batch.Result) error {
	logger.Info("snapshots complete",
		zap.Int("total", result.Total),
		zap.Int("success", result.Success),
		zap.Int("not_found", result.NotFound),
		zap.Int("failed", result.Failed),
		zap.Int("warnings", result.Warnings),
		zap.Strings("breakouts", result.Breakouts),
	)

	if result.Failed > 0 {
		for _, e := range result.Errors {
			logger.Error("snapshot error", zap.String("error", e))
		}
		return fmt.Errorf("%d snapshots failed", result.Failed)
	}
	if result.Success == 0 && result.NotFound > 0 {
		return fmt.Errorf("no data found for %d symbols", result.NotFound)
	}
	return nil
}
