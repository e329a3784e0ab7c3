package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/app"
	"github.com/dgnsrekt/intraday-dashboard/internal/config"
	"github.com/dgnsrekt/intraday-dashboard/internal/server"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	// Load config
	cfg, err := config.LoadServerConfig()
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return 1
	}

	logger.Info("configuration loaded",
		zap.String("port", cfg.Server.Port),
		zap.String("symbol", cfg.Symbol),
		zap.String("source", cfg.Quotes.Source),
		zap.Bool("options", cfg.Options.Enabled),
		zap.String("sessionMode", cfg.Analysis.SessionMode),
		zap.Duration("barsTTL", cfg.Cache.BarsTTL),
		zap.Duration("optionsTTL", cfg.Cache.OptionsTTL),
	)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to wire dashboard", zap.Error(err))
		return 1
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Wait for interrupt
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctx, httpServer, cfg.Server.ShutdownTimeout, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		return 1
	}
	return 0
}
