package main

import (
	"net/http"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/app"
	"github.com/dgnsrekt/intraday-dashboard/internal/server"
)

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshots, charts and metrics over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port != "" {
				cfg.Server.Port = port
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			httpServer := &http.Server{
				Addr:         cfg.Server.Addr(),
				Handler:      a.Router(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}
			logger.Info("serving dashboard", zap.String("addr", httpServer.Addr), zap.String("symbol", cfg.Symbol))

			return server.Run(cmd.Context(), httpServer, cfg.Server.ShutdownTimeout, logger)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "listen port (default server.port)")

	return cmd
}
