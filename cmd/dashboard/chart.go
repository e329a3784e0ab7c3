package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/app"
	"github.com/dgnsrekt/intraday-dashboard/internal/export"
	"github.com/dgnsrekt/intraday-dashboard/internal/render"
)

func chartCmd() *cobra.Command {
	var (
		output string
		theme  string
	)

	cmd := &cobra.Command{
		Use:   "chart [SYMBOL]",
		Short: "Render the price, VWAP and RSI chart as HTML",
		Example: `  dashboard chart SPY --output spy.html
  dashboard chart QQQ --theme dark`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := cfg.Symbol
			if len(args) == 1 {
				symbol = args[0]
			}

			a, err := app.New(cfg, logger)
			if err != nil {
				return err
			}
			snap, err := a.Service.Build(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			for _, w := range snap.Warnings {
				logger.Warn("snapshot warning", zap.String("kind", w.Kind), zap.String("message", w.Message))
			}

			opts := a.Chart
			if theme != "" {
				opts.Theme = theme
			}
			if output == "" {
				output = fmt.Sprintf("%s_chart.html", snap.Symbol)
			}
			size, err := export.WriteFile(output, func(w io.Writer) error {
				return render.WriteChart(w, snap, opts)
			})
			if err != nil {
				return err
			}

			logger.Info("chart written", zap.String("path", output), zap.Int64("bytes", size))
			fmt.Println(output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output HTML path (default SYMBOL_chart.html)")
	cmd.Flags().StringVar(&theme, "theme", "", "echarts theme (default server.chart_theme)")

	return cmd
}
