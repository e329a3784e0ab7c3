// Package app wires configured providers, caches and collaborators into the
// dashboard service shared by the CLI and the HTTP server.
package app

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/api"
	"github.com/dgnsrekt/intraday-dashboard/internal/batch"
	"github.com/dgnsrekt/intraday-dashboard/internal/config"
	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
	"github.com/dgnsrekt/intraday-dashboard/internal/data"
	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
	"github.com/dgnsrekt/intraday-dashboard/internal/metrics"
	"github.com/dgnsrekt/intraday-dashboard/internal/notify"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
	"github.com/dgnsrekt/intraday-dashboard/internal/render"
	"github.com/dgnsrekt/intraday-dashboard/internal/server"
	"github.com/dgnsrekt/intraday-dashboard/internal/session"
)

type App struct {
	Config   *config.Config
	Service  *dashboard.Service
	Metrics  *metrics.Recorder
	Caches   []server.CacheResetter
	Splitter *session.Splitter
	Location *time.Location
	Notifier notify.Notifier
	Chart    render.ChartOptions
	logger   *zap.Logger
}

// New builds the application from a validated config
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	recorder := metrics.New()

	splitter, err := session.NewSplitter(session.NYSE(), cfg.Analysis.Timezone)
	if err != nil {
		return nil, fmt.Errorf("session calendar: %w", err)
	}

	bars, opts, err := sources(cfg, recorder, logger)
	if err != nil {
		return nil, err
	}

	cachedBars := data.NewCachedBars(bars, cfg.Cache.BarsTTL, logger)
	a := &App{
		Config:   cfg,
		Metrics:  recorder,
		Caches:   []server.CacheResetter{cachedBars},
		Splitter: splitter,
		Location: splitter.Location(),
		Chart: render.ChartOptions{
			Theme:    cfg.Server.ChartTheme,
			Location: splitter.Location(),
		},
		logger: logger,
	}

	var optionsSource api.OptionsSource
	if cfg.Options.Enabled && opts != nil {
		cachedOpts := data.NewCachedOptions(opts, cfg.Cache.OptionsTTL, logger)
		a.Caches = append(a.Caches, cachedOpts)
		optionsSource = cachedOpts
	}

	settings, err := Settings(cfg)
	if err != nil {
		return nil, err
	}
	a.Service = dashboard.NewService(cachedBars, optionsSource, splitter, settings, recorder, logger)

	notifyCfg := &notify.Config{
		Enabled:  cfg.Notify.Enabled,
		Server:   cfg.Notify.Server,
		Topic:    cfg.Notify.Topic,
		Priority: cfg.Notify.Priority,
		Tags:     cfg.Notify.Tags,
		Token:    cfg.Notify.Token,
	}
	if err := notifyCfg.Validate(); err != nil {
		return nil, err
	}
	a.Notifier = notify.New(notifyCfg, a.Location, logger)

	logger.Info("dashboard wired",
		zap.String("source", cfg.Quotes.Source),
		zap.Bool("options", optionsSource != nil),
		zap.String("sessionMode", settings.SessionMode),
		zap.String("vwapMode", string(settings.Indicators.VWAPMode)),
		zap.String("timezone", cfg.Analysis.Timezone),
	)
	return a, nil
}

// Settings maps the analysis and options sections onto service settings
func Settings(cfg *config.Config) (dashboard.Settings, error) {
	vwap, err := indicator.ParseVWAPMode(cfg.Analysis.VWAPMode)
	if err != nil {
		return dashboard.Settings{}, err
	}
	metric, err := options.ParseMetric(cfg.Options.Metric)
	if err != nil {
		return dashboard.Settings{}, err
	}
	return dashboard.Settings{
		Indicators: indicator.Params{
			RSIPeriod:   cfg.Analysis.RSIPeriod,
			SlopeWindow: cfg.Analysis.SlopeWindow,
			VWAPMode:    vwap,
		},
		TrendThreshold: cfg.Analysis.TrendThreshold,
		SessionMode:    cfg.Analysis.SessionMode,
		OptionsEnabled: cfg.Options.Enabled,
		OptionsMetric:  metric,
	}, nil
}

// sources returns the bar source for quotes.source and the options source.
// The file source serves both; otherwise options come from Polygon when a
// key is configured.
func sources(cfg *config.Config, obs api.Observer, logger *zap.Logger) (data.BarFetcher, data.OptionsFetcher, error) {
	newClient := func(baseURL, key string) *api.HTTPClient {
		c := api.NewClient(baseURL, key, cfg.HTTP.RatePerSecond, cfg.HTTP.Timeout, cfg.HTTP.RetryDelay, cfg.HTTP.RetryCount, logger)
		c.SetObserver(obs)
		return c
	}
	var polygon *api.Polygon
	if pc := cfg.Providers.Polygon; pc.APIKey != "" {
		polygon = api.NewPolygon(newClient(pc.BaseURL, pc.APIKey), pc.Multiplier, pc.Timespan, pc.Lookback)
	}

	switch cfg.Quotes.Source {
	case config.SourceFile:
		fs, err := data.NewFileSource(cfg.Providers.File.Directory, logger)
		if err != nil {
			return nil, nil, err
		}
		return fs, fs, nil
	case config.SourcePolygon:
		if polygon == nil {
			return nil, nil, fmt.Errorf("polygon source requires providers.polygon.api_key")
		}
		return polygon, polygon, nil
	case config.SourceTwelveData:
		td := cfg.Providers.TwelveData
		bars := api.NewTwelveData(newClient(td.BaseURL, td.APIKey), td.Interval, td.OutputSize)
		if polygon == nil {
			return bars, nil, nil
		}
		return bars, polygon, nil
	default:
		return nil, nil, fmt.Errorf("unknown quotes source %q", cfg.Quotes.Source)
	}
}

// Router builds the HTTP handler with metrics mounted
func (a *App) Router() http.Handler {
	srv := server.NewServer(a.Service, a.Chart, a.logger, a.Caches...)
	return server.NewRouter(srv, a.Metrics.Handler(), a.Config.Server.CORSOrigins, a.logger)
}

// Runner builds a batch runner over the service
func (a *App) Runner(handlers ...batch.Handler) *batch.Runner {
	return batch.NewRunner(a.Service, a.Config.Batch.Workers, a.logger, handlers...)
}
