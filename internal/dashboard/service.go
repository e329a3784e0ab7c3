package dashboard

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/intraday-dashboard/internal/api"
	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
	"github.com/dgnsrekt/intraday-dashboard/internal/session"
	"github.com/dgnsrekt/intraday-dashboard/internal/summary"
)

// Session modes decide where the prior close comes from
const (
	SessionModeWindow  = "window"
	SessionModeSession = "session"
)

// Warning kinds
const (
	WarnNoBars             = "no_bars"
	WarnInsufficientData   = "insufficient_data"
	WarnNoPriorSession     = "no_prior_session"
	WarnOptionsUnavailable = "options_unavailable"
	WarnNoOptionsData      = "no_options_data"
)

// ErrOptionsDisabled is returned when options are requested but not configured
var ErrOptionsDisabled = errors.New("options snapshot disabled")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.^\-]{1,12}$`)

// Warning is a non-fatal condition shown alongside a snapshot
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Snapshot is everything the presentation layer needs for one symbol
type Snapshot struct {
	ID          uuid.UUID              `json:"id"`
	Symbol      string                 `json:"symbol"`
	GeneratedAt time.Time              `json:"generated_at"`
	Summary     *summary.MarketSummary `json:"summary,omitempty"`
	Session     *session.Session       `json:"session,omitempty"`
	Frame       indicator.Frame        `json:"frame"`
	Options     options.Matrix         `json:"options"`
	Totals      options.Totals         `json:"options_totals"`
	Warnings    []Warning              `json:"warnings"`
}

// HasWarning reports whether a warning of kind is present
func (s *Snapshot) HasWarning(kind string) bool {
	for _, w := range s.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

// Metrics receives service level measurements
type Metrics interface {
	RecordSnapshot(result string, elapsed time.Duration)
	RecordWarning(kind string)
	RecordLastClose(symbol string, price float64)
	RecordDroppedOptions(n int)
}

type noopMetrics struct{}

func (noopMetrics) RecordSnapshot(string, time.Duration) {}
func (noopMetrics) RecordWarning(string)                 {}
func (noopMetrics) RecordLastClose(string, float64)      {}
func (noopMetrics) RecordDroppedOptions(int)             {}

// Settings configures the analysis run by the service
type Settings struct {
	Indicators     indicator.Params
	TrendThreshold float64
	SessionMode    string
	OptionsEnabled bool
	OptionsMetric  options.Metric
}

// Service fetches data for a symbol and runs the analysis pipeline
type Service struct {
	bars     api.BarSource
	options  api.OptionsSource
	splitter *session.Splitter
	settings Settings
	metrics  Metrics
	logger   *zap.Logger
}

// NewService wires the service. optionsSource may be nil when options are
// disabled; metrics may be nil.
func NewService(bars api.BarSource, optionsSource api.OptionsSource, splitter *session.Splitter, settings Settings, metrics Metrics, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if settings.SessionMode == "" {
		settings.SessionMode = SessionModeWindow
	}
	if optionsSource == nil {
		settings.OptionsEnabled = false
	}
	return &Service{
		bars:     bars,
		options:  optionsSource,
		splitter: splitter,
		settings: settings,
		metrics:  metrics,
		logger:   logger,
	}
}

// NormalizeSymbol upper-cases and validates a ticker
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: symbol %q", market.ErrInvalidInput, symbol)
	}
	return s, nil
}

// Build fetches bars and the options snapshot concurrently and assembles a
// snapshot. A bar fetch failure or malformed bar is an error; missing
// history and options problems become warnings.
func (s *Service) Build(ctx context.Context, symbol string) (*Snapshot, error) {
	start := time.Now()
	snap, err := s.build(ctx, symbol)
	if err != nil {
		s.metrics.RecordSnapshot("error", time.Since(start))
		s.logger.Warn("snapshot failed", zap.String("symbol", symbol), zap.Error(err))
		return nil, err
	}

	s.metrics.RecordSnapshot("ok", time.Since(start))
	for _, w := range snap.Warnings {
		s.metrics.RecordWarning(w.Kind)
	}
	s.logger.Info("snapshot built",
		zap.String("symbol", snap.Symbol),
		zap.String("id", snap.ID.String()),
		zap.Int("bars", snap.Frame.Len()),
		zap.Int("strikes", len(snap.Options.Rows)),
		zap.Int("warnings", len(snap.Warnings)),
		zap.Duration("elapsed", time.Since(start)))
	return snap, nil
}

func (s *Service) build(ctx context.Context, symbol string) (*Snapshot, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	var (
		raw     []market.RawBar
		entries []options.SnapshotEntry
		optErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		raw, err = s.bars.FetchBars(gctx, sym)
		if err != nil {
			return fmt.Errorf("fetching bars for %s: %w", sym, err)
		}
		return nil
	})
	if s.settings.OptionsEnabled {
		g.Go(func() error {
			// options failures never cancel the bar fetch
			entries, optErr = s.options.FetchOptionsSnapshot(gctx, sym)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:          uuid.New(),
		Symbol:      sym,
		GeneratedAt: time.Now().UTC(),
		Warnings:    []Warning{},
	}

	var loc *time.Location
	if s.splitter != nil {
		loc = s.splitter.Location()
	}
	series, err := market.NormalizeIn(raw, loc)
	if err != nil {
		return nil, fmt.Errorf("normalizing bars for %s: %w", sym, err)
	}

	snap.Frame = indicator.Compute(series, s.settings.Indicators)
	if last, ok := series.Last(); ok {
		s.metrics.RecordLastClose(sym, last.Close)
	}

	if len(series) == 0 {
		snap.warn(WarnNoBars, "intraday data unavailable")
	} else if err := s.summarize(snap); err != nil {
		return nil, err
	}

	s.aggregateOptions(snap, entries, optErr)
	return snap, nil
}

func (s *Service) summarize(snap *Snapshot) error {
	pivotBars := snap.Frame.Series
	var opts []summary.Option
	if s.settings.TrendThreshold > 0 {
		opts = append(opts, summary.WithTrendThreshold(s.settings.TrendThreshold))
	}

	if s.settings.SessionMode == SessionModeSession && s.splitter != nil {
		sess := s.splitter.Latest(snap.Frame.Series)
		snap.Session = &sess
		if len(sess.Bars) > 0 {
			pivotBars = sess.Bars
		}
		if sess.HasPriorClose {
			opts = append(opts, summary.WithPriorClose(sess.PriorClose))
		} else {
			snap.warn(WarnNoPriorSession, "no prior session in window, prior close is the first bar's close")
		}
	}

	sum, err := summary.Assemble(snap.Frame, pivotBars, opts...)
	if errors.Is(err, market.ErrInsufficientData) {
		snap.warn(WarnInsufficientData, fmt.Sprintf("not enough bars for signals (%d): %v", snap.Frame.Len(), err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("summarizing %s: %w", snap.Symbol, err)
	}
	snap.Summary = &sum
	return nil
}

func (s *Service) aggregateOptions(snap *Snapshot, entries []options.SnapshotEntry, fetchErr error) {
	metric := s.settings.OptionsMetric
	if metric == "" {
		metric = options.Volume
	}
	snap.Options = options.Matrix{Metric: metric, Rows: []options.Row{}}

	if !s.settings.OptionsEnabled {
		return
	}
	if fetchErr != nil {
		s.logger.Warn("options snapshot unavailable", zap.String("symbol", snap.Symbol), zap.Error(fetchErr))
		snap.warn(WarnOptionsUnavailable, fmt.Sprintf("options snapshot unavailable: %v", fetchErr))
		return
	}

	contracts, dropped := options.Contracts(entries)
	if dropped > 0 {
		s.metrics.RecordDroppedOptions(dropped)
		s.logger.Debug("dropped malformed option entries", zap.String("symbol", snap.Symbol), zap.Int("dropped", dropped))
	}
	snap.Options = options.AggregateContracts(contracts, metric)
	snap.Totals = snap.Options.Totals()
	if snap.Options.Empty() {
		snap.warn(WarnNoOptionsData, "no options data available")
	}
}

// OptionsMatrix fetches the options snapshot alone and aggregates it by
// metric. Unlike Build, a fetch failure is returned as an error.
func (s *Service) OptionsMatrix(ctx context.Context, symbol string, metric options.Metric) (options.Matrix, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return options.Matrix{}, err
	}
	if !s.settings.OptionsEnabled {
		return options.Matrix{}, ErrOptionsDisabled
	}
	if metric == "" {
		metric = s.settings.OptionsMetric
	}
	entries, err := s.options.FetchOptionsSnapshot(ctx, sym)
	if err != nil {
		return options.Matrix{}, fmt.Errorf("fetching options for %s: %w", sym, err)
	}
	contracts, dropped := options.Contracts(entries)
	if dropped > 0 {
		s.metrics.RecordDroppedOptions(dropped)
	}
	return options.AggregateContracts(contracts, metric), nil
}

func (s *Snapshot) warn(kind, msg string) {
	s.Warnings = append(s.Warnings, Warning{Kind: kind, Message: msg})
}
