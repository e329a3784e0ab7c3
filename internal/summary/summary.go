package summary

import (
	"fmt"
	"time"

	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/signal"
)

// MarketSummary is the headline record for one symbol at one point in time
type MarketSummary struct {
	LastTimestamp time.Time    `json:"last_timestamp"`
	PriorClose    float64      `json:"prior_close"`
	DayHigh       float64      `json:"day_high"`
	DayLow        float64      `json:"day_low"`
	Pivot         float64      `json:"pivot"`
	Trend         signal.Trend `json:"trend"`
	Breakout      bool         `json:"breakout"`
	BreakoutLevel float64      `json:"breakout_level"`
}

// BreakoutText is the sidebar line for the breakout state
func (m MarketSummary) BreakoutText() string {
	if m.Breakout {
		return fmt.Sprintf("Breakout > %.2f", m.BreakoutLevel)
	}
	return fmt.Sprintf("Watching > %.2f", m.BreakoutLevel)
}

type options struct {
	priorClose     *float64
	trendThreshold float64
}

// Option customizes Assemble
type Option func(*options)

// WithPriorClose supplies the previous session's close instead of taking the
// first bar's close
func WithPriorClose(v float64) Option {
	return func(o *options) { o.priorClose = &v }
}

// WithTrendThreshold overrides signal.DefaultTrendThreshold
func WithTrendThreshold(t float64) Option {
	return func(o *options) {
		if t > 0 {
			o.trendThreshold = t
		}
	}
}

// Assemble builds a MarketSummary. Trend and breakout come from the frame,
// pivot levels from session. Either every field is computed or an error is
// returned.
func Assemble(frame indicator.Frame, session market.Series, opts ...Option) (MarketSummary, error) {
	o := options{trendThreshold: signal.DefaultTrendThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	trend, err := signal.ClassifyTrendThreshold(frame.LatestSlope(), o.trendThreshold)
	if err != nil {
		return MarketSummary{}, err
	}

	breakout, err := signal.DetectBreakout(frame.Series)
	if err != nil {
		return MarketSummary{}, err
	}

	var pivots signal.PivotLevels
	if o.priorClose != nil {
		pivots, err = signal.PivotLevelsFromPrior(session, *o.priorClose)
	} else {
		pivots, err = signal.ComputePivotLevels(session)
	}
	if err != nil {
		return MarketSummary{}, err
	}

	last, _ := frame.Series.Last()
	return MarketSummary{
		LastTimestamp: last.Timestamp,
		PriorClose:    pivots.PriorClose,
		DayHigh:       pivots.DayHigh,
		DayLow:        pivots.DayLow,
		Pivot:         pivots.Pivot,
		Trend:         trend,
		Breakout:      breakout.Flag,
		BreakoutLevel: breakout.ReferenceHigh,
	}, nil
}
