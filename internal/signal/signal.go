package signal

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
	"github.com/dgnsrekt/intraday-dashboard/internal/market"
)

const (
	// DefaultTrendThreshold is the absolute slope beyond which a trend is strong
	DefaultTrendThreshold = 0.2

	// BreakoutLookback is the minimum number of bars for DetectBreakout. The
	// reference high covers the BreakoutLookback-1 bars before the latest one.
	BreakoutLookback = 20
)

// Trend is the classified direction of the latest slope
type Trend string

const (
	StrongUptrend   Trend = "strong_uptrend"
	StrongDowntrend Trend = "strong_downtrend"
	Choppy          Trend = "choppy"
)

// Label returns the display label for the trend
func (t Trend) Label() string {
	switch t {
	case StrongUptrend:
		return "Strong Uptrend"
	case StrongDowntrend:
		return "Strong Downtrend"
	case Choppy:
		return "Choppy"
	default:
		return string(t)
	}
}

// ClassifyTrend labels the latest slope using DefaultTrendThreshold
func ClassifyTrend(latest indicator.Value) (Trend, error) {
	return ClassifyTrendThreshold(latest, DefaultTrendThreshold)
}

// ClassifyTrendThreshold labels the latest slope: above +threshold is a strong
// uptrend, below -threshold a strong downtrend, anything else choppy.
func ClassifyTrendThreshold(latest indicator.Value, threshold float64) (Trend, error) {
	if !latest.Valid {
		return "", fmt.Errorf("trend: slope undefined: %w", market.ErrInsufficientData)
	}
	switch {
	case latest.Float64 > threshold:
		return StrongUptrend, nil
	case latest.Float64 < -threshold:
		return StrongDowntrend, nil
	default:
		return Choppy, nil
	}
}

// Breakout is the result of DetectBreakout
type Breakout struct {
	Flag          bool    `json:"flag"`
	ReferenceHigh float64 `json:"reference_high"`
}

// DetectBreakout compares the latest close with the highest high of the 19
// bars before it. The comparison is strict.
func DetectBreakout(s market.Series) (Breakout, error) {
	if len(s) < BreakoutLookback {
		return Breakout{}, fmt.Errorf("breakout: need %d bars, have %d: %w",
			BreakoutLookback, len(s), market.ErrInsufficientData)
	}

	prior := s[:len(s)-1].Highs()
	maxes := talib.Max(prior, BreakoutLookback-1)
	ref := maxes[len(maxes)-1]

	last, _ := s.Last()
	return Breakout{
		Flag:          last.Close > ref,
		ReferenceHigh: ref,
	}, nil
}

// PivotLevels are the classic floor-trader reference levels for a session
type PivotLevels struct {
	PriorClose float64 `json:"prior_close"`
	DayHigh    float64 `json:"day_high"`
	DayLow     float64 `json:"day_low"`
	Pivot      float64 `json:"pivot"`
}

// ComputePivotLevels uses the first bar's close as the prior close. That is
// only the previous session's close when s holds exactly one session; use
// PivotLevelsFromPrior when the boundary is known.
func ComputePivotLevels(s market.Series) (PivotLevels, error) {
	if len(s) == 0 {
		return PivotLevels{}, fmt.Errorf("pivot: empty series: %w", market.ErrInsufficientData)
	}
	return PivotLevelsFromPrior(s, s[0].Close)
}

// PivotLevelsFromPrior computes pivots over s with an explicit prior close
func PivotLevelsFromPrior(s market.Series, priorClose float64) (PivotLevels, error) {
	if len(s) == 0 {
		return PivotLevels{}, fmt.Errorf("pivot: empty series: %w", market.ErrInsufficientData)
	}

	high, low := s[0].High, s[0].Low
	for _, b := range s[1:] {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}

	return PivotLevels{
		PriorClose: priorClose,
		DayHigh:    high,
		DayLow:     low,
		Pivot:      (high + low + priorClose) / 3,
	}, nil
}
