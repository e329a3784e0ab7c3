package indicator

import (
	"fmt"
	"strings"

	"github.com/markcheno/go-talib"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
)

const (
	DefaultRSIPeriod   = 14
	DefaultSlopeWindow = 10
)

// VWAPMode selects one of the two VWAP definitions. They are not
// interchangeable: TypicalPrice is bar-local, Cumulative is volume weighted.
type VWAPMode string

const (
	VWAPTypicalPrice VWAPMode = "typical"
	VWAPCumulative   VWAPMode = "cumulative"
)

// ParseVWAPMode parses a configured mode name
func ParseVWAPMode(s string) (VWAPMode, error) {
	switch VWAPMode(strings.ToLower(strings.TrimSpace(s))) {
	case VWAPTypicalPrice, "typical_price", "typical-price":
		return VWAPTypicalPrice, nil
	case VWAPCumulative:
		return VWAPCumulative, nil
	default:
		return "", fmt.Errorf("unknown vwap mode %q", s)
	}
}

// Params configures Compute. Zero values fall back to defaults.
type Params struct {
	RSIPeriod   int      `json:"rsi_period"`
	SlopeWindow int      `json:"slope_window"`
	VWAPMode    VWAPMode `json:"vwap_mode"`
}

func (p Params) withDefaults() Params {
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = DefaultRSIPeriod
	}
	if p.SlopeWindow < 2 {
		p.SlopeWindow = DefaultSlopeWindow
	}
	if p.VWAPMode == "" {
		p.VWAPMode = VWAPTypicalPrice
	}
	return p
}

// RSI computes the relative strength index using simple rolling means of
// gains and losses over period deltas. Points before index period, and windows
// where both means are zero, are Undefined.
func RSI(s market.Series, period int) []Value {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	out := undefinedColumn(len(s))
	if len(s) <= period {
		return out
	}

	gains := make([]float64, len(s))
	losses := make([]float64, len(s))
	for i := 1; i < len(s); i++ {
		delta := s[i].Close - s[i-1].Close
		switch {
		case delta > 0:
			gains[i] = delta
		case delta < 0:
			losses[i] = -delta
		}
	}

	// Sums are recomputed per window so an all-flat window is exactly 0/0.
	for i := period; i < len(s); i++ {
		var sumGain, sumLoss float64
		for k := i - period + 1; k <= i; k++ {
			sumGain += gains[k]
			sumLoss += losses[k]
		}
		meanGain := sumGain / float64(period)
		meanLoss := sumLoss / float64(period)

		switch {
		case meanLoss == 0 && meanGain == 0:
			continue
		case meanLoss == 0:
			out[i] = Defined(100)
		default:
			rs := meanGain / meanLoss
			out[i] = Defined(100 - 100/(1+rs))
		}
	}
	return out
}

// VWAP computes the volume weighted average price column in the given mode
func VWAP(s market.Series, mode VWAPMode) []Value {
	out := undefinedColumn(len(s))
	if len(s) == 0 {
		return out
	}

	typical := talib.TypPrice(s.Highs(), s.Lows(), s.Closes())
	switch mode {
	case VWAPCumulative:
		var cumPV, cumVol float64
		for i, b := range s {
			cumPV += b.Volume * typical[i]
			cumVol += b.Volume
			if cumVol == 0 {
				continue
			}
			out[i] = Defined(cumPV / cumVol)
		}
	default:
		for i, tp := range typical {
			out[i] = Defined(tp)
		}
	}
	return out
}

// Slope fits a least-squares line to the trailing window closes at every
// index, x = 0..window-1. Undefined for i < window-1.
func Slope(s market.Series, window int) []Value {
	if window < 2 {
		window = DefaultSlopeWindow
	}
	out := undefinedColumn(len(s))
	if len(s) < window {
		return out
	}

	slopes := talib.LinearRegSlope(s.Closes(), window)
	for i := window - 1; i < len(s); i++ {
		out[i] = Defined(slopes[i])
	}
	return out
}

// Frame is a bar series augmented with indicator columns. Every column has
// the same length as Series.
type Frame struct {
	Series market.Series `json:"bars"`
	RSI    []Value       `json:"rsi"`
	VWAP   []Value       `json:"vwap"`
	Slope  []Value       `json:"slope"`
	Params Params        `json:"params"`
}

// Compute builds the indicator frame for a normalized series
func Compute(s market.Series, p Params) Frame {
	p = p.withDefaults()
	return Frame{
		Series: s,
		RSI:    RSI(s, p.RSIPeriod),
		VWAP:   VWAP(s, p.VWAPMode),
		Slope:  Slope(s, p.SlopeWindow),
		Params: p,
	}
}

func (f Frame) Len() int { return len(f.Series) }

func (f Frame) LatestRSI() Value   { return Last(f.RSI) }
func (f Frame) LatestVWAP() Value  { return Last(f.VWAP) }
func (f Frame) LatestSlope() Value { return Last(f.Slope) }

// Tail returns a frame holding only the last n rows
func (f Frame) Tail(n int) Frame {
	if n <= 0 || n >= f.Len() {
		return f
	}
	start := f.Len() - n
	return Frame{
		Series: f.Series[start:],
		RSI:    f.RSI[start:],
		VWAP:   f.VWAP[start:],
		Slope:  f.Slope[start:],
		Params: f.Params,
	}
}
