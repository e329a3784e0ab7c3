package market

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Bar is a single validated OHLCV bar
type Bar struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// RawBar is a bar as delivered by a quote provider. Fields may hold numbers,
// numeric strings, json.Number or (for Timestamp) a time.Time.
type RawBar struct {
	Timestamp any `json:"timestamp"`
	Open      any `json:"open"`
	High      any `json:"high"`
	Low       any `json:"low"`
	Close     any `json:"close"`
	Volume    any `json:"volume"`
}

// Series is a bar sequence strictly increasing by timestamp
type Series []Bar

// unix values above this are treated as milliseconds
const unixMillisThreshold = 1e12

// Normalize validates raw bars and returns them as a Series, interpreting
// timestamps without a zone as UTC
func Normalize(raw []RawBar) (Series, error) {
	return NormalizeIn(raw, time.UTC)
}

// NormalizeIn validates raw bars, interpreting zone-less timestamps in loc.
// Bars are stable-sorted by timestamp; when two bars share a timestamp the later
// one in input order wins.
func NormalizeIn(raw []RawBar, loc *time.Location) (Series, error) {
	if len(raw) == 0 {
		return Series{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	bars := make([]Bar, 0, len(raw))
	for i, r := range raw {
		b, err := parseBar(r, loc)
		if err != nil {
			return nil, fmt.Errorf("bar %d: %w", i, err)
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})

	out := bars[:1]
	for _, b := range bars[1:] {
		last := &out[len(out)-1]
		if b.Timestamp.Equal(last.Timestamp) {
			*last = b
			continue
		}
		out = append(out, b)
	}
	return Series(out), nil
}

func parseBar(r RawBar, loc *time.Location) (Bar, error) {
	ts, err := parseTimestamp(r.Timestamp, loc)
	if err != nil {
		return Bar{}, fmt.Errorf("timestamp: %w", err)
	}

	var b Bar
	b.Timestamp = ts
	fields := []struct {
		name string
		in   any
		out  *float64
	}{
		{"open", r.Open, &b.Open},
		{"high", r.High, &b.High},
		{"low", r.Low, &b.Low},
		{"close", r.Close, &b.Close},
		{"volume", r.Volume, &b.Volume},
	}
	for _, f := range fields {
		v, err := parseNumber(f.in)
		if err != nil {
			return Bar{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.out = v
	}
	return b, nil
}

func parseNumber(v any) (float64, error) {
	switch t := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: missing value", ErrInvalidInput)
	case bool:
		return 0, fmt.Errorf("%w: boolean %v is not numeric", ErrInvalidInput, t)
	case string:
		if strings.TrimSpace(t) == "" {
			return 0, fmt.Errorf("%w: missing value", ErrInvalidInput)
		}
		v = strings.TrimSpace(t)
	case json.Number:
		if t == "" {
			return 0, fmt.Errorf("%w: missing value", ErrInvalidInput)
		}
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: non-finite value %v", ErrInvalidInput, f)
	}
	if f < 0 {
		return 0, fmt.Errorf("%w: negative value %v", ErrInvalidInput, f)
	}
	return f, nil
}

func parseTimestamp(v any, loc *time.Location) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("%w: missing value", ErrInvalidInput)
	case time.Time:
		if t.IsZero() {
			return time.Time{}, fmt.Errorf("%w: zero time", ErrInvalidInput)
		}
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, fmt.Errorf("%w: missing value", ErrInvalidInput)
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return fromUnix(n), nil
		}
		ts, err := cast.ToTimeInDefaultLocationE(s, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return ts, nil
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return fromUnix(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return parseTimestamp(f, loc)
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return time.Time{}, fmt.Errorf("%w: bad unix time %v", ErrInvalidInput, t)
		}
		return fromUnix(int64(t)), nil
	case int:
		return fromUnix(int64(t)), nil
	case int64:
		return fromUnix(t), nil
	default:
		ts, err := cast.ToTimeInDefaultLocationE(v, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return ts, nil
	}
}

func fromUnix(n int64) time.Time {
	if n > unixMillisThreshold {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// Len returns the number of bars
func (s Series) Len() int { return len(s) }

// Last returns the most recent bar
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

func (s Series) column(get func(Bar) float64) []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = get(b)
	}
	return out
}

func (s Series) Opens() []float64   { return s.column(func(b Bar) float64 { return b.Open }) }
func (s Series) Highs() []float64   { return s.column(func(b Bar) float64 { return b.High }) }
func (s Series) Lows() []float64    { return s.column(func(b Bar) float64 { return b.Low }) }
func (s Series) Closes() []float64  { return s.column(func(b Bar) float64 { return b.Close }) }
func (s Series) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }

// Raw converts the series back to raw bars, so that Normalize(s.Raw()) == s
func (s Series) Raw() []RawBar {
	out := make([]RawBar, len(s))
	for i, b := range s {
		out[i] = RawBar{
			Timestamp: b.Timestamp,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		}
	}
	return out
}

// Between returns the bars with from <= timestamp < to
func (s Series) Between(from, to time.Time) Series {
	lo := sort.Search(len(s), func(i int) bool { return !s[i].Timestamp.Before(from) })
	hi := sort.Search(len(s), func(i int) bool { return !s[i].Timestamp.Before(to) })
	if lo >= hi {
		return Series{}
	}
	return s[lo:hi]
}
