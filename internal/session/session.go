package session

import (
	"fmt"
	"time"

	"github.com/scmhub/calendar"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
)

// DefaultTimezone is the exchange timezone used to assign bars to sessions
const DefaultTimezone = "America/New_York"

// Calendar reports exchange trading days
type Calendar interface {
	IsBusinessDay(t time.Time) bool
}

// NYSE returns the New York Stock Exchange calendar
func NYSE() Calendar {
	return calendar.XNYS()
}

// Session is the bars of the latest trading day plus the close of the
// trading day before it
type Session struct {
	Date          string        `json:"date"`
	Bars          market.Series `json:"-"`
	PriorClose    float64       `json:"prior_close"`
	HasPriorClose bool          `json:"has_prior_close"`
}

// Splitter assigns bars to trading sessions
type Splitter struct {
	cal      Calendar
	location *time.Location
}

// NewSplitter creates a splitter for the given calendar and timezone name
func NewSplitter(cal Calendar, timezone string) (*Splitter, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	if cal == nil {
		cal = NYSE()
	}
	return &Splitter{cal: cal, location: loc}, nil
}

// Location returns the splitter's timezone
func (s *Splitter) Location() *time.Location {
	return s.location
}

// IsTradingDay reports whether the local date of t is a trading day
func (s *Splitter) IsTradingDay(t time.Time) bool {
	local := t.In(s.location)
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, s.location)
	return s.cal.IsBusinessDay(noon)
}

// Latest returns the most recent trading session in series. Bars dated on
// non-trading days are ignored. An empty result means no trading-day bars.
func (s *Splitter) Latest(series market.Series) Session {
	days := s.group(series)
	if len(days) == 0 {
		return Session{Bars: market.Series{}}
	}

	cur := days[len(days)-1]
	out := Session{Date: cur.date, Bars: cur.bars}
	if len(days) > 1 {
		prev := days[len(days)-2].bars
		out.PriorClose = prev[len(prev)-1].Close
		out.HasPriorClose = true
	}
	return out
}

type day struct {
	date  string
	bars  market.Series
	start int
}

// group splits an ascending series into consecutive trading days
func (s *Splitter) group(series market.Series) []day {
	var days []day
	for i, b := range series {
		if !s.IsTradingDay(b.Timestamp) {
			continue
		}
		date := b.Timestamp.In(s.location).Format(time.DateOnly)
		if n := len(days); n > 0 && days[n-1].date == date {
			days[n-1].bars = series[days[n-1].start : i+1]
			continue
		}
		days = append(days, day{date: date, bars: series[i : i+1], start: i})
	}
	return days
}
