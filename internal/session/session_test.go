package session

import (
	"testing"
	"time"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
)

// weekdays treats every Monday-Friday as a trading day
type weekdays struct{}

func (weekdays) IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func newTestSplitter(t *testing.T) *Splitter {
	t.Helper()
	s, err := NewSplitter(weekdays{}, DefaultTimezone)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	return s
}

func barsAt(loc *time.Location, stamps ...string) market.Series {
	s := make(market.Series, 0, len(stamps))
	for i, st := range stamps {
		ts, err := time.ParseInLocation("2006-01-02 15:04", st, loc)
		if err != nil {
			panic(err)
		}
		c := float64(100 + i)
		s = append(s, market.Bar{Timestamp: ts, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10})
	}
	return s
}

func TestLatest_AcrossWeekend(t *testing.T) {
	sp := newTestSplitter(t)
	series := barsAt(sp.Location(),
		"2024-01-05 15:50", // Friday
		"2024-01-05 15:55",
		"2024-01-06 10:00", // Saturday, ignored
		"2024-01-08 09:30", // Monday
		"2024-01-08 09:35",
		"2024-01-08 09:40",
	)

	got := sp.Latest(series)
	if got.Date != "2024-01-08" {
		t.Errorf("expected session 2024-01-08, got %s", got.Date)
	}
	if len(got.Bars) != 3 {
		t.Fatalf("expected 3 bars in session, got %d", len(got.Bars))
	}
	if !got.HasPriorClose || got.PriorClose != 101 {
		t.Errorf("expected prior close 101 from Friday, got %v (has=%v)", got.PriorClose, got.HasPriorClose)
	}
}

func TestLatest_SingleSession(t *testing.T) {
	sp := newTestSplitter(t)
	series := barsAt(sp.Location(), "2024-01-08 09:30", "2024-01-08 09:35")

	got := sp.Latest(series)
	if got.HasPriorClose {
		t.Error("single session must not report a prior close")
	}
	if len(got.Bars) != 2 {
		t.Errorf("expected 2 bars, got %d", len(got.Bars))
	}
}

func TestLatest_Empty(t *testing.T) {
	sp := newTestSplitter(t)
	got := sp.Latest(nil)
	if got.Bars == nil || len(got.Bars) != 0 {
		t.Errorf("expected empty bars, got %+v", got.Bars)
	}
}

func TestLatest_UTCBarsAssignedToLocalDate(t *testing.T) {
	sp := newTestSplitter(t)
	// 2024-01-09 01:00 UTC is still 2024-01-08 in New York
	series := market.Series{
		{Timestamp: time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC), Close: 1},
		{Timestamp: time.Date(2024, 1, 9, 1, 0, 0, 0, time.UTC), Close: 2},
	}
	got := sp.Latest(series)
	if got.Date != "2024-01-08" || len(got.Bars) != 2 {
		t.Errorf("unexpected session %s with %d bars", got.Date, len(got.Bars))
	}
}

func TestNYSE_Holiday(t *testing.T) {
	sp, err := NewSplitter(NYSE(), DefaultTimezone)
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	christmas := time.Date(2024, 12, 25, 15, 0, 0, 0, time.UTC)
	if sp.IsTradingDay(christmas) {
		t.Error("Christmas should not be a trading day")
	}
	if !sp.IsTradingDay(time.Date(2024, 12, 24, 15, 0, 0, 0, time.UTC)) {
		t.Error("Christmas Eve 2024 should be a trading day")
	}
}

func TestNewSplitter_BadTimezone(t *testing.T) {
	if _, err := NewSplitter(weekdays{}, "Mars/Olympus"); err == nil {
		t.Error("expected error for unknown timezone")
	}
}
