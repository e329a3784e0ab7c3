package main

import (
	"sync"
	"time"

	"github.com/dgnsrekt/intraday-dashboard/internal/session"
)

// regular session hours in the exchange timezone
const (
	openMinute  = 9*60 + 30
	closeMinute = 16 * 60
)

// Scheduler decides when the watch loop runs and remembers which breakouts
// were already alerted today.
type Scheduler struct {
	splitter *session.Splitter
	now      func() time.Time

	mu      sync.Mutex
	day     string
	alerted map[string]bool
}

func NewScheduler(splitter *session.Splitter) *Scheduler {
	return &Scheduler{
		splitter: splitter,
		now:      time.Now,
		alerted:  make(map[string]bool),
	}
}

// TodayDate returns today's date in YYYY-MM-DD format in the exchange timezone
func (s *Scheduler) TodayDate() string {
	return s.now().In(s.splitter.Location()).Format("2006-01-02")
}

// IsMarketOpen reports whether now falls in regular hours of a trading day
func (s *Scheduler) IsMarketOpen() bool {
	now := s.now().In(s.splitter.Location())
	if !s.splitter.IsTradingDay(now) {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	return minute >= openMinute && minute < closeMinute
}

// FirstBreakout returns true the first time symbol is reported for today
func (s *Scheduler) FirstBreakout(symbol string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := s.TodayDate()
	if today != s.day {
		s.day = today
		s.alerted = make(map[string]bool)
	}
	if s.alerted[symbol] {
		return false
	}
	s.alerted[symbol] = true
	return true
}
