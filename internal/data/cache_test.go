package data

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
)

func TestCache_TTL(t *testing.T) {
	c := NewCache[int](time.Minute)
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	calls := 0
	fetch := func() (int, error) {
		calls++
		return calls, nil
	}

	v, hit, err := c.GetOrFetch("a", fetch)
	if err != nil || hit || v != 1 {
		t.Fatalf("first fetch: v=%d hit=%v err=%v", v, hit, err)
	}

	v, hit, _ = c.GetOrFetch("a", fetch)
	if !hit || v != 1 {
		t.Errorf("expected cache hit with 1, got v=%d hit=%v", v, hit)
	}

	now = now.Add(time.Minute)
	v, hit, _ = c.GetOrFetch("a", fetch)
	if hit || v != 2 {
		t.Errorf("expected refetch after TTL, got v=%d hit=%v", v, hit)
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	c := NewCache[string](time.Minute)
	boom := errors.New("boom")

	if _, _, err := c.GetOrFetch("k", func() (string, error) { return "", boom }); err != boom {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Error("error result was cached")
	}

	v, _, err := c.GetOrFetch("k", func() (string, error) { return "ok", nil })
	if err != nil || v != "ok" {
		t.Errorf("expected ok, got %q %v", v, err)
	}
}

func TestCache_SharesConcurrentFetch(t *testing.T) {
	c := NewCache[int](time.Minute)
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = c.GetOrFetch("k", func() (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 42, nil
			})
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("expected 1 fetch, got %d", n)
	}
}

func TestCache_Reset(t *testing.T) {
	c := NewCache[int](time.Minute)
	for _, k := range []string{"SPY", "SPYG", "QQQ"} {
		_, _, _ = c.GetOrFetch(k, func() (int, error) { return 1, nil })
	}

	if n := c.Reset("SPY"); n != 1 {
		t.Errorf("expected 1 removed, got %d", n)
	}
	if _, ok := c.Get("SPYG"); !ok {
		t.Error("reset of SPY must not touch SPYG")
	}
	if n := c.Reset(""); n != 2 {
		t.Errorf("expected 2 removed, got %d", n)
	}
}

type countingBars struct {
	calls int
}

func (c *countingBars) FetchBars(ctx context.Context, symbol string) ([]market.RawBar, error) {
	c.calls++
	return []market.RawBar{{Timestamp: "2024-01-02 09:30:00", Open: 1, High: 1, Low: 1, Close: 1, Volume: 1}}, nil
}

func TestCachedBars_KeyIsCaseInsensitive(t *testing.T) {
	src := &countingBars{}
	cached := NewCachedBars(src, time.Minute, zap.NewNop())

	for _, sym := range []string{"spy", "SPY", "Spy"} {
		if _, err := cached.FetchBars(context.Background(), sym); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if src.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", src.calls)
	}

	cached.Reset("spy")
	_, _ = cached.FetchBars(context.Background(), "SPY")
	if src.calls != 2 {
		t.Errorf("expected refetch after reset, got %d calls", src.calls)
	}
}
