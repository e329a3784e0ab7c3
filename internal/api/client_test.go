package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
)

type recordingObserver struct {
	mu    sync.Mutex
	codes []string
}

func (o *recordingObserver) ObserveRequest(provider, code string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes = append(o.codes, provider+":"+code)
}

func newTestClient(url string, retries int) *HTTPClient {
	logger, _ := zap.NewDevelopment()
	return NewClient(url, "test-key", 10, 30*time.Second, 10*time.Millisecond, retries, logger)
}

func TestTwelveData_FetchBars(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "apikey test-key" {
			t.Errorf("expected apikey test-key, got %s", auth)
		}
		if r.URL.Path != "/time_series" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("symbol") != "SPY" || q.Get("interval") != "5min" || q.Get("outputsize") != "300" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"meta": {"symbol": "SPY", "interval": "5min", "exchange_timezone": "America/New_York"},
			"values": [
				{"datetime": "2024-01-02 09:35:00", "open": "472.1", "high": "472.5", "low": "471.9", "close": "472.3", "volume": "1200"},
				{"datetime": "2024-01-02 09:30:00", "open": "471.5", "high": "472.2", "low": "471.4", "close": "472.1", "volume": "900"}
			],
			"status": "ok"
		}`))
	}))
	defer server.Close()

	td := NewTwelveData(newTestClient(server.URL, 0), "5min", 300)
	raw, err := td.FetchBars(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(raw))
	}

	series, err := market.Normalize(raw)
	if err != nil {
		t.Fatalf("bars did not normalize: %v", err)
	}
	if series[0].Close != 472.1 || series[1].Volume != 1200 {
		t.Errorf("unexpected series %+v", series)
	}
}

func TestTwelveData_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code": 401, "message": "invalid api key", "status": "error"}`))
	}))
	defer server.Close()

	td := NewTwelveData(newTestClient(server.URL, 0), "5min", 300)
	_, err := td.FetchBars(context.Background(), "SPY")
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestTwelveData_NoValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"meta": {"symbol": "SPY"}, "status": "ok"}`))
	}))
	defer server.Close()

	td := NewTwelveData(newTestClient(server.URL, 0), "5min", 300)
	raw, err := td.FetchBars(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("no data must not be an error, got %v", err)
	}
	if raw == nil || len(raw) != 0 {
		t.Errorf("expected empty slice, got %#v", raw)
	}
}

func TestGetJSON_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	var out map[string]any
	err := client.getJSON(context.Background(), server.URL+"/x", &out)
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetJSON_RateLimited(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, 2)
	obs := &recordingObserver{}
	client.SetObserver(obs)

	var out map[string]any
	err := client.getJSON(context.Background(), server.URL, &out)
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(obs.codes) != 3 || obs.codes[0] != "http:429" {
		t.Errorf("unexpected observations %v", obs.codes)
	}
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, 3)
	var out struct {
		OK bool `json:"ok"`
	}
	if err := client.getJSON(context.Background(), server.URL, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK || attempts != 3 {
		t.Errorf("expected success on third attempt, got ok=%v attempts=%d", out.OK, attempts)
	}
}

func TestGetJSON_AuthFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	var out map[string]any
	if err := newTestClient(server.URL, 2).getJSON(context.Background(), server.URL, &out); err != ErrAuthFailed {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestGetJSON_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	logger := zap.NewNop()
	client := NewClient(server.URL, "k", 10, time.Second, time.Hour, 3, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out map[string]any
	if err := client.getJSON(ctx, server.URL, &out); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestPolygon_FetchBarsPaginates(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("expected Bearer test-key, got %s", auth)
		}
		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("cursor") == "" {
			if !strings.HasPrefix(r.URL.Path, "/v2/aggs/ticker/SPY/range/5/minute/2024-01-01/2024-01-02") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"status":   "OK",
				"results":  []map[string]any{{"t": 1704205800000, "o": 471.5, "h": 472.2, "l": 471.4, "c": 472.1, "v": 900}},
				"next_url": server.URL + "/v2/aggs/ticker/SPY/range/5/minute/2024-01-01/2024-01-02?cursor=abc",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "OK",
			"results": []map[string]any{{"t": 1704206100000, "o": 472.1, "h": 472.5, "l": 471.9, "c": 472.3, "v": 1200.5}},
		})
	}))
	defer server.Close()

	p := NewPolygon(newTestClient(server.URL, 0), 5, "minute", 24*time.Hour)
	p.now = func() time.Time { return time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC) }

	raw, err := p.FetchBars(context.Background(), "spy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	series, err := market.Normalize(raw)
	if err != nil {
		t.Fatalf("bars did not normalize: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 bars across pages, got %d", len(series))
	}
	if !series[0].Timestamp.Equal(time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected first timestamp %v", series[0].Timestamp)
	}
	if series[1].Volume != 1200.5 {
		t.Errorf("expected volume 1200.5, got %v", series[1].Volume)
	}
}

func TestPolygon_FetchOptionsSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/snapshot/options/SPY" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"status": "OK",
			"results": [
				{"details": {"ticker": "O:SPY240119C00430000", "contract_type": "call", "strike_price": 430, "expiration_date": "2024-01-19"}, "open_interest": 1000, "day": {"volume": 500}},
				{"details": {"ticker": "O:SPY240119C00430000", "contract_type": "call", "strike_price": 430, "expiration_date": "2024-01-19"}, "day": {"volume": 300}},
				{"details": {"ticker": "O:SPY240119P00430000", "contract_type": "put", "strike_price": 430, "expiration_date": "2024-01-19"}, "day": {"volume": 100}},
				{"open_interest": 5}
			]
		}`))
	}))
	defer server.Close()

	p := NewPolygon(newTestClient(server.URL, 0), 5, "minute", 0)
	entries, err := p.FetchOptionsSnapshot(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	m := options.Aggregate(entries)
	row, ok := m.Row(430)
	if !ok || row.Call != 800 || row.Put != 100 {
		t.Errorf("unexpected row %+v (found=%v)", row, ok)
	}
}

func TestPolygon_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ERROR", "error": "bad ticker"}`))
	}))
	defer server.Close()

	p := NewPolygon(newTestClient(server.URL, 0), 5, "minute", 0)
	if _, err := p.FetchOptionsSnapshot(context.Background(), "SPY"); !errors.Is(err, ErrUpstream) {
		t.Errorf("expected ErrUpstream, got %v", err)
	}
}
