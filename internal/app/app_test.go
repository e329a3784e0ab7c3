package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/config"
	"github.com/dgnsrekt/intraday-dashboard/internal/indicator"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		t.Fatal(err)
	}
}

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	base := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	bars := make([]map[string]any, 30)
	for i := range bars {
		c := 100 + 0.5*float64(i)
		bars[i] = map[string]any{
			"timestamp": base.Add(time.Duration(i) * 5 * time.Minute).Format(time.RFC3339),
			"open":      c, "high": c + 0.1, "low": c - 0.1, "close": c, "volume": 100,
		}
	}
	writeJSON(t, filepath.Join(dir, "SPY", "bars.json"), bars)
	writeJSON(t, filepath.Join(dir, "SPY", "options.json"), []map[string]any{
		{"symbol": "O:SPY240119C00430000", "strike": 430, "expiration": "2024-01-19", "volume": 800, "open_interest": 5000},
		{"symbol": "O:SPY240119P00430000", "strike": 430, "expiration": "2024-01-19", "volume": 100, "open_interest": 9000},
	})

	return &config.Config{
		Symbol: "SPY",
		Quotes: config.QuotesConfig{Source: config.SourceFile},
		Providers: config.ProvidersConfig{
			File: config.FileConfig{Directory: dir},
		},
		HTTP:     config.HTTPConfig{Timeout: time.Second, RatePerSecond: 1},
		Cache:    config.CacheConfig{BarsTTL: time.Minute, OptionsTTL: time.Minute},
		Analysis: config.AnalysisConfig{RSIPeriod: 14, SlopeWindow: 10, VWAPMode: "cumulative", TrendThreshold: 0.2, SessionMode: config.SessionModeWindow, Timezone: "UTC"},
		Options:  config.OptionsConfig{Enabled: true, Metric: "volume"},
		Server:   config.ServerConfig{CORSOrigins: []string{"*"}},
		Batch:    config.BatchConfig{Workers: 2},
	}
}

func TestSettings(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Options.Metric = "open_interest"

	s, err := Settings(cfg)
	if err != nil {
		t.Fatalf("Settings failed: %v", err)
	}
	if s.Indicators.VWAPMode != indicator.VWAPCumulative || s.OptionsMetric != options.OpenInterest {
		t.Errorf("unexpected settings %+v", s)
	}

	cfg.Analysis.VWAPMode = "weighted"
	if _, err := Settings(cfg); err == nil {
		t.Error("expected error for unknown VWAP mode")
	}
}

func TestNew_FileSource(t *testing.T) {
	a, err := New(fileConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if len(a.Caches) != 2 {
		t.Errorf("expected bar and options caches, got %d", len(a.Caches))
	}

	snap, err := a.Service.Build(context.Background(), "spy")
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if snap.Summary == nil || !snap.Summary.Breakout {
		t.Errorf("expected breakout summary, got %+v (warnings %+v)", snap.Summary, snap.Warnings)
	}
	if row, ok := snap.Options.Row(430); !ok || row.Call != 800 {
		t.Errorf("unexpected options row %+v", row)
	}
}

func TestNew_OptionsDisabled(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Options.Enabled = false

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if len(a.Caches) != 1 {
		t.Errorf("expected only the bar cache, got %d", len(a.Caches))
	}
}

func TestNew_MissingDirectory(t *testing.T) {
	cfg := fileConfig(t)
	cfg.Providers.File.Directory = filepath.Join(t.TempDir(), "missing")
	if _, err := New(cfg, zap.NewNop()); err == nil {
		t.Error("expected error for missing data directory")
	}
}

func TestRouterAndRunner(t *testing.T) {
	a, err := New(fileConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ts := httptest.NewServer(a.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/summary/SPY")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	mresp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer mresp.Body.Close()
	body, err := io.ReadAll(mresp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(body), "intraday_dashboard_snapshots_total") {
		t.Error("expected snapshot counter after a request")
	}

	result, err := a.Runner().Execute(context.Background(), []string{"SPY", "QQQ"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Success != 1 || result.NotFound != 1 {
		t.Errorf("unexpected batch result %+v", result)
	}
}
