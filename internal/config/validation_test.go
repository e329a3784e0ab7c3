package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Symbol: "SPY",
		Quotes: QuotesConfig{Source: SourceTwelveData},
		Providers: ProvidersConfig{
			TwelveData: TwelveDataConfig{BaseURL: "https://api.twelvedata.com", APIKey: "k", Interval: "5min", OutputSize: 300},
			Polygon:    PolygonConfig{BaseURL: "https://api.polygon.io", APIKey: "k", Multiplier: 5, Timespan: "minute", Lookback: 120 * time.Hour},
		},
		HTTP:     HTTPConfig{Timeout: 30 * time.Second, RetryCount: 3, RetryDelay: time.Second, RatePerSecond: 5},
		Cache:    CacheConfig{BarsTTL: time.Minute, OptionsTTL: time.Minute},
		Analysis: AnalysisConfig{RSIPeriod: 14, SlopeWindow: 10, VWAPMode: "typical", TrendThreshold: 0.2, SessionMode: SessionModeWindow, Timezone: "UTC"},
		Options:  OptionsConfig{Enabled: true, Metric: "volume"},
		Server:   ServerConfig{Port: "8080", ReadTimeout: time.Second, WriteTimeout: time.Second, ShutdownTimeout: time.Second},
		Notify:   NotifyConfig{Priority: "default"},
		Batch:    BatchConfig{Workers: 4},
		Watch:    WatchConfig{Interval: time.Minute},
		Logging:  LoggingConfig{Level: "info"},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("expected no error for valid config, got: %v", err)
	}
}

func TestValidate_BadModes(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.VWAPMode = "weighted"
	cfg.Analysis.SessionMode = "daily"
	cfg.Options.Metric = "gamma"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid modes")
	}
	for _, want := range []string{"analysis.vwap_mode", "analysis.session_mode", "options.metric", `"weighted"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_TagConstraints(t *testing.T) {
	cfg := validConfig()
	cfg.Analysis.SlopeWindow = 1
	cfg.Batch.Workers = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for out-of-range values")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "Analysis.SlopeWindow") || !strings.Contains(errStr, "gte=2") {
		t.Errorf("error should report slope window constraint, got: %v", err)
	}
	if !strings.Contains(errStr, "Batch.Workers") {
		t.Errorf("error should report workers constraint, got: %v", err)
	}
}

func TestValidate_OptionsNeedPolygonKey(t *testing.T) {
	cfg := validConfig()
	cfg.Providers.Polygon.APIKey = ""

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "options are enabled") {
		t.Errorf("expected options key error, got: %v", err)
	}

	cfg.Options.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled options should not need a polygon key, got: %v", err)
	}
}

func TestValidate_FileSource(t *testing.T) {
	cfg := validConfig()
	cfg.Quotes.Source = SourceFile
	cfg.Providers = ProvidersConfig{
		TwelveData: TwelveDataConfig{BaseURL: "https://api.twelvedata.com", Interval: "5min", OutputSize: 1},
		Polygon:    PolygonConfig{BaseURL: "https://api.polygon.io", Multiplier: 1, Timespan: "minute", Lookback: time.Hour},
	}

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "providers.file.directory") {
		t.Errorf("expected missing directory error, got: %v", err)
	}

	cfg.Providers.File.Directory = "testdata"
	if err := cfg.Validate(); err != nil {
		t.Errorf("file source with directory should validate, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Quotes.Source = "yahoo"
	cfg.Analysis.Timezone = "Mars/Olympus"
	cfg.Notify.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for multiple issues")
	}
	verrs, ok := err.(*ValidationErrors)
	if !ok {
		t.Fatalf("expected *ValidationErrors, got %T", err)
	}
	if len(verrs.Fields) != 3 {
		t.Errorf("expected 3 field errors, got %d: %v", len(verrs.Fields), err)
	}
}
