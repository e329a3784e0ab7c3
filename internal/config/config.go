package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// WatchSymbols returns the symbols a batch or watch run covers, falling back
// to the single configured symbol.
func (c *Config) WatchSymbols() []string {
	if len(c.Watch.Symbols) > 0 {
		return c.Watch.Symbols
	}
	return []string{c.Symbol}
}

type Config struct {
	Symbol    string          `mapstructure:"symbol" validate:"required"`
	Quotes    QuotesConfig    `mapstructure:"quotes"`
	Providers ProvidersConfig `mapstructure:"providers"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Options   OptionsConfig   `mapstructure:"options"`
	Server    ServerConfig    `mapstructure:"server"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Watch     WatchConfig     `mapstructure:"watch"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type QuotesConfig struct {
	Source string `mapstructure:"source" validate:"required"`
}

type ProvidersConfig struct {
	TwelveData TwelveDataConfig `mapstructure:"twelvedata"`
	Polygon    PolygonConfig    `mapstructure:"polygon"`
	File       FileConfig       `mapstructure:"file"`
}

type TwelveDataConfig struct {
	BaseURL    string `mapstructure:"base_url" validate:"required,url"`
	APIKey     string `mapstructure:"api_key"`
	Interval   string `mapstructure:"interval" validate:"required"`
	OutputSize int    `mapstructure:"output_size" validate:"gte=1,lte=5000"`
}

type PolygonConfig struct {
	BaseURL    string        `mapstructure:"base_url" validate:"required,url"`
	APIKey     string        `mapstructure:"api_key"`
	Multiplier int           `mapstructure:"multiplier" validate:"gte=1"`
	Timespan   string        `mapstructure:"timespan" validate:"oneof=minute hour day"`
	Lookback   time.Duration `mapstructure:"lookback" validate:"gt=0"`
}

type FileConfig struct {
	Directory string `mapstructure:"directory"`
}

type HTTPConfig struct {
	Timeout       time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RetryCount    int           `mapstructure:"retry_count" validate:"gte=0,lte=10"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	RatePerSecond int           `mapstructure:"rate_per_second" validate:"gte=1"`
}

type CacheConfig struct {
	BarsTTL    time.Duration `mapstructure:"bars_ttl" validate:"gte=0"`
	OptionsTTL time.Duration `mapstructure:"options_ttl" validate:"gte=0"`
}

type AnalysisConfig struct {
	RSIPeriod      int     `mapstructure:"rsi_period" validate:"gte=1"`
	SlopeWindow    int     `mapstructure:"slope_window" validate:"gte=2"`
	VWAPMode       string  `mapstructure:"vwap_mode"`
	TrendThreshold float64 `mapstructure:"trend_threshold" validate:"gt=0"`
	SessionMode    string  `mapstructure:"session_mode"`
	Timezone       string  `mapstructure:"timezone" validate:"required"`
}

type OptionsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Metric  string `mapstructure:"metric"`
}

type NotifyConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Server   string `mapstructure:"server" validate:"omitempty,url"`
	Topic    string `mapstructure:"topic"`
	Priority string `mapstructure:"priority" validate:"oneof=min low default high urgent"`
	Tags     string `mapstructure:"tags"`
	Token    string `mapstructure:"token"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers" validate:"gte=1,lte=32"`
}

type WatchConfig struct {
	Symbols         []string      `mapstructure:"symbols"`
	Interval        time.Duration `mapstructure:"interval" validate:"gte=10s"`
	MarketHoursOnly bool          `mapstructure:"market_hours_only"`
	OutputDir       string        `mapstructure:"output_dir"`
}

type LoggingConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	Level     string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbol", "SPY")
	v.SetDefault("quotes.source", SourceTwelveData)
	v.SetDefault("providers.twelvedata.base_url", "https://api.twelvedata.com")
	v.SetDefault("providers.twelvedata.interval", "5min")
	v.SetDefault("providers.twelvedata.output_size", 300)
	v.SetDefault("providers.polygon.base_url", "https://api.polygon.io")
	v.SetDefault("providers.polygon.multiplier", 5)
	v.SetDefault("providers.polygon.timespan", "minute")
	v.SetDefault("providers.polygon.lookback", "120h")
	v.SetDefault("providers.twelvedata.api_key", "")
	v.SetDefault("providers.polygon.api_key", "")
	v.SetDefault("providers.file.directory", "data")
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.retry_count", 3)
	v.SetDefault("http.retry_delay", "2s")
	v.SetDefault("http.rate_per_second", 5)
	v.SetDefault("cache.bars_ttl", "5m")
	v.SetDefault("cache.options_ttl", "2m")
	v.SetDefault("analysis.rsi_period", 14)
	v.SetDefault("analysis.slope_window", 10)
	v.SetDefault("analysis.vwap_mode", "typical")
	v.SetDefault("analysis.trend_threshold", 0.2)
	v.SetDefault("analysis.session_mode", SessionModeWindow)
	v.SetDefault("analysis.timezone", "America/New_York")
	v.SetDefault("options.enabled", true)
	v.SetDefault("options.metric", "volume")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.chart_theme", "westeros")
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.server", "https://ntfy.sh")
	v.SetDefault("notify.topic", "")
	v.SetDefault("notify.priority", "default")
	v.SetDefault("notify.tags", "chart_with_upwards_trend")
	v.SetDefault("notify.token", "")
	v.SetDefault("batch.workers", 4)
	v.SetDefault("watch.symbols", []string{})
	v.SetDefault("watch.interval", "5m")
	v.SetDefault("watch.market_hours_only", true)
	v.SetDefault("watch.output_dir", "")
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variable support
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Provider keys keep their conventional names
	_ = v.BindEnv("providers.twelvedata.api_key", "DASHBOARD_PROVIDERS_TWELVEDATA_API_KEY", "TWELVEDATA_API_KEY")
	_ = v.BindEnv("providers.polygon.api_key", "DASHBOARD_PROVIDERS_POLYGON_API_KEY", "POLYGON_API_KEY")
	_ = v.BindEnv("notify.topic", "DASHBOARD_NOTIFY_TOPIC", "NTFY_TOPIC")

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Symbol = strings.ToUpper(strings.TrimSpace(cfg.Symbol))
	for i, s := range cfg.Watch.Symbols {
		cfg.Watch.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}
