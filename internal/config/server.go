package config

import (
	"net"
	"os"
	"time"
)

type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ChartTheme      string        `mapstructure:"chart_theme"`
}

// Addr returns the listen address for the HTTP server
func (s ServerConfig) Addr() string {
	return net.JoinHostPort("", s.Port)
}

// LoadServerConfig loads the full configuration for the HTTP binary.
// CONFIG_PATH selects a config file and PORT overrides server.port.
func LoadServerConfig() (*Config, error) {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return nil, err
	}
	cfg.Server.Port = getEnvOrDefault("PORT", cfg.Server.Port)
	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
