package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the lending service daemon.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	Environment   string          `yaml:"env"`
	LogLevel      string          `yaml:"log_level"`
	DataDir       string          `yaml:"data_dir"`
	ParamsPath    string          `yaml:"params"`
	AdminAddress  string          `yaml:"admin"`
	Auth          AuthConfig      `yaml:"auth"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig lists the bearer tokens accepted by the service.
type AuthConfig struct {
	APITokens []string `yaml:"api_tokens"`
}

// RateLimitConfig bounds the per-client request rate.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddress: ":8640",
	}
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) normalize() {
	if cfg == nil {
		return
	}
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":8640"
	}
	cfg.Environment = strings.TrimSpace(cfg.Environment)
	cfg.LogLevel = strings.TrimSpace(cfg.LogLevel)
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	cfg.ParamsPath = strings.TrimSpace(cfg.ParamsPath)
	cfg.AdminAddress = strings.TrimSpace(cfg.AdminAddress)

	tokens := make([]string, 0, len(cfg.Auth.APITokens))
	for _, token := range cfg.Auth.APITokens {
		if trimmed := strings.TrimSpace(token); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	cfg.Auth.APITokens = tokens

	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 20
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 40
	}
}

func (cfg *Config) validate() error {
	if cfg == nil {
		return fmt.Errorf("configuration is missing")
	}
	if len(cfg.Auth.APITokens) == 0 {
		return fmt.Errorf("auth: at least one api token must be configured")
	}
	if cfg.AdminAddress == "" {
		return fmt.Errorf("admin address must be configured")
	}
	return nil
}
