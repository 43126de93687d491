package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "FAIRWAY_EDGE"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables.
// Placeholders of the form ${VAR_NAME} in the YAML file are expanded before parsing.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for every tunable.
// A missing config file is not an error; defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.MergeConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file
func Default() *Config {
	v := newViper()
	setDefaults(v)

	cfg := &Config{}
	// Defaults are static literals; a decode failure here is a programming error.
	if err := v.Unmarshal(cfg); err != nil {
		panic(fmt.Sprintf("invalid default configuration: %v", err))
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "fairway-edge")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "fairway_edge")
	v.SetDefault("database.user", "fairway")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 2)

	v.SetDefault("provider.name", "datagolf")
	v.SetDefault("provider.base_url", "https://feeds.datagolf.com")
	v.SetDefault("provider.tours", []string{"pga"})
	v.SetDefault("provider.timeout_seconds", 20)
	v.SetDefault("provider.requests_per_second", 2.0)
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.cache_ttl_minutes", 30)
	v.SetDefault("provider.breaker_failure_ratio", 0.6)
	v.SetDefault("provider.breaker_min_requests", 3)
	v.SetDefault("provider.breaker_timeout_seconds", 60)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.lock_ttl_seconds", 900)

	v.SetDefault("simulation.trials", 20000)
	v.SetDefault("simulation.rounds", 4)
	v.SetDefault("simulation.cut_after_round", 2)
	v.SetDefault("simulation.cut_size", 65)
	v.SetDefault("simulation.no_cut_tours", []string{"liv"})
	v.SetDefault("simulation.momentum", 0.15)
	v.SetDefault("simulation.tail_cap_floor", 3.0)
	v.SetDefault("simulation.round_shock_sd", 1.0)
	v.SetDefault("simulation.cut_penalty", 1000.0)
	v.SetDefault("simulation.round_scores", true)

	v.SetDefault("parameters.baseline_volatility", 2.75)
	v.SetDefault("parameters.min_volatility", 1.5)
	v.SetDefault("parameters.max_volatility", 4.5)
	v.SetDefault("parameters.course_fit_weight", 1.0)
	v.SetDefault("parameters.form_weight", 0.5)
	v.SetDefault("parameters.uncertainty_base", 0.35)
	v.SetDefault("parameters.uncertainty_scale", 1.5)
	v.SetDefault("parameters.tail_factor", 3.0)
	v.SetDefault("parameters.cut_prior_slope", 0.9)
	v.SetDefault("parameters.max_cut_prior_gap", 0.2)

	v.SetDefault("odds.power_exponent", 1.25)
	v.SetDefault("odds.min_books", 2)
	v.SetDefault("odds.min_book_coverage", 0.75)
	v.SetDefault("odds.book_weights", map[string]float64{"pinnacle": 2.0, "betcris": 1.5})
	v.SetDefault("odds.methods", map[string]string{
		"tournament_matchups": "normalize",
		"3_balls":             "normalize",
	})

	v.SetDefault("blend.simulation_weight", 0.70)
	v.SetDefault("blend.external_weight", 0.20)
	v.SetDefault("blend.market_weight", 0.10)

	v.SetDefault("calibration.strategy", "shift_shrink")
	v.SetDefault("calibration.target_bin_size", 50)
	v.SetDefault("calibration.markets", map[string]any{
		"win":   map[string]any{"shift": -0.05, "shrink": 0.02},
		"top_5": map[string]any{"shift": -0.03, "shrink": 0.02},
	})

	v.SetDefault("selection.tiers", []map[string]any{
		{"name": "core", "min_odds": 1.50, "max_odds": 5.99, "min_picks": 2, "max_picks": 4},
		{"name": "value", "min_odds": 6.00, "max_odds": 20.00, "min_picks": 2, "max_picks": 4},
		{"name": "upside", "min_odds": 21.00, "max_odds": 60.00, "min_picks": 1, "max_picks": 3},
		{"name": "longshot", "min_odds": 61.00, "max_odds": 500.00, "min_picks": 0, "max_picks": 2},
	})
	v.SetDefault("selection.max_per_player", 2)
	v.SetDefault("selection.max_per_market", 4)
	v.SetDefault("selection.fallback_enabled", true)

	v.SetDefault("run.markets", []string{"win", "top_5", "top_10", "top_20", "make_cut", "frl", "tournament_matchups"})
	v.SetDefault("run.max_concurrent_events", 4)
	v.SetDefault("run.top_issues", 10)
	v.SetDefault("run.artifact_compression_threshold_bytes", 64*1024)
	v.SetDefault("run.schedule", "0 9 * * 2")
	v.SetDefault("run.lock_wait_seconds", 0)
	v.SetDefault("run.min_field_odds_coverage", 0.5)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")
}
