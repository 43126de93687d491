// Package config provides configuration management for the fairway-edge recommendation engine.
package config

import (
	"net"
	"net/url"
	"strconv"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Provider    ProviderConfig    `mapstructure:"provider"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Simulation  SimulationConfig  `mapstructure:"simulation"`
	Parameters  ParametersConfig  `mapstructure:"parameters"`
	Odds        OddsConfig        `mapstructure:"odds"`
	Blend       BlendConfig       `mapstructure:"blend"`
	Calibration CalibrationConfig `mapstructure:"calibration"`
	Selection   SelectionConfig   `mapstructure:"selection"`
	Run         RunConfig         `mapstructure:"run"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Secrets     SecretsConfig     `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// DSN renders the connection settings as a PostgreSQL URL
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// ProviderConfig configures the upstream tournament and odds feed
type ProviderConfig struct {
	Name                  string   `mapstructure:"name" validate:"required,oneof=datagolf"`
	BaseURL               string   `mapstructure:"base_url" validate:"required,url"`
	APIKey                string   `mapstructure:"api_key"`
	Tours                 []string `mapstructure:"tours" validate:"required,min=1"`
	TimeoutSeconds        int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RequestsPerSecond     float64  `mapstructure:"requests_per_second" validate:"required,gt=0"`
	MaxRetries            int      `mapstructure:"max_retries" validate:"gte=0"`
	CacheTTLMinutes       int      `mapstructure:"cache_ttl_minutes" validate:"gte=0"`
	BreakerFailureRatio   float64  `mapstructure:"breaker_failure_ratio" validate:"gt=0,lte=1"`
	BreakerMinRequests    uint32   `mapstructure:"breaker_min_requests" validate:"gt=0"`
	BreakerTimeoutSeconds int      `mapstructure:"breaker_timeout_seconds" validate:"gt=0"`
}

// RedisConfig configures the distributed run lock
type RedisConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Addr           string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	DB             int    `mapstructure:"db" validate:"gte=0"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds" validate:"gte=0"`
}

// SimulationConfig configures the Monte Carlo tournament simulator
type SimulationConfig struct {
	Trials               int       `mapstructure:"trials" validate:"required,gt=0"`
	Rounds               int       `mapstructure:"rounds" validate:"required,gt=0"`
	CutAfterRound        int       `mapstructure:"cut_after_round" validate:"gte=0"`
	CutSize              int       `mapstructure:"cut_size" validate:"gte=0"`
	NoCutTours           []string  `mapstructure:"no_cut_tours"`
	Seed                 int64     `mapstructure:"seed"`
	Momentum             float64   `mapstructure:"momentum" validate:"gte=0,lt=1"`
	TailCapFloor         float64   `mapstructure:"tail_cap_floor" validate:"gt=0"`
	RoundShockSD         float64   `mapstructure:"round_shock_sd" validate:"gte=0"`
	CutPenalty           float64   `mapstructure:"cut_penalty" validate:"gt=0"`
	RoundScores          bool      `mapstructure:"round_scores"`
	RoundVolatilityDelta []float64 `mapstructure:"round_volatility_delta"`
}

// ParametersConfig configures how player skill signals become simulation parameters
type ParametersConfig struct {
	BaselineVolatility float64 `mapstructure:"baseline_volatility" validate:"required,gt=0"`
	MinVolatility      float64 `mapstructure:"min_volatility" validate:"required,gt=0"`
	MaxVolatility      float64 `mapstructure:"max_volatility" validate:"required,gtfield=MinVolatility"`
	CourseFitWeight    float64 `mapstructure:"course_fit_weight" validate:"gte=0"`
	FormWeight         float64 `mapstructure:"form_weight" validate:"gte=0"`
	UncertaintyBase    float64 `mapstructure:"uncertainty_base" validate:"gte=0"`
	UncertaintyScale   float64 `mapstructure:"uncertainty_scale" validate:"gte=0"`
	TailFactor         float64 `mapstructure:"tail_factor" validate:"required,gt=0"`
	CutPriorSlope      float64 `mapstructure:"cut_prior_slope" validate:"gte=0"`
	MaxCutPriorGap     float64 `mapstructure:"max_cut_prior_gap" validate:"gte=0,lte=1"`
}

// OddsConfig configures vig removal and cross-book consensus
type OddsConfig struct {
	PowerExponent float64 `mapstructure:"power_exponent" validate:"required,gt=0"`
	MinBooks      int     `mapstructure:"min_books" validate:"required,gt=0"`
	// MinBookCoverage is the share of an outright market a book must price to join the consensus
	MinBookCoverage float64            `mapstructure:"min_book_coverage" validate:"gte=0,lte=1"`
	BookWeights     map[string]float64 `mapstructure:"book_weights"`
	Methods         map[string]string  `mapstructure:"methods" validate:"dive,vigmethod"`
}

// BlendConfig holds logit-space blend weights
type BlendConfig struct {
	SimulationWeight float64 `mapstructure:"simulation_weight" validate:"gt=0"`
	ExternalWeight   float64 `mapstructure:"external_weight" validate:"gte=0"`
	MarketWeight     float64 `mapstructure:"market_weight" validate:"gte=0"`
}

// ShiftShrinkConfig is a per-market logit shift followed by shrinkage toward 0.5
type ShiftShrinkConfig struct {
	Shift  float64 `mapstructure:"shift"`
	Shrink float64 `mapstructure:"shrink" validate:"gte=0,lt=1"`
}

// CalibrationConfig selects and tunes the calibration strategy
type CalibrationConfig struct {
	Strategy      string                       `mapstructure:"strategy" validate:"required,calibration"`
	TargetBinSize int                          `mapstructure:"target_bin_size" validate:"required,gt=0"`
	Markets       map[string]ShiftShrinkConfig `mapstructure:"markets" validate:"dive"`
}

// TierConfig describes one odds band of the portfolio
type TierConfig struct {
	Name     string  `mapstructure:"name" validate:"required"`
	MinOdds  float64 `mapstructure:"min_odds" validate:"required,gt=1"`
	MaxOdds  float64 `mapstructure:"max_odds" validate:"required,gtefield=MinOdds"`
	MinPicks int     `mapstructure:"min_picks" validate:"gte=0"`
	MaxPicks int     `mapstructure:"max_picks" validate:"required,gtefield=MinPicks"`
}

// SelectionConfig configures tiering and exposure caps
type SelectionConfig struct {
	Tiers           []TierConfig `mapstructure:"tiers" validate:"required,min=1,dive"`
	MaxPerPlayer    int          `mapstructure:"max_per_player" validate:"required,gt=0"`
	MaxPerMarket    int          `mapstructure:"max_per_market" validate:"required,gt=0"`
	MinEdge         float64      `mapstructure:"min_edge" validate:"gte=0"`
	MinEV           float64      `mapstructure:"min_ev" validate:"gte=0"`
	FallbackEnabled bool         `mapstructure:"fallback_enabled"`
}

// RunConfig configures the run orchestrator
type RunConfig struct {
	Markets                   []string `mapstructure:"markets" validate:"required,min=1,markets"`
	MaxConcurrentEvents       int      `mapstructure:"max_concurrent_events" validate:"required,gt=0"`
	TopIssues                 int      `mapstructure:"top_issues" validate:"required,gt=0"`
	ArtifactCompressionBytes  int      `mapstructure:"artifact_compression_threshold_bytes" validate:"gte=0"`
	Schedule                  string   `mapstructure:"schedule"`
	LockWaitSeconds           int      `mapstructure:"lock_wait_seconds" validate:"gte=0"`
	RequireCalibrationModels  bool     `mapstructure:"require_calibration_models"`
	MinFieldOddsCoverageRatio float64  `mapstructure:"min_field_odds_coverage" validate:"gte=0,lte=1"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SecretsConfig points at an optional AWS Secrets Manager overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return c.Database.DSN()
}

// ProviderTimeout returns the per-call upstream timeout
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.Provider.TimeoutSeconds) * time.Second
}

// IsNoCutTour reports whether events on the tour are played without a cut
func (c *Config) IsNoCutTour(tour string) bool {
	for _, t := range c.Simulation.NoCutTours {
		if t == tour {
			return true
		}
	}
	return false
}
