package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validMarkets = map[string]bool{
	"win":                 true,
	"top_5":               true,
	"top_10":              true,
	"top_20":              true,
	"make_cut":            true,
	"frl":                 true,
	"tournament_matchups": true,
	"3_balls":             true,
}

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("markets", validateMarkets)
	_ = v.RegisterValidation("vigmethod", validateVigMethod)
	_ = v.RegisterValidation("calibration", validateCalibrationStrategy)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	if err := cv.validator.Struct(cfg); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	return validateCrossField(cfg)
}

func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func validateMarkets(fl validator.FieldLevel) bool {
	markets, ok := fl.Field().Interface().([]string)
	if !ok || len(markets) == 0 {
		return false
	}
	for _, market := range markets {
		if !validMarkets[market] {
			return false
		}
	}
	return true
}

func validateVigMethod(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "normalize", "power":
		return true
	default:
		return false
	}
}

func validateCalibrationStrategy(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "shift_shrink", "isotonic":
		return true
	default:
		return false
	}
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.IsProduction() && cfg.Database.SSLMode == "disable" {
		return fmt.Errorf("production environment requires SSL mode to be 'require' or 'verify-full'")
	}

	if cfg.Database.MaxIdleConnections > cfg.Database.MaxConnections {
		return fmt.Errorf("max_idle_connections cannot exceed max_connections")
	}

	sim := cfg.Simulation
	if sim.CutAfterRound >= sim.Rounds {
		return fmt.Errorf("simulation cut_after_round (%d) must be before the final round (%d)", sim.CutAfterRound, sim.Rounds)
	}
	if len(sim.RoundVolatilityDelta) > sim.Rounds {
		return fmt.Errorf("simulation round_volatility_delta has %d entries for %d rounds", len(sim.RoundVolatilityDelta), sim.Rounds)
	}

	seen := make(map[string]bool, len(cfg.Selection.Tiers))
	for i, tier := range cfg.Selection.Tiers {
		if seen[tier.Name] {
			return fmt.Errorf("duplicate tier name %q", tier.Name)
		}
		seen[tier.Name] = true
		if i > 0 && tier.MinOdds <= cfg.Selection.Tiers[i-1].MaxOdds {
			return fmt.Errorf("tier %q overlaps tier %q: bands must be ascending and disjoint",
				tier.Name, cfg.Selection.Tiers[i-1].Name)
		}
	}

	for market := range cfg.Calibration.Markets {
		if !validMarkets[market] {
			return fmt.Errorf("calibration configured for unknown market %q", market)
		}
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var b strings.Builder
	for _, fieldError := range validationErrors {
		field := fieldError.Namespace()
		tag := fieldError.Tag()

		switch tag {
		case "required", "required_if":
			fmt.Fprintf(&b, "- Field '%s' is required\n", field)
		case "url":
			fmt.Fprintf(&b, "- Field '%s' must be a valid URL, got '%v'\n", field, fieldError.Value())
		case "min", "max":
			fmt.Fprintf(&b, "- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte", "gtfield", "gtefield":
			fmt.Fprintf(&b, "- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			fmt.Fprintf(&b, "- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			fmt.Fprintf(&b, "- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "markets":
			fmt.Fprintf(&b, "- Field '%s' contains an unsupported market\n", field)
		case "vigmethod":
			fmt.Fprintf(&b, "- Field '%s' must be one of: normalize, power\n", field)
		case "calibration":
			fmt.Fprintf(&b, "- Field '%s' must be one of: shift_shrink, isotonic\n", field)
		case "oneof":
			fmt.Fprintf(&b, "- Field '%s' has invalid value '%v'\n", field, fieldError.Value())
		default:
			fmt.Fprintf(&b, "- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", b.String())
}
