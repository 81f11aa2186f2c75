package config

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"invoice-reconciliation-backend/internal/services/matching"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	AllowedOrigin  string
	MatchTopN      int
	MatchMinScore  float64
	GinReleaseMode bool
}

// Load reads configuration from environment variables, with a .env file as
// fallback. Matching thresholds are exposed here so the agency can tune the
// suggestion bands without a rebuild.
func Load() (*Config, error) {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ALLOWED_ORIGIN", "http://localhost:3000")
	viper.SetDefault("MATCH_TOP_N", matching.DefaultConfig().MaxSuggestions)
	viper.SetDefault("MATCH_MIN_CONFIDENCE", matching.DefaultConfig().MinConfidence)
	viper.SetDefault("GIN_RELEASE_MODE", false)
	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:    viper.GetString("DATABASE_URL"),
		Port:           viper.GetString("PORT"),
		AllowedOrigin:  viper.GetString("ALLOWED_ORIGIN"),
		MatchTopN:      viper.GetInt("MATCH_TOP_N"),
		MatchMinScore:  viper.GetFloat64("MATCH_MIN_CONFIDENCE"),
		GinReleaseMode: viper.GetBool("GIN_RELEASE_MODE"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}
	if cfg.MatchTopN <= 0 {
		slog.Warn("MATCH_TOP_N must be positive, using default",
			"value", cfg.MatchTopN)
		cfg.MatchTopN = matching.DefaultConfig().MaxSuggestions
	}
	if cfg.MatchMinScore < 0 || cfg.MatchMinScore > 1 {
		slog.Warn("MATCH_MIN_CONFIDENCE must be within [0,1], using default",
			"value", cfg.MatchMinScore)
		cfg.MatchMinScore = matching.DefaultConfig().MinConfidence
	}
	return cfg, nil
}

// MatchingConfig applies the tunable overrides on top of the defaults.
func (c *Config) MatchingConfig() matching.Config {
	mc := matching.DefaultConfig()
	mc.MaxSuggestions = c.MatchTopN
	mc.MinConfidence = c.MatchMinScore
	return mc
}
