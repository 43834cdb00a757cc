package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	OpenRouterAPIKey  string `mapstructure:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `mapstructure:"OPENROUTER_BASE_URL"`
	OpenRouterModel   string `mapstructure:"OPENROUTER_MODEL"`

	ExplainWorkers      int           `mapstructure:"EXPLAIN_WORKERS"`
	ExplainCallTimeout  time.Duration `mapstructure:"EXPLAIN_CALL_TIMEOUT"`
	ExplainBatchTimeout time.Duration `mapstructure:"EXPLAIN_BATCH_TIMEOUT"`

	BookingHorizonDays int           `mapstructure:"BOOKING_HORIZON_DAYS"`
	BookingLeadTime    time.Duration `mapstructure:"BOOKING_LEAD_TIME"`

	ThresholdsFile string `mapstructure:"THRESHOLDS_FILE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("EXPLAIN_WORKERS", 4)
	v.SetDefault("EXPLAIN_CALL_TIMEOUT", "15s")
	v.SetDefault("EXPLAIN_BATCH_TIMEOUT", "30s")
	v.SetDefault("BOOKING_HORIZON_DAYS", 14)
	v.SetDefault("BOOKING_LEAD_TIME", "1h")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("OPENROUTER_API_KEY")
	v.BindEnv("OPENROUTER_BASE_URL")
	v.BindEnv("OPENROUTER_MODEL")
	v.BindEnv("EXPLAIN_WORKERS")
	v.BindEnv("EXPLAIN_CALL_TIMEOUT")
	v.BindEnv("EXPLAIN_BATCH_TIMEOUT")
	v.BindEnv("BOOKING_HORIZON_DAYS")
	v.BindEnv("BOOKING_LEAD_TIME")
	v.BindEnv("THRESHOLDS_FILE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. The database is
// optional in development (the server falls back to in-memory stores) but
// required in production, as is the explanation API key.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
		if c.OpenRouterAPIKey == "" {
			return fmt.Errorf("OPENROUTER_API_KEY is required in production")
		}
	}
	if c.ExplainWorkers <= 0 {
		return fmt.Errorf("EXPLAIN_WORKERS must be positive, got %d", c.ExplainWorkers)
	}
	if c.ExplainCallTimeout <= 0 || c.ExplainBatchTimeout <= 0 {
		return fmt.Errorf("explanation timeouts must be positive")
	}
	if c.ExplainCallTimeout > c.ExplainBatchTimeout {
		return fmt.Errorf("EXPLAIN_CALL_TIMEOUT (%s) exceeds EXPLAIN_BATCH_TIMEOUT (%s)",
			c.ExplainCallTimeout, c.ExplainBatchTimeout)
	}
	if c.BookingHorizonDays <= 0 {
		return fmt.Errorf("BOOKING_HORIZON_DAYS must be positive, got %d", c.BookingHorizonDays)
	}
	return nil
}
