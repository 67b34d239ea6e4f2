// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Bootstrap controls startup seeding behavior.
type Bootstrap struct {
	EnsureDemoOwnerAndLot bool
}

// Config carries all runtime settings for the service.
type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseURL string

	// BusinessTimezone is the wall-clock zone used for day boundaries and
	// time-of-day pricing windows. Lots bill in local calendar days, so this
	// must match the facility's zone, not the server's.
	BusinessTimezone string

	PaymentProviderConfigSecret string
	JWTSecret                   string
	OTLPEndpoint                string

	Bootstrap Bootstrap
}

// Module provides Config to the fx graph.
var Module = fx.Module("config",
	fx.Provide(Load),
)

// Load reads configuration from the environment, consulting a local .env
// file when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:                 getenv("TORII_ENV", "development"),
		HTTPAddr:                    getenv("TORII_HTTP_ADDR", ":8080"),
		DatabaseURL:                 getenv("DATABASE_URL", "file:torii.db?_pragma=foreign_keys(1)"),
		BusinessTimezone:            getenv("TORII_BUSINESS_TIMEZONE", "Asia/Tokyo"),
		PaymentProviderConfigSecret: os.Getenv("TORII_PROVIDER_CONFIG_SECRET"),
		JWTSecret:                   os.Getenv("TORII_JWT_SECRET"),
		OTLPEndpoint:                os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		Bootstrap: Bootstrap{
			EnsureDemoOwnerAndLot: getbool("TORII_BOOTSTRAP_DEMO", true),
		},
	}

	if _, err := time.LoadLocation(cfg.BusinessTimezone); err != nil {
		return Config{}, fmt.Errorf("invalid TORII_BUSINESS_TIMEZONE %q: %w", cfg.BusinessTimezone, err)
	}
	return cfg, nil
}

// IsCloud reports whether the service runs in hosted mode, where demo
// bootstrap and the fallback principal are disabled.
func (c Config) IsCloud() bool {
	return strings.EqualFold(c.Environment, "cloud")
}

// IsProduction reports whether destructive test endpoints must be refused.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production") || c.IsCloud()
}

// Location resolves the business timezone. Load validated it already.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
