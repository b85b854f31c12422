// Package config loads server and CLI settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PaulFidika/quickauth/core"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Prefix namespaces every variable, e.g. QUICKAUTH_ORIGIN.
const Prefix = "QUICKAUTH"

// Settings is the full runtime configuration.
type Settings struct {
	Origin   string `envconfig:"ORIGIN" default:"https://auth.farcaster.xyz"`
	Domain   string `envconfig:"DOMAIN"`
	Strategy string `envconfig:"STRATEGY" default:"jwks"`
	Addr     string `envconfig:"ADDR" default:":8080"`

	RedisURL    string `envconfig:"REDIS_URL"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	// Scheduler picks how nonce expiry alarms are delivered: "timer" or "river".
	Scheduler string `envconfig:"SCHEDULER" default:"timer"`

	NonceTTL      time.Duration `envconfig:"NONCE_TTL" default:"5m"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"10s"`
	JWKSRefresh   time.Duration `envconfig:"JWKS_REFRESH" default:"15m"`
	SweepSchedule string        `envconfig:"SWEEP_SCHEDULE" default:"@every 1m"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`
	NonceIssueLimit int           `envconfig:"NONCE_ISSUE_LIMIT" default:"30"`
	SIWFVerifyLimit int           `envconfig:"SIWF_VERIFY_LIMIT" default:"30"`
	VerifyJWTLimit  int           `envconfig:"VERIFY_JWT_LIMIT" default:"120"`
}

// Load reads .env (outside production) and then the environment.
func Load() (Settings, error) {
	if !isProduction() {
		if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
			logrus.Warnf("unable to load .env file: %v", err)
		}
	}
	var s Settings
	if err := envconfig.Process(Prefix, &s); err != nil {
		return Settings{}, err
	}
	return s, s.Validate()
}

// Validate checks values envconfig cannot.
func (s Settings) Validate() error {
	if _, err := core.ParseStrategy(s.Strategy); err != nil {
		return err
	}
	switch s.Scheduler {
	case "timer":
	case "river":
		if s.DatabaseURL == "" {
			return fmt.Errorf("config: river scheduler requires %s_DATABASE_URL", Prefix)
		}
	default:
		return fmt.Errorf("config: unknown scheduler %q", s.Scheduler)
	}
	if s.NonceTTL <= 0 {
		return fmt.Errorf("config: nonce ttl must be positive")
	}
	return nil
}

// Issuer returns the issuer configuration.
func (s Settings) Issuer() core.Config { return core.Config{Origin: s.Origin} }

// Accept returns the verify-only configuration for this service's domain.
func (s Settings) Accept() core.AcceptConfig {
	strategy, _ := core.ParseStrategy(s.Strategy)
	return core.AcceptConfig{
		Issuer:      s.Issuer(),
		Audience:    s.Domain,
		Strategy:    strategy,
		JWKSRefresh: s.JWKSRefresh,
	}
}

func isProduction() bool {
	for _, k := range []string{"ENV", "APP_ENV", "ENVIRONMENT"} {
		switch strings.ToLower(os.Getenv(k)) {
		case "prod", "production":
			return true
		}
	}
	return false
}
