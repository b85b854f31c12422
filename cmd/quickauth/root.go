package main

import (
	"os"

	"github.com/PaulFidika/quickauth/config"
	"github.com/PaulFidika/quickauth/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// settings is populated by the root command before any subcommand runs.
var settings config.Settings

var rootCmd = &cobra.Command{
	Use:   "quickauth",
	Short: "Farcaster Quick Auth verification and nonce service",
	Long: `quickauth verifies Farcaster Quick Auth tokens, either locally against the
issuer's published key set or by delegating to its /verify-jwt endpoint, and
issues single-use nonces for Sign In With Farcaster.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load()
		if err != nil {
			return err
		}
		applyFlags(cmd, &s)
		if err := s.Validate(); err != nil {
			return err
		}
		if err := logging.Configure(s.LogLevel, s.LogFormat); err != nil {
			return err
		}
		settings = s
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Error("execution failed")
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("origin", "", "Quick Auth server origin (env QUICKAUTH_ORIGIN)")
	f.String("domain", "", "expected token audience (env QUICKAUTH_DOMAIN)")
	f.String("strategy", "", "verification strategy: jwks or endpoint (env QUICKAUTH_STRATEGY)")
	f.String("redis-url", "", "Redis URL for nonces and rate limits (env QUICKAUTH_REDIS_URL)")
	f.String("database-url", "", "Postgres URL for nonces (env QUICKAUTH_DATABASE_URL)")
	f.String("log-level", "", "log level: debug, info, warn, error")
	f.String("log-format", "", "log format: text or json")

	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true
}

// applyFlags overrides environment settings with explicitly set flags.
func applyFlags(cmd *cobra.Command, s *config.Settings) {
	for name, dst := range map[string]*string{
		"origin":       &s.Origin,
		"domain":       &s.Domain,
		"strategy":     &s.Strategy,
		"redis-url":    &s.RedisURL,
		"database-url": &s.DatabaseURL,
		"log-level":    &s.LogLevel,
		"log-format":   &s.LogFormat,
		"addr":         &s.Addr,
		"scheduler":    &s.Scheduler,
	} {
		if fl := cmd.Flags().Lookup(name); fl != nil && fl.Changed {
			*dst = fl.Value.String()
		}
	}
}
