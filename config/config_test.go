package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/PaulFidika/quickauth/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://auth.farcaster.xyz", s.Origin)
	assert.Equal(t, "jwks", s.Strategy)
	assert.Equal(t, "timer", s.Scheduler)
	assert.Equal(t, 5*time.Minute, s.NonceTTL)
	assert.Equal(t, 15*time.Minute, s.JWKSRefresh)
	assert.Equal(t, "@every 1m", s.SweepSchedule)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("QUICKAUTH_STRATEGY", "endpoint")
	t.Setenv("QUICKAUTH_DOMAIN", "example.com")
	t.Setenv("QUICKAUTH_NONCE_TTL", "90s")

	s, err := Load()
	require.NoError(t, err)
	a := s.Accept()
	assert.Equal(t, core.StrategyEndpoint, a.Strategy)
	assert.Equal(t, "example.com", a.Audience)
	assert.Equal(t, "https://auth.farcaster.xyz", a.Issuer.Origin)
	assert.Equal(t, 90*time.Second, s.NonceTTL)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QUICKAUTH_DOMAIN=dotenv.example\n"), 0o600))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("QUICKAUTH_DOMAIN") })

	s, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv.example", s.Domain)
}

func TestLoad_SkipsDotEnvInProduction(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QUICKAUTH_DOMAIN=dotenv.example\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("ENV", "production")

	s, err := Load()
	require.NoError(t, err)
	assert.Empty(t, s.Domain)
}

func TestValidate(t *testing.T) {
	base := Settings{Strategy: "jwks", Scheduler: "timer", NonceTTL: time.Minute}
	require.NoError(t, base.Validate())

	bad := base
	bad.Strategy = "magic"
	assert.Error(t, bad.Validate())

	bad = base
	bad.Scheduler = "river"
	assert.Error(t, bad.Validate(), "river without a database")

	bad.DatabaseURL = "postgres://localhost/quickauth"
	assert.NoError(t, bad.Validate())

	bad = base
	bad.NonceTTL = 0
	assert.Error(t, bad.Validate())
}
