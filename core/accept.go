package core

import "time"

// AcceptConfig configures verification of Quick Auth tokens (verify-only mode).
type AcceptConfig struct {
	Issuer   Config
	Audience string // Expected audience for this service (single value)
	Strategy Strategy
	// JWKSRefresh bounds how often the cached key set is re-fetched.
	JWKSRefresh time.Duration
}

// Options returns the per-call verification options for token.
func (a AcceptConfig) Options(token string) VerifyOptions {
	return VerifyOptions{Token: token, Domain: a.Audience}
}
