package core

import (
	"context"
	"fmt"
	"strings"
)

// Verifier validates a Quick Auth token and returns its claims.
type Verifier interface {
	Verify(ctx context.Context, cfg Config, opts VerifyOptions) (*JWTPayload, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, cfg Config, opts VerifyOptions) (*JWTPayload, error)

func (f VerifierFunc) Verify(ctx context.Context, cfg Config, opts VerifyOptions) (*JWTPayload, error) {
	return f(ctx, cfg, opts)
}

// Strategy names a verification implementation.
type Strategy string

const (
	// StrategyJWKS verifies locally against the issuer's published key set.
	StrategyJWKS Strategy = "jwks"
	// StrategyEndpoint delegates verification to the issuer's /verify-jwt endpoint.
	StrategyEndpoint Strategy = "endpoint"
)

// ParseStrategy maps a config value to a Strategy. Empty selects StrategyJWKS.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyJWKS:
		return StrategyJWKS, nil
	case StrategyEndpoint:
		return StrategyEndpoint, nil
	default:
		return "", fmt.Errorf("unknown verification strategy %q", s)
	}
}

// Dispatcher forwards every call to exactly one strategy chosen at construction.
// Results and errors are returned unchanged.
type Dispatcher struct {
	strategy Strategy
	target   Verifier
}

// NewDispatcher selects strategy from the provided implementations.
func NewDispatcher(strategy Strategy, impls map[Strategy]Verifier) (*Dispatcher, error) {
	if strategy == "" {
		strategy = StrategyJWKS
	}
	target, ok := impls[strategy]
	if !ok || target == nil {
		return nil, fmt.Errorf("no verifier registered for strategy %q", strategy)
	}
	return &Dispatcher{strategy: strategy, target: target}, nil
}

// Strategy returns the selected strategy.
func (d *Dispatcher) Strategy() Strategy { return d.strategy }

// Verify implements Verifier.
func (d *Dispatcher) Verify(ctx context.Context, cfg Config, opts VerifyOptions) (*JWTPayload, error) {
	return d.target.Verify(ctx, cfg, opts)
}
