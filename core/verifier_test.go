package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testConfig  = Config{Origin: "https://test.example.com"}
	testOptions = VerifyOptions{Token: "mock-jwt-token", Domain: "example.com"}
	testPayload = &JWTPayload{
		Sub: 123,
		Iss: "https://test.example.com",
		Exp: 123456789,
		Aud: "example.com",
		Iat: 123456700,
	}
)

func fixed(p *JWTPayload, err error) Verifier {
	return VerifierFunc(func(context.Context, Config, VerifyOptions) (*JWTPayload, error) {
		return p, err
	})
}

func TestDispatcher_DefaultsToJWKS(t *testing.T) {
	var called Strategy
	impls := map[Strategy]Verifier{
		StrategyJWKS: VerifierFunc(func(_ context.Context, cfg Config, opts VerifyOptions) (*JWTPayload, error) {
			called = StrategyJWKS
			assert.Equal(t, testConfig, cfg)
			assert.Equal(t, testOptions, opts)
			return testPayload, nil
		}),
		StrategyEndpoint: VerifierFunc(func(context.Context, Config, VerifyOptions) (*JWTPayload, error) {
			called = StrategyEndpoint
			return nil, errors.New("should not be called")
		}),
	}

	d, err := NewDispatcher("", impls)
	require.NoError(t, err)
	assert.Equal(t, StrategyJWKS, d.Strategy())

	got, err := d.Verify(context.Background(), testConfig, testOptions)
	require.NoError(t, err)
	assert.Equal(t, testPayload, got)
	assert.Equal(t, StrategyJWKS, called)
}

func TestDispatcher_SelectsEndpoint(t *testing.T) {
	d, err := NewDispatcher(StrategyEndpoint, map[Strategy]Verifier{
		StrategyJWKS:     fixed(nil, errors.New("wrong strategy")),
		StrategyEndpoint: fixed(testPayload, nil),
	})
	require.NoError(t, err)

	got, err := d.Verify(context.Background(), testConfig, testOptions)
	require.NoError(t, err)
	assert.Equal(t, testPayload, got)
}

func TestDispatcher_PropagatesErrorsUnchanged(t *testing.T) {
	t.Run("invalid token", func(t *testing.T) {
		want := NewInvalidTokenError("Token has expired")
		d, err := NewDispatcher(StrategyJWKS, map[Strategy]Verifier{StrategyJWKS: fixed(nil, want)})
		require.NoError(t, err)

		_, err = d.Verify(context.Background(), testConfig, testOptions)
		assert.Same(t, want, err)
		assert.EqualError(t, err, "Token has expired")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
	t.Run("unclassified", func(t *testing.T) {
		want := errors.New("Network error")
		d, err := NewDispatcher(StrategyJWKS, map[Strategy]Verifier{StrategyJWKS: fixed(nil, want)})
		require.NoError(t, err)

		_, err = d.Verify(context.Background(), testConfig, testOptions)
		assert.Equal(t, want, err)
		assert.Equal(t, KindUnknown, KindOf(err))
	})
}

func TestNewDispatcher_MissingImplementation(t *testing.T) {
	_, err := NewDispatcher(StrategyEndpoint, map[Strategy]Verifier{StrategyJWKS: fixed(testPayload, nil)})
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": StrategyJWKS, "JWKS": StrategyJWKS, " endpoint ": StrategyEndpoint} {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStrategy("introspection")
	assert.Error(t, err)
}
