// Package quickauth wires the Quick Auth verification strategies behind a
// single dispatcher.
package quickauth

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/PaulFidika/quickauth/core"
	endpointkit "github.com/PaulFidika/quickauth/endpoint"
	jwtkit "github.com/PaulFidika/quickauth/jwt"
)

// DefaultOrigin is the public Quick Auth server.
const DefaultOrigin = "https://auth.farcaster.xyz"

type options struct {
	ctx         context.Context
	strategy    core.Strategy
	client      *http.Client
	keys        jwtkit.KeySetProvider
	jwksRefresh time.Duration
	verifyOpts  []jwtkit.VerifierOpt
}

// Option configures New.
type Option func(*options)

// WithStrategy selects the verification strategy. Defaults to core.StrategyJWKS.
func WithStrategy(s core.Strategy) Option { return func(o *options) { o.strategy = s } }

// WithHTTPClient sets the client used for key set fetches and endpoint calls.
func WithHTTPClient(c *http.Client) Option { return func(o *options) { o.client = c } }

// WithKeySetProvider replaces the cached HTTP key set source.
func WithKeySetProvider(p jwtkit.KeySetProvider) Option { return func(o *options) { o.keys = p } }

// WithJWKSRefresh bounds how often the key set is re-fetched.
func WithJWKSRefresh(d time.Duration) Option { return func(o *options) { o.jwksRefresh = d } }

// WithContext bounds the lifetime of the background key set refresher.
func WithContext(ctx context.Context) Option { return func(o *options) { o.ctx = ctx } }

// WithVerifierOptions passes options through to the JWKS verifier.
func WithVerifierOptions(opts ...jwtkit.VerifierOpt) Option {
	return func(o *options) { o.verifyOpts = append(o.verifyOpts, opts...) }
}

// New builds a dispatcher with both strategies registered.
func New(opts ...Option) (*core.Dispatcher, error) {
	o := options{ctx: context.Background(), strategy: core.StrategyJWKS}
	for _, opt := range opts {
		opt(&o)
	}
	keys := o.keys
	if keys == nil {
		keys = jwtkit.NewCachedKeySets(o.ctx, o.client, o.jwksRefresh)
	}
	return core.NewDispatcher(o.strategy, map[core.Strategy]core.Verifier{
		core.StrategyJWKS:     jwtkit.NewJWKSVerifier(keys, o.verifyOpts...),
		core.StrategyEndpoint: endpointkit.NewVerifier(o.client),
	})
}

var (
	defaultOnce       sync.Once
	defaultDispatcher *core.Dispatcher
	defaultErr        error
)

// Verify checks a token with a process-wide JWKS dispatcher.
func Verify(ctx context.Context, cfg core.Config, opts core.VerifyOptions) (*core.JWTPayload, error) {
	defaultOnce.Do(func() {
		defaultDispatcher, defaultErr = New()
	})
	if defaultErr != nil {
		return nil, defaultErr
	}
	return defaultDispatcher.Verify(ctx, cfg, opts)
}
