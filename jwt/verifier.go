package jwtkit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/PaulFidika/quickauth/core"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

var allowedAlgorithms = []string{"RS256", "RS384", "RS512", "PS256", "ES256", "ES384", "EdDSA"}

var (
	errUnknownKeyID = errors.New("no key in the issuer key set matches the token kid")
	errKeyAlgorithm = errors.New("token algorithm does not match the key algorithm")
)

// tokenErrors is the closed set of validator failures that describe the token
// itself. Anything else is returned to the caller unchanged.
var tokenErrors = []error{
	jwt.ErrTokenMalformed,
	jwt.ErrTokenUnverifiable,
	jwt.ErrTokenSignatureInvalid,
	jwt.ErrTokenInvalidClaims,
	jwt.ErrTokenExpired,
	jwt.ErrTokenNotValidYet,
	jwt.ErrTokenUsedBeforeIssued,
	jwt.ErrTokenInvalidIssuer,
	jwt.ErrTokenInvalidAudience,
	jwt.ErrTokenRequiredClaimMissing,
}

// keySetError marks a failure to obtain usable key material. It says nothing
// about the token and must not be reported as an invalid token.
type keySetError struct{ err error }

func (e *keySetError) Error() string { return e.err.Error() }
func (e *keySetError) Unwrap() error { return e.err }

// JWKSVerifier validates Quick Auth tokens locally against the issuer's key set.
type JWKSVerifier struct {
	keys   KeySetProvider
	leeway time.Duration
	now    func() time.Time
}

// VerifierOpt configures a JWKSVerifier.
type VerifierOpt func(*JWKSVerifier)

// WithLeeway tolerates clock skew when checking exp/nbf/iat.
func WithLeeway(d time.Duration) VerifierOpt {
	return func(v *JWKSVerifier) { v.leeway = d }
}

// WithClock overrides the time source used for claim validation.
func WithClock(now func() time.Time) VerifierOpt {
	return func(v *JWKSVerifier) { v.now = now }
}

// NewJWKSVerifier builds a verifier reading keys from keys.
func NewJWKSVerifier(keys KeySetProvider, opts ...VerifierOpt) *JWKSVerifier {
	v := &JWKSVerifier{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify implements core.Verifier.
func (v *JWKSVerifier) Verify(ctx context.Context, cfg core.Config, opts core.VerifyOptions) (*core.JWTPayload, error) {
	// The validator skips issuer/audience checks for empty expectations.
	if cfg.Origin == "" {
		return nil, core.NewInvalidParametersError("origin is required")
	}
	if opts.Domain == "" {
		return nil, core.NewInvalidParametersError("domain is required")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods(allowedAlgorithms),
		jwt.WithIssuer(cfg.Origin),
		jwt.WithAudience(opts.Domain),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	)
	var claims tokenClaims
	if _, err := parser.ParseWithClaims(opts.Token, &claims, v.keyfunc(ctx, JWKSURL(cfg))); err != nil {
		return nil, classify(err)
	}
	return claims.payload(opts.Domain), nil
}

func (v *JWKSVerifier) keyfunc(ctx context.Context, url string) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		set, err := v.keys.KeySet(ctx, url)
		if err != nil {
			return nil, &keySetError{err: err}
		}
		key, ok := lookupKey(set, kid)
		if !ok {
			// The issuer may have rotated keys since the last fetch.
			if set, err = v.keys.Refresh(ctx, url); err != nil {
				return nil, &keySetError{err: err}
			}
			if key, ok = lookupKey(set, kid); !ok {
				return nil, fmt.Errorf("%w: %q", errUnknownKeyID, kid)
			}
		}
		if alg := key.Algorithm().String(); alg != "" && alg != t.Method.Alg() {
			return nil, fmt.Errorf("%w: %s != %s", errKeyAlgorithm, t.Method.Alg(), alg)
		}
		raw, err := jwk.PublicRawKeyOf(key)
		if err != nil {
			return nil, &keySetError{err: fmt.Errorf("decoding key %q: %w", kid, err)}
		}
		return raw, nil
	}
}

func lookupKey(set jwk.Set, kid string) (jwk.Key, bool) {
	if set == nil {
		return nil, false
	}
	if kid == "" {
		if set.Len() == 1 {
			return set.Key(0)
		}
		return nil, false
	}
	return set.LookupKeyID(kid)
}

// classify maps validator failures onto the error taxonomy.
func classify(err error) error {
	var kse *keySetError
	if errors.As(err, &kse) {
		return kse.err
	}
	for _, target := range tokenErrors {
		if errors.Is(err, target) {
			return &core.InvalidTokenError{Message: err.Error(), Cause: err}
		}
	}
	return err
}

// tokenClaims is the Quick Auth claim set; sub is a numeric Farcaster ID.
type tokenClaims struct {
	Subject   int64            `json:"sub"`
	Issuer    string           `json:"iss"`
	Audience  jwt.ClaimStrings `json:"aud"`
	ExpiresAt *jwt.NumericDate `json:"exp"`
	IssuedAt  *jwt.NumericDate `json:"iat"`
	NotBefore *jwt.NumericDate `json:"nbf,omitempty"`
}

func (c tokenClaims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c tokenClaims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c tokenClaims) GetNotBefore() (*jwt.NumericDate, error)      { return c.NotBefore, nil }
func (c tokenClaims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c tokenClaims) GetAudience() (jwt.ClaimStrings, error)       { return c.Audience, nil }
func (c tokenClaims) GetSubject() (string, error) {
	return strconv.FormatInt(c.Subject, 10), nil
}

func (c tokenClaims) payload(domain string) *core.JWTPayload {
	p := &core.JWTPayload{Sub: c.Subject, Iss: c.Issuer}
	for _, aud := range c.Audience {
		if aud == domain {
			p.Aud = aud
			break
		}
	}
	if c.ExpiresAt != nil {
		p.Exp = c.ExpiresAt.Unix()
	}
	if c.IssuedAt != nil {
		p.Iat = c.IssuedAt.Unix()
	}
	return p
}
