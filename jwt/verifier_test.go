package jwtkit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PaulFidika/quickauth/core"
	jwtkit "github.com/PaulFidika/quickauth/jwt"
	authtest "github.com/PaulFidika/quickauth/testing"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVerifier(t *testing.T, issuer *authtest.TestIssuer) (*jwtkit.JWKSVerifier, *jwtkit.CachedKeySets) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	keys := jwtkit.NewCachedKeySets(ctx, issuer.Client(), time.Minute)
	return jwtkit.NewJWKSVerifier(keys), keys
}

func TestJWKSVerifier_ValidToken(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()
	v, _ := newVerifier(t, issuer)

	payload, err := v.Verify(context.Background(), issuer.Config(), core.VerifyOptions{
		Token:  issuer.CreateToken(12345),
		Domain: issuer.Audience(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12345), payload.Sub)
	assert.Equal(t, issuer.URL(), payload.Iss)
	assert.Equal(t, "example.com", payload.Aud)
	assert.Greater(t, payload.Exp, payload.Iat)
}

func TestJWKSVerifier_RejectsBadTokens(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()
	v, _ := newVerifier(t, issuer)

	hmac, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtkit.QuickAuthClaims(1, issuer.URL(), "example.com", time.Now(), time.Hour)).
		SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	cases := map[string]struct {
		token  string
		domain string
	}{
		"expired":         {issuer.CreateExpiredToken(1), "example.com"},
		"wrong audience":  {issuer.CreateToken(1), "other.example"},
		"wrong issuer":    {issuer.CreateTokenWithClaims(1, map[string]any{"iss": "https://evil.example"}), "example.com"},
		"foreign key":     {issuer.CreateForeignToken(1), "example.com"},
		"not yet valid":   {issuer.CreateTokenWithClaims(1, map[string]any{"nbf": time.Now().Add(time.Hour).Unix()}), "example.com"},
		"missing exp":     {issuer.CreateTokenWithClaims(1, map[string]any{"exp": nil}), "example.com"},
		"malformed":       {"not-a-jwt", "example.com"},
		"empty":           {"", "example.com"},
		"hmac algorithm":  {hmac, "example.com"},
		"tampered claims": {issuer.CreateToken(1) + "x", "example.com"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), issuer.Config(), core.VerifyOptions{Token: tc.token, Domain: tc.domain})
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvalidToken)
			assert.Equal(t, core.KindInvalidToken, core.KindOf(err))
		})
	}
}

func TestJWKSVerifier_RefreshesOnUnknownKid(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()
	v, _ := newVerifier(t, issuer)
	opts := func(token string) core.VerifyOptions {
		return core.VerifyOptions{Token: token, Domain: issuer.Audience()}
	}

	_, err := v.Verify(context.Background(), issuer.Config(), opts(issuer.CreateToken(7)))
	require.NoError(t, err)
	fetches := issuer.JWKSRequests()

	issuer.RotateKey()
	payload, err := v.Verify(context.Background(), issuer.Config(), opts(issuer.CreateToken(7)))
	require.NoError(t, err)
	assert.Equal(t, int64(7), payload.Sub)
	assert.Greater(t, issuer.JWKSRequests(), fetches)
}

func TestCachedKeySets_ThrottlesForcedRefresh(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()
	_, keys := newVerifier(t, issuer)
	url := jwtkit.JWKSURL(issuer.Config())

	_, err := keys.KeySet(context.Background(), url)
	require.NoError(t, err)
	_, err = keys.Refresh(context.Background(), url)
	require.NoError(t, err)
	after := issuer.JWKSRequests()

	_, err = keys.Refresh(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, after, issuer.JWKSRequests())
}

type failingKeys struct{ err error }

func (f failingKeys) KeySet(context.Context, string) (jwk.Set, error) { return nil, f.err }
func (f failingKeys) Refresh(context.Context, string) (jwk.Set, error) { return nil, f.err }

func TestJWKSVerifier_KeySetFailurePropagatesUnchanged(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()
	netErr := errors.New("Network error")
	v := jwtkit.NewJWKSVerifier(failingKeys{err: netErr})

	_, err := v.Verify(context.Background(), issuer.Config(), core.VerifyOptions{
		Token:  issuer.CreateToken(1),
		Domain: issuer.Audience(),
	})
	assert.Same(t, netErr, err)
	assert.Equal(t, core.KindUnknown, core.KindOf(err))
}

func TestJWKSVerifier_UnreachableIssuerIsNotInvalidToken(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	token := issuer.CreateToken(1)
	cfg := issuer.Config()
	issuer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v := jwtkit.NewJWKSVerifier(jwtkit.NewCachedKeySets(ctx, nil, time.Minute))

	_, err := v.Verify(ctx, cfg, core.VerifyOptions{Token: token, Domain: "example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrInvalidToken)
}

func TestJWKSVerifier_RequiresDomainAndOrigin(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()
	v, _ := newVerifier(t, issuer)

	_, err := v.Verify(context.Background(), issuer.Config(), core.VerifyOptions{Token: issuer.CreateToken(1)})
	assert.ErrorIs(t, err, core.ErrInvalidParameters)

	_, err = v.Verify(context.Background(), core.Config{}, core.VerifyOptions{Token: issuer.CreateToken(1), Domain: "example.com"})
	assert.ErrorIs(t, err, core.ErrInvalidParameters)
}

func TestJWKSVerifier_Leeway(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()
	keys := jwtkit.StaticKeySet{}
	ks, err := fetchKeys(t, issuer)
	require.NoError(t, err)
	keys.Set = ks

	token := issuer.CreateTokenWithExpiry(9, time.Now().Add(-10*time.Second))
	opts := core.VerifyOptions{Token: token, Domain: issuer.Audience()}

	_, err = jwtkit.NewJWKSVerifier(keys).Verify(context.Background(), issuer.Config(), opts)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	payload, err := jwtkit.NewJWKSVerifier(keys, jwtkit.WithLeeway(time.Minute)).Verify(context.Background(), issuer.Config(), opts)
	require.NoError(t, err)
	assert.Equal(t, int64(9), payload.Sub)
}

func fetchKeys(t *testing.T, issuer *authtest.TestIssuer) (jwk.Set, error) {
	t.Helper()
	return jwk.Fetch(context.Background(), jwtkit.JWKSURL(issuer.Config()), jwk.WithHTTPClient(issuer.Client()))
}
