// Package testing provides utilities for testing applications that accept
// Quick Auth tokens. It runs a mock Quick Auth server that publishes a key set,
// answers /verify-jwt, and signs tokens, enabling integration tests without a
// real issuer.
//
// Example usage:
//
//	issuer := authtest.NewTestIssuer()
//	defer issuer.Close()
//
//	payload, err := verifier.Verify(ctx, issuer.Config(), core.VerifyOptions{
//		Token:  issuer.CreateToken(12345),
//		Domain: issuer.Audience(),
//	})
package testing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	authhttp "github.com/PaulFidika/quickauth/adapters/http"
	"github.com/PaulFidika/quickauth/core"
	jwtkit "github.com/PaulFidika/quickauth/jwt"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// TestIssuer provides a complete mock Quick Auth server for testing.
// It serves the key set at /.well-known/jwks.json and the verification
// endpoint at /verify-jwt, and signs tokens that validate against both.
type TestIssuer struct {
	server   *httptest.Server
	audience string

	mu     sync.Mutex
	signer *jwtkit.RSASigner
	keyGen int

	jwksHits   atomic.Int64
	verifyHits atomic.Int64
}

// NewTestIssuer creates a new test issuer whose tokens target example.com.
// Call Close() when done to shut down the test server.
func NewTestIssuer() *TestIssuer {
	return NewTestIssuerWithAudience("example.com")
}

// NewTestIssuerWithAudience creates a test issuer with a specific audience claim.
func NewTestIssuerWithAudience(audience string) *TestIssuer {
	ti := &TestIssuer{audience: audience}
	ti.RotateKey()

	mux := http.NewServeMux()
	mux.HandleFunc(jwtkit.JWKSPath, ti.handleJWKS)
	verifier := jwtkit.NewJWKSVerifier(ti)
	mux.HandleFunc("/verify-jwt", func(w http.ResponseWriter, r *http.Request) {
		ti.verifyHits.Add(1)
		authhttp.VerifyJWTHandler(verifier, ti.Config()).ServeHTTP(w, r)
	})

	ti.server = httptest.NewServer(mux)
	return ti
}

// URL returns the base URL of the test issuer server. Tokens carry it as iss.
func (ti *TestIssuer) URL() string {
	return ti.server.URL
}

// Config returns the verifier configuration pointing at this issuer.
func (ti *TestIssuer) Config() core.Config {
	return core.Config{Origin: ti.URL()}
}

// Audience returns the audience configured for this test issuer.
func (ti *TestIssuer) Audience() string {
	return ti.audience
}

// Client returns an HTTP client that talks to the test server.
func (ti *TestIssuer) Client() *http.Client {
	return ti.server.Client()
}

// JWKSRequests reports how many times the key set has been fetched.
func (ti *TestIssuer) JWKSRequests() int64 { return ti.jwksHits.Load() }

// VerifyRequests reports how many /verify-jwt calls the server has answered.
func (ti *TestIssuer) VerifyRequests() int64 { return ti.verifyHits.Load() }

// Close shuts down the test server.
func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

// RotateKey replaces the signing key with a fresh one under a new kid.
// Tokens signed before the rotation stop validating.
func (ti *TestIssuer) RotateKey() {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.keyGen++
	signer, err := jwtkit.NewRSASigner(2048, fmt.Sprintf("test-key-%d", ti.keyGen))
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	ti.signer = signer
}

func (ti *TestIssuer) currentSigner() *jwtkit.RSASigner {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ti.signer
}

// handleJWKS serves the key set containing the current public key.
func (ti *TestIssuer) handleJWKS(w http.ResponseWriter, r *http.Request) {
	ti.jwksHits.Add(1)
	ks, err := ti.currentSigner().KeySet()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jwtkit.ServeJWKS(w, r, ks)
}

// KeySet implements jwtkit.KeySetProvider with the current public key, so the
// issuer's own /verify-jwt follows key rotation.
func (ti *TestIssuer) KeySet(context.Context, string) (jwk.Set, error) {
	return ti.currentSigner().KeySet()
}

func (ti *TestIssuer) Refresh(ctx context.Context, url string) (jwk.Set, error) {
	return ti.KeySet(ctx, url)
}

// CreateToken creates a signed token for fid, valid for one hour.
// The token validates against the key set served by this issuer.
func (ti *TestIssuer) CreateToken(fid int64) string {
	return ti.CreateTokenWithClaims(fid, nil)
}

// CreateTokenWithClaims creates a signed token with additional or overriding claims.
// The custom claims are merged over the standard ones (sub, iss, aud, exp, iat).
func (ti *TestIssuer) CreateTokenWithClaims(fid int64, extraClaims map[string]any) string {
	claims := jwtkit.QuickAuthClaims(fid, ti.URL(), ti.audience, time.Now(), time.Hour)

	// Merge extra claims
	for k, v := range extraClaims {
		claims[k] = v
	}

	token, err := ti.currentSigner().Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// CreateTokenWithExpiry creates a signed token with a custom expiry time.
func (ti *TestIssuer) CreateTokenWithExpiry(fid int64, expiry time.Time) string {
	return ti.CreateTokenWithClaims(fid, map[string]any{
		"exp": expiry.Unix(),
	})
}

// CreateExpiredToken creates a token that has already expired.
func (ti *TestIssuer) CreateExpiredToken(fid int64) string {
	return ti.CreateTokenWithExpiry(fid, time.Now().Add(-time.Hour))
}

// CreateForeignToken creates a token with valid claims signed by a key this
// issuer never published, reusing the current kid.
func (ti *TestIssuer) CreateForeignToken(fid int64) string {
	foreign, err := jwtkit.NewRSASigner(2048, ti.currentSigner().KID())
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	claims := jwtkit.QuickAuthClaims(fid, ti.URL(), ti.audience, time.Now(), time.Hour)
	token, err := foreign.Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}
