package jwtkit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/PaulFidika/quickauth/core"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// JWKSPath is where a Quick Auth server publishes its signing keys.
const JWKSPath = "/.well-known/jwks.json"

// JWKSURL derives the key set location for an issuer.
func JWKSURL(cfg core.Config) string { return cfg.BaseURL() + JWKSPath }

// KeySetProvider supplies issuer key sets.
type KeySetProvider interface {
	// KeySet returns the key set published at url, from cache where possible.
	KeySet(ctx context.Context, url string) (jwk.Set, error)
	// Refresh re-fetches the key set at url. Implementations may throttle and
	// hand back the cached set instead.
	Refresh(ctx context.Context, url string) (jwk.Set, error)
}

// StaticKeySet serves a fixed key set regardless of url (pinned keys, tests).
type StaticKeySet struct {
	Set jwk.Set
}

func (s StaticKeySet) KeySet(context.Context, string) (jwk.Set, error) { return s.Set, nil }
func (s StaticKeySet) Refresh(context.Context, string) (jwk.Set, error) { return s.Set, nil }

// CachedKeySets fetches key sets over HTTP and keeps them in a jwx cache that
// refreshes in the background.
type CachedKeySets struct {
	cache      *jwk.Cache
	client     *http.Client
	minRefresh time.Duration

	mu          sync.Mutex
	lastRefresh map[string]time.Time
}

// NewCachedKeySets creates a key set cache bound to ctx. The cache stops
// refreshing when ctx is cancelled. minRefresh <= 0 defaults to 15 minutes.
func NewCachedKeySets(ctx context.Context, client *http.Client, minRefresh time.Duration) *CachedKeySets {
	if minRefresh <= 0 {
		minRefresh = 15 * time.Minute
	}
	return &CachedKeySets{
		cache:       jwk.NewCache(ctx),
		client:      client,
		minRefresh:  minRefresh,
		lastRefresh: make(map[string]time.Time),
	}
}

func (c *CachedKeySets) register(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache.IsRegistered(url) {
		return nil
	}
	opts := []jwk.RegisterOption{jwk.WithMinRefreshInterval(c.minRefresh)}
	if c.client != nil {
		opts = append(opts, jwk.WithHTTPClient(c.client))
	}
	return c.cache.Register(url, opts...)
}

// KeySet implements KeySetProvider.
func (c *CachedKeySets) KeySet(ctx context.Context, url string) (jwk.Set, error) {
	if err := c.register(url); err != nil {
		return nil, err
	}
	return c.cache.Get(ctx, url)
}

// Refresh implements KeySetProvider. At most one forced refresh per url runs
// per minimum refresh interval; calls inside the window get the cached set.
func (c *CachedKeySets) Refresh(ctx context.Context, url string) (jwk.Set, error) {
	if err := c.register(url); err != nil {
		return nil, err
	}
	c.mu.Lock()
	last, seen := c.lastRefresh[url]
	throttled := seen && time.Since(last) < c.minRefresh
	if !throttled {
		c.lastRefresh[url] = time.Now()
	}
	c.mu.Unlock()
	if throttled {
		return c.cache.Get(ctx, url)
	}
	return c.cache.Refresh(ctx, url)
}

// NewPublicKeySet wraps a single public key into a key set carrying kid and alg.
func NewPublicKeySet(pub any, kid string, alg jwa.SignatureAlgorithm) (jwk.Set, error) {
	key, err := jwk.PublicKeyOf(pub)
	if err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyIDKey, kid); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.AlgorithmKey, alg); err != nil {
		return nil, err
	}
	if err := key.Set(jwk.KeyUsageKey, "sig"); err != nil {
		return nil, err
	}
	set := jwk.NewSet()
	if err := set.AddKey(key); err != nil {
		return nil, err
	}
	return set, nil
}

// ServeJWKS writes the key set JSON to the ResponseWriter.
func ServeJWKS(w http.ResponseWriter, r *http.Request, ks jwk.Set) {
	// Marshal first to compute a stable ETag and set cache headers
	b, err := json.Marshal(ks)
	if err != nil {
		http.Error(w, "failed to encode key set", http.StatusInternalServerError)
		return
	}
	sum := sha256.Sum256(b)
	etag := "\"" + hex.EncodeToString(sum[:]) + "\""

	// Conditional GET support
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300, must-revalidate")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(b)
}
