package ginutil

import (
	"context"

	"github.com/PaulFidika/quickauth/logging"
	"github.com/gin-gonic/gin"
)

// Rate limit buckets.
const (
	RLNonceIssue = "nonce_issue"
	RLSIWFVerify = "siwf_verify"
	RLVerifyJWT  = "verify_jwt"
)

// RateLimiter decides whether key may make another request in bucket.
type RateLimiter interface {
	Allow(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed applies bucket to the caller's IP. A nil limiter allows everything;
// limiter failures are logged and let the request through.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.Allow(c.Request.Context(), bucket, c.ClientIP())
	if err != nil {
		logging.Module("ratelimit").WithError(err).WithField("bucket", bucket).Warn("rate limiter unavailable")
		return true
	}
	return ok
}
