package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/PaulFidika/quickauth/adapters/ginutil"
	"github.com/gin-gonic/gin"
)

// NonceIssuer creates single-use nonces.
type NonceIssuer interface {
	Generate(ctx context.Context) (string, time.Time, error)
}

func HandleNoncePOST(nonces NonceIssuer, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLNonceIssue) {
			ginutil.TooMany(c)
			return
		}
		id, expiresAt, err := nonces.Generate(c.Request.Context())
		if err != nil {
			ginutil.ServerErrWithLog(c, "nonce_unavailable", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"nonce":      id,
			"expires_at": expiresAt.UTC().Format(time.RFC3339),
		})
	}
}
