package authgin

import (
	"net/http"

	"github.com/PaulFidika/quickauth/adapters/ginutil"
	"github.com/PaulFidika/quickauth/core"
	"github.com/gin-gonic/gin"
)

const claimsKey = "auth.claims"

// AuthRequired rejects requests without a valid Quick Auth bearer token.
// Invalid tokens get 401; issuer trouble surfaces as 502 or 500 so clients
// don't discard a token that may still be good.
func AuthRequired(v core.Verifier, accept core.AcceptConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := core.BearerToken(c.Request)
		if !ok {
			c.Header("WWW-Authenticate", `Bearer realm="quickauth"`)
			ginutil.Unauthorized(c, "missing_token")
			return
		}
		if !verifyInto(c, v, accept, token) {
			return
		}
		c.Next()
	}
}

// AuthOptional verifies a bearer token when present and otherwise lets the
// request through anonymously. A present but invalid token is still rejected.
func AuthOptional(v core.Verifier, accept core.AcceptConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := core.BearerToken(c.Request)
		if ok && !verifyInto(c, v, accept, token) {
			return
		}
		c.Next()
	}
}

func verifyInto(c *gin.Context, v core.Verifier, accept core.AcceptConfig, token string) bool {
	payload, err := v.Verify(c.Request.Context(), accept.Issuer, accept.Options(token))
	if err != nil {
		switch core.KindOf(err) {
		case core.KindInvalidToken:
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			ginutil.Unauthorized(c, "invalid_token")
		case core.KindInvalidParameters:
			ginutil.ServerErrWithLog(c, "auth_misconfigured", err)
		case core.KindResponse:
			ginutil.BadGateway(c, "issuer_unavailable")
		default:
			ginutil.ServerErrWithLog(c, "auth_unavailable", err)
		}
		return false
	}
	c.Set(claimsKey, payload)
	c.Set("auth.fid", payload.Sub)
	c.Request = c.Request.WithContext(core.WithPayload(c.Request.Context(), payload))
	return true
}

// ClaimsFromGin returns the payload stored by AuthRequired or AuthOptional.
func ClaimsFromGin(c *gin.Context) (*core.JWTPayload, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*core.JWTPayload)
	return p, ok && p != nil
}

// RequireFID aborts with 403 unless the caller is one of fids.
func RequireFID(fids ...int64) gin.HandlerFunc {
	allowed := make(map[int64]struct{}, len(fids))
	for _, f := range fids {
		allowed[f] = struct{}{}
	}
	return func(c *gin.Context) {
		p, ok := ClaimsFromGin(c)
		if !ok {
			ginutil.Unauthorized(c, "missing_token")
			return
		}
		if _, ok := allowed[p.Sub]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
