// Package authgin mounts Quick Auth on gin: nonce issuance, Sign In With
// Farcaster, token verification, and bearer middleware.
package authgin

import (
	"net/http"

	"github.com/PaulFidika/quickauth/adapters/gin/handlers"
	"github.com/PaulFidika/quickauth/adapters/ginutil"
	"github.com/PaulFidika/quickauth/core"
	"github.com/gin-gonic/gin"
)

// Service bundles what the HTTP API needs. Nonces and SIWF may be nil, in
// which case their routes are not mounted.
type Service struct {
	Accept   core.AcceptConfig
	Verifier core.Verifier
	Nonces   handlers.NonceIssuer
	SIWF     handlers.SIWFVerifier
	Limiter  ginutil.RateLimiter
	Events   core.AuthEventLogger
}

// GinRegisterAPI mounts the API routes on r:
//
//	POST /nonce
//	POST /siwf/verify
//	GET  /verify-jwt
//	GET  /me            (bearer)
func (s *Service) GinRegisterAPI(r gin.IRouter) {
	if s.Nonces != nil {
		r.POST("/nonce", handlers.HandleNoncePOST(s.Nonces, s.Limiter))
	}
	if s.SIWF != nil {
		r.POST("/siwf/verify", handlers.HandleSIWFVerifyPOST(s.SIWF, s.Limiter))
	}
	r.GET("/verify-jwt", handlers.HandleVerifyJWTGET(s.Verifier, s.Accept.Issuer, s.Events, s.Limiter))
	r.GET("/me", s.AuthRequired(), handleMe)
}

// AuthRequired is AuthRequired bound to the service's verifier and audience.
func (s *Service) AuthRequired() gin.HandlerFunc { return AuthRequired(s.Verifier, s.Accept) }

func (s *Service) AuthOptional() gin.HandlerFunc { return AuthOptional(s.Verifier, s.Accept) }

func handleMe(c *gin.Context) {
	u, _ := CurrentUser(c)
	c.JSON(http.StatusOK, u)
}
