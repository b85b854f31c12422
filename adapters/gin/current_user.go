package authgin

import (
	"time"

	"github.com/gin-gonic/gin"
)

// UserView is a unified view of the caller for handlers.
type UserView struct {
	FID       int64     `json:"fid"`
	Domain    string    `json:"domain,omitempty"`
	Issuer    string    `json:"issuer,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`

	Source string `json:"source"` // "claims" | "none"
}

// CurrentUser returns the caller as seen by AuthRequired/AuthOptional.
// Unauthenticated requests get Source "none" and false.
func CurrentUser(c *gin.Context) (UserView, bool) {
	if cl, ok := ClaimsFromGin(c); ok && cl.Sub > 0 {
		return UserView{
			FID:       cl.Sub,
			Domain:    cl.Aud,
			Issuer:    cl.Iss,
			ExpiresAt: time.Unix(cl.Exp, 0).UTC(),
			Source:    "claims",
		}, true
	}
	return UserView{Source: "none"}, false
}
