package handlers

import (
	"net/http"

	"github.com/PaulFidika/quickauth/adapters/ginutil"
	"github.com/PaulFidika/quickauth/core"
	"github.com/gin-gonic/gin"
)

// HandleVerifyJWTGET mirrors the issuer's /verify-jwt contract on top of v.
// events may be nil.
func HandleVerifyJWTGET(v core.Verifier, cfg core.Config, events core.AuthEventLogger, rl ginutil.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLVerifyJWT) {
			ginutil.TooMany(c)
			return
		}
		opts := core.VerifyOptions{Token: c.Query("token"), Domain: c.Query("domain")}

		var (
			payload *core.JWTPayload
			err     = opts.Validate()
		)
		if err == nil {
			payload, err = v.Verify(c.Request.Context(), cfg, opts)
			if events != nil {
				events.LogVerification(c.Request.Context(), strategyOf(v), opts.Domain, payload, err)
			}
		}
		if err != nil {
			kind := core.KindOf(err)
			switch kind {
			case core.KindInvalidToken, core.KindInvalidParameters:
				ginutil.BadRequestMsg(c, kind.String(), err.Error())
			case core.KindResponse:
				ginutil.BadGateway(c, kind.String())
			default:
				ginutil.ServerErrWithLog(c, "verification_failed", err)
			}
			return
		}
		c.JSON(http.StatusOK, payload)
	}
}

func strategyOf(v core.Verifier) core.Strategy {
	if d, ok := v.(interface{ Strategy() core.Strategy }); ok {
		return d.Strategy()
	}
	return ""
}
