package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/PaulFidika/quickauth/adapters/ginutil"
	"github.com/PaulFidika/quickauth/siwf"
	"github.com/gin-gonic/gin"
)

// SIWFVerifier checks a signed sign-in message and spends its nonce.
type SIWFVerifier interface {
	Verify(ctx context.Context, message, signature string) (*siwf.Result, error)
}

func HandleSIWFVerifyPOST(v SIWFVerifier, rl ginutil.RateLimiter) gin.HandlerFunc {
	type verifyReq struct {
		Message   string `json:"message"`
		Signature string `json:"signature"`
	}
	return func(c *gin.Context) {
		if !ginutil.AllowNamed(c, rl, ginutil.RLSIWFVerify) {
			ginutil.TooMany(c)
			return
		}

		var req verifyReq
		if err := c.ShouldBindJSON(&req); err != nil {
			ginutil.BadRequest(c, "invalid_request")
			return
		}
		if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.Signature) == "" {
			ginutil.BadRequest(c, "invalid_request")
			return
		}

		res, err := v.Verify(c.Request.Context(), req.Message, req.Signature)
		switch {
		case err == nil:
		case errors.Is(err, siwf.ErrNonceStore):
			ginutil.ServerErrWithLog(c, "nonce_unavailable", err)
			return
		case errors.Is(err, siwf.ErrNonceRejected):
			ginutil.Unauthorized(c, "invalid_nonce")
			return
		case errors.Is(err, siwf.ErrSignatureMismatch):
			ginutil.Unauthorized(c, "invalid_signature")
			return
		default:
			ginutil.BadRequestMsg(c, "invalid_message", err.Error())
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":      true,
			"address": res.Address,
			"fid":     res.FID,
		})
	}
}
