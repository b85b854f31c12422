package ginutil

import (
	"net/http"

	"github.com/PaulFidika/quickauth/logging"
	"github.com/gin-gonic/gin"
)

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

// BadRequestMsg writes the {error, error_message} body used by /verify-jwt.
func BadRequestMsg(c *gin.Context, code, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code, "error_message": msg})
}

func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func BadGateway(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": code})
}

func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}

// ServerErrWithLog logs err with the request id before answering 500.
func ServerErrWithLog(c *gin.Context, code string, err error) {
	logging.Module("http").
		WithError(err).
		WithField("request_id", c.GetString(RequestIDKey)).
		WithField("path", c.FullPath()).
		Error(code)
	ServerErr(c, code)
}
