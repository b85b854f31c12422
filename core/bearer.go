package core

import (
	"context"
	"net/http"
	"strings"
)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

type payloadKey struct{}

// WithPayload returns a copy of ctx carrying the verified payload.
func WithPayload(ctx context.Context, p *JWTPayload) context.Context {
	return context.WithValue(ctx, payloadKey{}, p)
}

// PayloadFromContext returns the payload stored by WithPayload.
func PayloadFromContext(ctx context.Context) (*JWTPayload, bool) {
	p, ok := ctx.Value(payloadKey{}).(*JWTPayload)
	return p, ok && p != nil
}
