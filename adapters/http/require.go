package authhttp

import (
	"context"
	"net/http"

	"github.com/PaulFidika/quickauth/core"
)

// RequireQuickAuth rejects requests without a valid Quick Auth bearer token for
// domain. The verified payload is available to next via ClaimsFromContext.
func RequireQuickAuth(v core.Verifier, cfg core.Config, domain string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := core.BearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="quickauth"`)
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing_token"})
				return
			}
			payload, err := v.Verify(r.Context(), cfg, core.VerifyOptions{Token: token, Domain: domain})
			if err != nil {
				if core.KindOf(err) == core.KindInvalidToken {
					w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
					writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_token"})
					return
				}
				WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(core.WithPayload(r.Context(), payload)))
		})
	}
}

// ClaimsFromContext returns the payload verified by RequireQuickAuth.
func ClaimsFromContext(ctx context.Context) (*core.JWTPayload, bool) {
	return core.PayloadFromContext(ctx)
}
