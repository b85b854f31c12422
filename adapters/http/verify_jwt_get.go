// Package authhttp exposes Quick Auth verification to plain net/http servers.
package authhttp

import (
	"encoding/json"
	"net/http"

	"github.com/PaulFidika/quickauth/core"
	"github.com/PaulFidika/quickauth/logging"
)

// VerifyJWTHandler answers GET ?token=&domain= the way a Quick Auth server does:
// 200 with the payload, or 400 with {error, error_message}.
func VerifyJWTHandler(v core.Verifier, cfg core.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		opts := core.VerifyOptions{Token: q.Get("token"), Domain: q.Get("domain")}

		var (
			payload *core.JWTPayload
			err     = opts.Validate()
		)
		if err == nil {
			payload, err = v.Verify(r.Context(), cfg, opts)
		}
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, payload)
	})
}

// WriteError renders a verification failure. Taxonomy errors carry their
// message; anything else is logged and hidden behind its kind.
func WriteError(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)
	body := map[string]string{"error": kind.String()}
	switch kind {
	case core.KindInvalidToken, core.KindInvalidParameters:
		body["error_message"] = err.Error()
	default:
		logging.Module("authhttp").WithError(err).WithField("kind", kind.String()).Error("verification failed")
	}
	writeJSON(w, kind.HTTPStatus(), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
