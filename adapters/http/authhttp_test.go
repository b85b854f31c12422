package authhttp_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	authhttp "github.com/PaulFidika/quickauth/adapters/http"
	"github.com/PaulFidika/quickauth/core"
	jwtkit "github.com/PaulFidika/quickauth/jwt"
	authtest "github.com/PaulFidika/quickauth/testing"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func verifyRequest(token, domain string) *http.Request {
	q := url.Values{}
	q.Set("token", token)
	q.Set("domain", domain)
	return httptest.NewRequest(http.MethodGet, "/verify-jwt?"+q.Encode(), nil)
}

func TestVerifyJWTHandler(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()
	h := authhttp.VerifyJWTHandler(jwtkit.NewJWKSVerifier(jwtkit.StaticKeySet{Set: mustKeySet(t, issuer)}), issuer.Config())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, verifyRequest(issuer.CreateToken(321), issuer.Audience()))
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 321, body["sub"])
	assert.Equal(t, issuer.URL(), body["iss"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, verifyRequest(issuer.CreateExpiredToken(321), issuer.Audience()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode(t, w)
	assert.Equal(t, "invalid_token", body["error"])
	assert.NotEmpty(t, body["error_message"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, verifyRequest("", issuer.Audience()))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_params", decode(t, w)["error"])

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/verify-jwt", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func mustKeySet(t *testing.T, issuer *authtest.TestIssuer) jwk.Set {
	t.Helper()
	set, err := issuer.KeySet(context.Background(), "")
	require.NoError(t, err)
	return set
}

func TestWriteError_Kinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{core.NewInvalidTokenError("bad"), http.StatusBadRequest, "invalid_token"},
		{core.NewInvalidParametersError("missing"), http.StatusBadRequest, "invalid_params"},
		{core.NewResponseError(503), http.StatusBadGateway, "response_error"},
		{errors.New("dial tcp: refused"), http.StatusInternalServerError, "unknown"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		authhttp.WriteError(w, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.code)
		body := decode(t, w)
		assert.Equal(t, tc.code, body["error"])
		if tc.status == http.StatusBadRequest {
			assert.Equal(t, tc.err.Error(), body["error_message"])
		} else {
			assert.NotContains(t, body, "error_message")
		}
	}
}

func TestRequireQuickAuth(t *testing.T) {
	issuer := authtest.NewTestIssuer()
	defer issuer.Close()

	v := jwtkit.NewJWKSVerifier(issuer)
	var seen *core.JWTPayload
	h := authhttp.RequireQuickAuth(v, issuer.Config(), issuer.Audience())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = authhttp.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issuer.CreateToken(77))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, seen)
	assert.EqualValues(t, 77, seen.Sub)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "missing_token", decode(t, w)["error"])

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+issuer.CreateForeignToken(77))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Header().Get("WWW-Authenticate"), "invalid_token")
}

func TestRequireQuickAuth_UpstreamFailure(t *testing.T) {
	failing := core.VerifierFunc(func(context.Context, core.Config, core.VerifyOptions) (*core.JWTPayload, error) {
		return nil, core.NewResponseError(500)
	})
	h := authhttp.RequireQuickAuth(failing, core.Config{Origin: "https://issuer.example"}, "example.com")(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { t.Fatal("handler reached") }),
	)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
