// Package endpointkit verifies Quick Auth tokens by asking the issuer's
// /verify-jwt endpoint.
package endpointkit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/PaulFidika/quickauth/core"
	"github.com/go-resty/resty/v2"
)

// VerifyPath is the issuer endpoint that checks a token for a domain.
const VerifyPath = "/verify-jwt"

// errorBody is the issuer's 400 response.
type errorBody struct {
	Error        string `json:"error"`
	ErrorMessage string `json:"error_message"`
}

// Verifier delegates verification to the issuer. Each call issues exactly one request.
type Verifier struct {
	client *resty.Client
}

// NewVerifier builds a Verifier on top of hc. A nil hc uses resty's default client.
func NewVerifier(hc *http.Client) *Verifier {
	var c *resty.Client
	if hc != nil {
		c = resty.NewWithClient(hc)
	} else {
		c = resty.New()
	}
	c.SetRetryCount(0)
	c.SetHeader("Accept", "application/json")
	return &Verifier{client: c}
}

// VerifyURL builds the request URL, keeping token before domain.
func VerifyURL(cfg core.Config, opts core.VerifyOptions) string {
	return cfg.BaseURL() + VerifyPath +
		"?token=" + url.QueryEscape(opts.Token) +
		"&domain=" + url.QueryEscape(opts.Domain)
}

// Verify implements core.Verifier.
func (v *Verifier) Verify(ctx context.Context, cfg core.Config, opts core.VerifyOptions) (*core.JWTPayload, error) {
	resp, err := v.client.R().SetContext(ctx).Get(VerifyURL(cfg, opts))
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		var payload core.JWTPayload
		if err := json.Unmarshal(resp.Body(), &payload); err != nil {
			return nil, err
		}
		return &payload, nil
	case http.StatusBadRequest:
		var body errorBody
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, core.NewResponseError(resp.StatusCode())
		}
		switch body.Error {
		case "invalid_token":
			return nil, core.NewInvalidTokenError(body.ErrorMessage)
		case "invalid_params":
			return nil, core.NewInvalidParametersError(body.ErrorMessage)
		}
		return nil, core.NewResponseError(resp.StatusCode())
	default:
		return nil, core.NewResponseError(resp.StatusCode())
	}
}
