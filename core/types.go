package core

import (
	"strings"
)

// Config identifies the Quick Auth server that issued the tokens being verified.
type Config struct {
	// Origin is the issuer base URL, e.g. https://auth.farcaster.xyz.
	// Tokens must carry it verbatim as their iss claim.
	Origin string
}

// BaseURL returns Origin without trailing slashes, suitable for joining paths.
func (c Config) BaseURL() string { return strings.TrimRight(c.Origin, "/") }

// VerifyOptions is the token presented by a client and the audience it must be scoped to.
type VerifyOptions struct {
	Token  string
	Domain string
}

// Validate checks that both fields are present.
func (o VerifyOptions) Validate() error {
	switch {
	case strings.TrimSpace(o.Token) == "":
		return NewInvalidParametersError("token is required")
	case strings.TrimSpace(o.Domain) == "":
		return NewInvalidParametersError("domain is required")
	}
	return nil
}

// JWTPayload holds the verified claims of a Quick Auth token.
type JWTPayload struct {
	// Sub is the user's Farcaster ID.
	Sub int64 `json:"sub"`
	// Iss is the Quick Auth server that issued the token.
	Iss string `json:"iss"`
	// Aud is the domain the token was issued to.
	Aud string `json:"aud"`
	// Exp is the expiration time in unix seconds.
	Exp int64 `json:"exp"`
	// Iat is the issued-at time in unix seconds.
	Iat int64 `json:"iat"`
}
