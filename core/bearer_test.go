package core

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"bearer":       {"Bearer abc.def.ghi", "abc.def.ghi", true},
		"lowercase":    {"bearer abc", "abc", true},
		"missing":      {"", "", false},
		"basic":        {"Basic dXNlcjpwYXNz", "", false},
		"empty token":  {"Bearer   ", "", false},
		"no separator": {"Bearerabc", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			token, ok := BearerToken(r)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestPayloadContext(t *testing.T) {
	_, ok := PayloadFromContext(context.Background())
	assert.False(t, ok)

	p := &JWTPayload{Sub: 42}
	got, ok := PayloadFromContext(WithPayload(context.Background(), p))
	assert.True(t, ok)
	assert.Same(t, p, got)
}
