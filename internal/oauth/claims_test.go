package oauth

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeToken builds an unsigned JWT-shaped string from a claims payload.
func makeToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".sig"
}

func TestDecodeClaims(t *testing.T) {
	token := makeToken(t, map[string]any{
		"sub":   "user-123",
		"email": "operator@example.com",
	})

	claims := DecodeClaims(token)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims["sub"])
	assert.Equal(t, "operator@example.com", claims["email"])
}

func TestDecodeClaims_Malformed(t *testing.T) {
	badPayload := base64.RawURLEncoding.EncodeToString([]byte("not json"))
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"no separator", "nodotshere"},
		{"too few segments", "a.b"},
		{"not base64", "a.!!!.c"},
		{"valid base64 invalid json", header + "." + badPayload + ".sig"},
		{"whitespace", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, DecodeClaims(tt.token))
		})
	}
}

func TestDecodeClaims_NeverVerifiesSignature(t *testing.T) {
	// A garbage signature segment must not prevent decoding.
	token := makeToken(t, map[string]any{"sub": "user-123"})
	claims := DecodeClaims(token)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims["sub"])
}
