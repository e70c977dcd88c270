package oauth

import (
	"github.com/golang-jwt/jwt/v5"
)

// DecodeClaims decodes the payload of a JWT without verifying its signature.
// This is a best-effort diagnostic decode for display: it returns nil for any
// malformed input and never panics. Signature verification is the identity
// provider's side of the contract, not the client's.
func DecodeClaims(token string) map[string]any {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil
	}
	return claims
}
