// Package oauth implements the client side of the OAuth 2.0 authorization
// code flow with PKCE (RFC 7636) against a Cognito-style OIDC provider:
// authorization URL construction, code exchange, token refresh, userinfo,
// and logout.
package oauth

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingVerifier is returned by ExchangeCode when no code verifier is
	// stored, e.g. the callback was reached without a prior authorization
	// request or the store was cleared.
	ErrMissingVerifier = errors.New("oauth: code verifier not found")

	// ErrNoRefreshToken is returned by Refresh when no refresh token is stored.
	ErrNoRefreshToken = errors.New("oauth: no refresh token available")

	// ErrNoAccessToken is returned by FetchUserInfo when no access token is stored.
	ErrNoAccessToken = errors.New("oauth: no access token available")
)

// TokenExchangeError is returned when the token endpoint rejects an
// authorization code grant. Body carries the provider's error response.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("oauth: token exchange failed with status %d: %s", e.StatusCode, e.Body)
}

// RefreshError is returned when the token endpoint rejects a refresh grant.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("oauth: token refresh failed with status %d: %s", e.StatusCode, e.Body)
}

// UserInfoError is returned when the userinfo endpoint rejects the access token.
type UserInfoError struct {
	StatusCode int
	Body       string
}

func (e *UserInfoError) Error() string {
	return fmt.Sprintf("oauth: userinfo request failed with status %d: %s", e.StatusCode, e.Body)
}

// TokenSet holds the tokens issued by the provider. The client treats them
// as opaque signed strings; claims are decoded for display only, never
// verified locally.
type TokenSet struct {
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// UserInfo holds the profile returned by the userinfo endpoint.
type UserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	EmailVerified string `json:"email_verified"`
}

// Config holds the provider and client settings for the PKCE flow.
type Config struct {
	// ClientID is the public OAuth client ID. PKCE replaces the client secret.
	ClientID string

	// Domain is the provider base URL, e.g.
	// "https://example.auth.eu-west-1.amazoncognito.com".
	Domain string

	// RedirectURI receives the authorization code after login.
	RedirectURI string

	// LogoutURI is the post-logout redirect target.
	LogoutURI string

	// Scopes defaults to "openid profile email".
	Scopes []string
}
