package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/markb/plcgate/internal/pkce"
	"github.com/markb/plcgate/internal/tokenstore"
)

// verifierTTL bounds how long an authorization attempt may stay in flight.
const verifierTTL = 10 * time.Minute

// Client drives the PKCE authorization code flow. At most one authorization
// attempt is in flight per store: starting a new one replaces the stored
// verifier and invalidates the earlier attempt.
type Client struct {
	cfg   Config
	oauth *oauth2.Config
	store tokenstore.Store
	httpc *http.Client
	trail *DebugTrail
}

// NewClient creates a client backed by the given token store.
func NewClient(cfg Config, store tokenstore.Store) *Client {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.Domain + "/oauth2/authorize",
				TokenURL: cfg.Domain + "/oauth2/token",
				// Cognito public clients pass client_id in the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store: store,
		httpc: http.DefaultClient,
		trail: NewDebugTrail(),
	}
}

// SetHTTPClient overrides the HTTP client used for userinfo requests.
func (c *Client) SetHTTPClient(httpc *http.Client) {
	c.httpc = httpc
}

// Trail returns the diagnostic trail of flow steps.
func (c *Client) Trail() *DebugTrail {
	return c.trail
}

// CreateAuthorizationRequest generates a fresh verifier, stores it for the
// round-trip, and returns the authorization URL carrying the S256 challenge.
// Any previously stored verifier is overwritten.
func (c *Client) CreateAuthorizationRequest(ctx context.Context) (string, error) {
	verifier, err := pkce.GenerateCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("oauth: generate code verifier: %w", err)
	}
	challenge := pkce.ChallengeS256(verifier)

	if err := c.store.SetExpiring(tokenstore.KeyCodeVerifier, verifier, verifierTTL); err != nil {
		return "", fmt.Errorf("oauth: store code verifier: %w", err)
	}

	authURL := c.oauth.AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)

	c.trail.Add("authorization request created", map[string]any{
		"code_challenge": challenge,
		"redirect_uri":   c.cfg.RedirectURI,
		"scopes":         c.oauth.Scopes,
	})

	return authURL, nil
}

// ExchangeCode redeems an authorization code for tokens using the stored
// verifier. The verifier never survives the attempt, successful or not; a
// second exchange for the same code therefore fails with ErrMissingVerifier
// before any network call.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenSet, error) {
	verifier, err := c.store.Get(tokenstore.KeyCodeVerifier)
	if err != nil {
		if errors.Is(err, tokenstore.ErrKeyNotFound) {
			return nil, ErrMissingVerifier
		}
		return nil, fmt.Errorf("oauth: read code verifier: %w", err)
	}
	defer c.store.Delete(tokenstore.KeyCodeVerifier)

	c.trail.Add("token exchange requested", map[string]any{
		"code": truncate(code),
	})

	tok, err := c.oauth.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &TokenExchangeError{
				StatusCode: re.Response.StatusCode,
				Body:       string(re.Body),
			}
		}
		return nil, fmt.Errorf("oauth: token request failed: %w", err)
	}

	set := tokenSetFrom(tok)
	if err := c.persist(set); err != nil {
		return nil, err
	}

	c.trail.Add("token exchange succeeded", map[string]any{
		"has_refresh_token": set.RefreshToken != "",
		"expires_in":        set.ExpiresIn,
	})

	return set, nil
}

// Refresh obtains new id and access tokens with the stored refresh token.
// The refresh token is only replaced if the provider returns a new one.
func (c *Client) Refresh(ctx context.Context) (*TokenSet, error) {
	refreshToken, err := c.store.Get(tokenstore.KeyRefreshToken)
	if err != nil {
		if errors.Is(err, tokenstore.ErrKeyNotFound) {
			return nil, ErrNoRefreshToken
		}
		return nil, fmt.Errorf("oauth: read refresh token: %w", err)
	}

	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &RefreshError{
				StatusCode: re.Response.StatusCode,
				Body:       string(re.Body),
			}
		}
		return nil, fmt.Errorf("oauth: refresh request failed: %w", err)
	}

	set := tokenSetFrom(tok)
	if set.RefreshToken == refreshToken {
		// Provider echoed the same token; nothing to rotate.
		set.RefreshToken = ""
	}
	if err := c.persist(set); err != nil {
		return nil, err
	}

	c.trail.Add("tokens refreshed", map[string]any{
		"rotated_refresh_token": set.RefreshToken != "",
		"expires_in":            set.ExpiresIn,
	})

	return set, nil
}

// FetchUserInfo calls the userinfo endpoint with the stored access token.
// No network call is made when no token is stored.
func (c *Client) FetchUserInfo(ctx context.Context) (*UserInfo, error) {
	accessToken, err := c.store.Get(tokenstore.KeyAccessToken)
	if err != nil {
		if errors.Is(err, tokenstore.ErrKeyNotFound) {
			return nil, ErrNoAccessToken
		}
		return nil, fmt.Errorf("oauth: read access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.cfg.Domain+"/oauth2/userInfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oauth: userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &UserInfoError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var info UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("oauth: failed to decode userinfo: %w", err)
	}

	c.trail.Add("userinfo fetched", map[string]any{
		"sub":   info.Sub,
		"email": info.Email,
	})

	return &info, nil
}

// Logout clears all stored tokens and returns the provider logout URL the
// caller should visit to end the provider session.
func (c *Client) Logout() (string, error) {
	for _, key := range []string{tokenstore.KeyIDToken, tokenstore.KeyAccessToken, tokenstore.KeyRefreshToken} {
		if err := c.store.Delete(key); err != nil {
			return "", fmt.Errorf("oauth: clear %s: %w", key, err)
		}
	}

	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("logout_uri", c.cfg.LogoutURI)

	c.trail.Add("logged out", map[string]any{
		"logout_uri": c.cfg.LogoutURI,
	})

	return c.cfg.Domain + "/logout?" + params.Encode(), nil
}

// HasAccessToken reports whether an access token is stored.
func (c *Client) HasAccessToken() bool {
	_, err := c.store.Get(tokenstore.KeyAccessToken)
	return err == nil
}

// AccessToken returns the stored access token, or ErrNoAccessToken.
func (c *Client) AccessToken() (string, error) {
	token, err := c.store.Get(tokenstore.KeyAccessToken)
	if err != nil {
		if errors.Is(err, tokenstore.ErrKeyNotFound) {
			return "", ErrNoAccessToken
		}
		return "", err
	}
	return token, nil
}

// persist stores a freshly exchanged token set. Fields are written
// individually; the refresh token is only stored when present.
func (c *Client) persist(set *TokenSet) error {
	if err := c.store.Set(tokenstore.KeyIDToken, set.IDToken); err != nil {
		return fmt.Errorf("oauth: store id token: %w", err)
	}
	if err := c.store.Set(tokenstore.KeyAccessToken, set.AccessToken); err != nil {
		return fmt.Errorf("oauth: store access token: %w", err)
	}
	if set.RefreshToken != "" {
		if err := c.store.Set(tokenstore.KeyRefreshToken, set.RefreshToken); err != nil {
			return fmt.Errorf("oauth: store refresh token: %w", err)
		}
	}
	return nil
}

func tokenSetFrom(tok *oauth2.Token) *TokenSet {
	set := &TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if v, ok := tok.Extra("id_token").(string); ok {
		set.IDToken = v
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		set.ExpiresIn = int64(v)
	case int64:
		set.ExpiresIn = v
	}
	return set
}

// truncate redacts a sensitive value to a short prefix for the debug trail.
func truncate(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:10] + "..."
}
