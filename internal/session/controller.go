// Package session orchestrates login, callback, and logout transitions on
// top of the PKCE flow client.
package session

import (
	"context"
	"fmt"

	"github.com/markb/plcgate/internal/oauth"
)

// State is the controller's display state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
	StateError           State = "error"
)

// Engine is the flow client surface the controller drives.
type Engine interface {
	CreateAuthorizationRequest(ctx context.Context) (string, error)
	ExchangeCode(ctx context.Context, code string) (*oauth.TokenSet, error)
	Refresh(ctx context.Context) (*oauth.TokenSet, error)
	FetchUserInfo(ctx context.Context) (*oauth.UserInfo, error)
	Logout() (string, error)
	HasAccessToken() bool
}

// Controller is a small state machine:
// Unauthenticated -> Authenticating -> Authenticated, back to Unauthenticated
// on logout or unrecoverable refresh failure, with a transient Error state
// reachable from anywhere.
type Controller struct {
	engine Engine
	state  State
	user   *oauth.UserInfo
	errMsg string

	// OnTransition, when set, observes every state change.
	OnTransition func(State)
}

// New creates a controller in the Unauthenticated state.
func New(engine Engine) *Controller {
	return &Controller{engine: engine, state: StateUnauthenticated}
}

// State returns the current display state.
func (c *Controller) State() State {
	return c.state
}

// User returns the authenticated profile, or nil.
func (c *Controller) User() *oauth.UserInfo {
	return c.user
}

// ErrorMessage returns the user-facing message for the Error state.
func (c *Controller) ErrorMessage() string {
	return c.errMsg
}

// HandleStartup runs the on-load check. When the startup carries an
// authorization code (the login callback), the code is exchanged first; the
// verifier is already cleared by the engine whatever the outcome.
func (c *Controller) HandleStartup(ctx context.Context, code string) error {
	if code != "" {
		c.transition(StateAuthenticating)
		if _, err := c.engine.ExchangeCode(ctx, code); err != nil {
			c.fail(fmt.Sprintf("authentication failed: %v", err))
			return err
		}
	}
	return c.CheckAuth(ctx)
}

// CheckAuth resolves the current session. A rejected access token gets
// exactly one silent refresh and one retry; if that also fails the session
// is treated as logged out, but stored tokens are left as-is. Only Logout
// clears them.
func (c *Controller) CheckAuth(ctx context.Context) error {
	if !c.engine.HasAccessToken() {
		c.transition(StateUnauthenticated)
		return nil
	}

	user, err := c.engine.FetchUserInfo(ctx)
	if err == nil {
		c.authenticated(user)
		return nil
	}

	if _, err := c.engine.Refresh(ctx); err != nil {
		c.transition(StateUnauthenticated)
		return nil
	}

	user, err = c.engine.FetchUserInfo(ctx)
	if err != nil {
		c.transition(StateUnauthenticated)
		return nil
	}

	c.authenticated(user)
	return nil
}

// Login starts a brand-new authorization request, never reusing an in-flight
// one, and returns the URL the user must visit.
func (c *Controller) Login(ctx context.Context) (string, error) {
	authURL, err := c.engine.CreateAuthorizationRequest(ctx)
	if err != nil {
		c.fail(fmt.Sprintf("login failed: %v", err))
		return "", err
	}
	c.transition(StateAuthenticating)
	return authURL, nil
}

// Logout clears stored tokens and returns the provider logout URL.
func (c *Controller) Logout() (string, error) {
	logoutURL, err := c.engine.Logout()
	if err != nil {
		c.fail(fmt.Sprintf("logout failed: %v", err))
		return "", err
	}
	c.user = nil
	c.transition(StateUnauthenticated)
	return logoutURL, nil
}

func (c *Controller) authenticated(user *oauth.UserInfo) {
	c.user = user
	c.transition(StateAuthenticated)
}

func (c *Controller) fail(msg string) {
	c.errMsg = msg
	c.transition(StateError)
}

func (c *Controller) transition(next State) {
	c.state = next
	if next != StateError {
		c.errMsg = ""
	}
	if c.OnTransition != nil {
		c.OnTransition(next)
	}
}
