package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markb/plcgate/internal/oauth"
)

// fakeEngine records calls and returns scripted results.
type fakeEngine struct {
	hasToken bool

	exchangeErr error
	refreshErr  error

	// userinfoErrs is consumed one per FetchUserInfo call; nil entries mean
	// success. Calls beyond the slice succeed.
	userinfoErrs []error

	authRequests int
	exchanges    int
	refreshes    int
	userinfos    int
	logouts      int
}

func (f *fakeEngine) CreateAuthorizationRequest(ctx context.Context) (string, error) {
	f.authRequests++
	return "https://idp.example.com/oauth2/authorize?attempt=new", nil
}

func (f *fakeEngine) ExchangeCode(ctx context.Context, code string) (*oauth.TokenSet, error) {
	f.exchanges++
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	f.hasToken = true
	return &oauth.TokenSet{AccessToken: "access"}, nil
}

func (f *fakeEngine) Refresh(ctx context.Context) (*oauth.TokenSet, error) {
	f.refreshes++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &oauth.TokenSet{AccessToken: "access-2"}, nil
}

func (f *fakeEngine) FetchUserInfo(ctx context.Context) (*oauth.UserInfo, error) {
	idx := f.userinfos
	f.userinfos++
	if idx < len(f.userinfoErrs) && f.userinfoErrs[idx] != nil {
		return nil, f.userinfoErrs[idx]
	}
	return &oauth.UserInfo{Sub: "user-123", Email: "operator@example.com"}, nil
}

func (f *fakeEngine) Logout() (string, error) {
	f.logouts++
	f.hasToken = false
	return "https://idp.example.com/logout", nil
}

func (f *fakeEngine) HasAccessToken() bool {
	return f.hasToken
}

func TestHandleStartup_WithCode(t *testing.T) {
	engine := &fakeEngine{}
	ctrl := New(engine)

	var seen []State
	ctrl.OnTransition = func(s State) { seen = append(seen, s) }

	require.NoError(t, ctrl.HandleStartup(context.Background(), "auth-code"))

	assert.Equal(t, StateAuthenticated, ctrl.State())
	assert.Equal(t, 1, engine.exchanges)
	assert.Equal(t, "operator@example.com", ctrl.User().Email)
	assert.Equal(t, []State{StateAuthenticating, StateAuthenticated}, seen)
}

func TestHandleStartup_ExchangeFails(t *testing.T) {
	engine := &fakeEngine{exchangeErr: oauth.ErrMissingVerifier}
	ctrl := New(engine)

	err := ctrl.HandleStartup(context.Background(), "auth-code")
	require.Error(t, err)

	assert.Equal(t, StateError, ctrl.State())
	assert.Contains(t, ctrl.ErrorMessage(), "authentication failed")
}

func TestHandleStartup_NoCodeNoToken(t *testing.T) {
	engine := &fakeEngine{}
	ctrl := New(engine)

	require.NoError(t, ctrl.HandleStartup(context.Background(), ""))

	assert.Equal(t, StateUnauthenticated, ctrl.State())
	assert.Zero(t, engine.userinfos, "no userinfo call without a stored token")
}

func TestCheckAuth_ValidToken(t *testing.T) {
	engine := &fakeEngine{hasToken: true}
	ctrl := New(engine)

	require.NoError(t, ctrl.CheckAuth(context.Background()))

	assert.Equal(t, StateAuthenticated, ctrl.State())
	assert.Equal(t, 1, engine.userinfos)
	assert.Zero(t, engine.refreshes)
}

func TestCheckAuth_SilentRefreshOnce(t *testing.T) {
	engine := &fakeEngine{
		hasToken:     true,
		userinfoErrs: []error{&oauth.UserInfoError{StatusCode: 401}},
	}
	ctrl := New(engine)

	require.NoError(t, ctrl.CheckAuth(context.Background()))

	assert.Equal(t, StateAuthenticated, ctrl.State())
	assert.Equal(t, 1, engine.refreshes, "exactly one silent refresh")
	assert.Equal(t, 2, engine.userinfos, "one retry after refresh")
}

func TestCheckAuth_RefreshFails(t *testing.T) {
	engine := &fakeEngine{
		hasToken:     true,
		userinfoErrs: []error{&oauth.UserInfoError{StatusCode: 401}},
		refreshErr:   oauth.ErrNoRefreshToken,
	}
	ctrl := New(engine)

	require.NoError(t, ctrl.CheckAuth(context.Background()))

	// Session is treated as logged out, but tokens are not wiped: only
	// Logout clears them.
	assert.Equal(t, StateUnauthenticated, ctrl.State())
	assert.Equal(t, 1, engine.userinfos, "no retry when refresh fails")
	assert.True(t, engine.hasToken, "stored tokens are left as-is")
}

func TestCheckAuth_RetryAlsoFails(t *testing.T) {
	engine := &fakeEngine{
		hasToken: true,
		userinfoErrs: []error{
			&oauth.UserInfoError{StatusCode: 401},
			&oauth.UserInfoError{StatusCode: 401},
		},
	}
	ctrl := New(engine)

	require.NoError(t, ctrl.CheckAuth(context.Background()))

	assert.Equal(t, StateUnauthenticated, ctrl.State())
	assert.Equal(t, 1, engine.refreshes)
	assert.Equal(t, 2, engine.userinfos, "no second retry")
}

func TestLogin_AlwaysStartsFresh(t *testing.T) {
	engine := &fakeEngine{}
	ctrl := New(engine)

	_, err := ctrl.Login(context.Background())
	require.NoError(t, err)
	_, err = ctrl.Login(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, engine.authRequests, "every login is a new authorization request")
	assert.Equal(t, StateAuthenticating, ctrl.State())
}

func TestLogin_EngineError(t *testing.T) {
	engine := &fakeEngine{}
	ctrl := New(engine)

	// Force an error through a wrapper engine.
	failing := &failingAuthEngine{fakeEngine: engine}
	ctrl = New(failing)

	_, err := ctrl.Login(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateError, ctrl.State())
}

type failingAuthEngine struct {
	*fakeEngine
}

func (f *failingAuthEngine) CreateAuthorizationRequest(ctx context.Context) (string, error) {
	return "", errors.New("store unavailable")
}

func TestLogout(t *testing.T) {
	engine := &fakeEngine{hasToken: true}
	ctrl := New(engine)
	require.NoError(t, ctrl.CheckAuth(context.Background()))
	require.Equal(t, StateAuthenticated, ctrl.State())

	logoutURL, err := ctrl.Logout()
	require.NoError(t, err)

	assert.Equal(t, "https://idp.example.com/logout", logoutURL)
	assert.Equal(t, StateUnauthenticated, ctrl.State())
	assert.Nil(t, ctrl.User())
	assert.False(t, engine.hasToken)
}

func TestErrorStateClearsOnRecovery(t *testing.T) {
	engine := &fakeEngine{exchangeErr: oauth.ErrMissingVerifier}
	ctrl := New(engine)

	_ = ctrl.HandleStartup(context.Background(), "auth-code")
	require.Equal(t, StateError, ctrl.State())

	engine.exchangeErr = nil
	require.NoError(t, ctrl.HandleStartup(context.Background(), "auth-code"))

	assert.Equal(t, StateAuthenticated, ctrl.State())
	assert.Empty(t, ctrl.ErrorMessage())
}
