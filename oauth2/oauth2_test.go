package oauth2_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/panyam/tenantauth/oauth2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oauth2lib "golang.org/x/oauth2"
)

// mockOAuthServer creates a mock OAuth provider server that handles:
// - /token endpoint for token exchange
// - /userinfo endpoint for user data retrieval
type mockOAuthServer struct {
	server *httptest.Server

	tokenResponse    map[string]any
	userInfoResponse map[string]any
	tokenError       bool
	userInfoError    bool

	tokenCalls    atomic.Int32
	userInfoCalls atomic.Int32
	lastAuthToken atomic.Value
}

func newMockOAuthServer(t *testing.T) *mockOAuthServer {
	mock := &mockOAuthServer{
		tokenResponse: map[string]any{
			"access_token":  "mock_access_token",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"refresh_token": "mock_refresh_token",
		},
		userInfoResponse: map[string]any{
			"id":    "12345",
			"email": "TestUser@Example.com",
			"name":  "Test User",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		mock.tokenCalls.Add(1)
		if mock.tokenError {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"secret provider detail"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mock.tokenResponse)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		mock.userInfoCalls.Add(1)
		mock.lastAuthToken.Store(r.Header.Get("Authorization"))
		if mock.userInfoError {
			http.Error(w, "user info failed", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(mock.userInfoResponse)
	})

	mock.server = httptest.NewServer(mux)
	t.Cleanup(mock.server.Close)
	return mock
}

// memStates is a StateStore backed by a map, standing in for scs.
type memStates map[string]string

func (m memStates) Put(ctx context.Context, key string, val any) { m[key] = val.(string) }

func (m memStates) PopString(ctx context.Context, key string) string {
	v := m[key]
	delete(m, key)
	return v
}

type handled struct {
	called   bool
	authtype string
	provider string
	token    *oauth2lib.Token
	userInfo map[string]any
}

func newFederator(mock *mockOAuthServer, got *handled) *oauth2.Federator {
	f := oauth2.NewGoogleFederator("test-client-id", "test-client-secret", "", func(authtype, provider string, token *oauth2lib.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
		got.called = true
		got.authtype = authtype
		got.provider = provider
		got.token = token
		got.userInfo = userInfo
		w.WriteHeader(http.StatusNoContent)
	})
	f.Endpoint = oauth2lib.Endpoint{
		AuthURL:   mock.server.URL + "/auth",
		TokenURL:  mock.server.URL + "/token",
		AuthStyle: oauth2lib.AuthStyleInParams,
	}
	f.UserInfoURL = mock.server.URL + "/userinfo"
	f.HTTPClient = mock.server.Client()
	return f
}

func callback(query string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/auth/google/callback?"+query, nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "s1"})
	return req
}

func loginError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	require.Equal(t, http.StatusFound, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/login", loc.Path)
	return loc.Query().Get("error")
}

func TestHandleLoginRedirectsToProvider(t *testing.T) {
	mock := newMockOAuthServer(t)
	f := newFederator(mock, &handled{})

	req := httptest.NewRequest(http.MethodGet, "http://app.example.com/auth/google", nil)
	rr := httptest.NewRecorder()
	f.HandleLogin(rr, req)

	require.Equal(t, http.StatusFound, rr.Code)
	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(loc.String(), mock.server.URL+"/auth"))

	q := loc.Query()
	assert.Equal(t, "test-client-id", q.Get("client_id"))
	assert.Equal(t, "http://app.example.com/auth/google/callback", q.Get("redirect_uri"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "code", q.Get("response_type"))

	var stateCookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == "oauthstate" {
			stateCookie = c
		}
	}
	require.NotNil(t, stateCookie, "expected oauthstate cookie")
	assert.Equal(t, q.Get("state"), stateCookie.Value)
}

func TestHandleLoginUsesStateStore(t *testing.T) {
	mock := newMockOAuthServer(t)
	f := newFederator(mock, &handled{})
	states := memStates{}
	f.States = states

	rr := httptest.NewRecorder()
	f.HandleLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/google", nil))

	loc, err := url.Parse(rr.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, states["oauth_state_google"], loc.Query().Get("state"))
	assert.Empty(t, rr.Result().Cookies())
}

func TestHandleLoginWithoutClientID(t *testing.T) {
	mock := newMockOAuthServer(t)
	f := newFederator(mock, &handled{})
	f.ClientId = ""

	rr := httptest.NewRecorder()
	f.HandleLogin(rr, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	assert.Equal(t, "config", loginError(t, rr))
}

func TestRedirectURI(t *testing.T) {
	f := oauth2.NewGoogleFederator("id", "secret", "", nil)

	req := httptest.NewRequest(http.MethodGet, "http://internal:8080/auth/google", nil)
	assert.Equal(t, "http://internal:8080/auth/google/callback", f.RedirectURI(req))

	req.Header.Set("X-Forwarded-Proto", "https")
	req.Header.Set("X-Forwarded-Host", "app.example.com")
	assert.Equal(t, "https://app.example.com/auth/google/callback", f.RedirectURI(req))

	f.CallbackURL = "https://override.example.com/cb"
	assert.Equal(t, "https://override.example.com/cb", f.RedirectURI(req))
}

func TestHandleCallback(t *testing.T) {
	t.Run("provider error is propagated without exchange", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		got := &handled{}
		f := newFederator(mock, got)

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("error=access_denied&state=s1"))

		assert.Equal(t, "access_denied", loginError(t, rr))
		assert.Equal(t, "/login?error=access_denied", rr.Header().Get("Location"))
		assert.Zero(t, mock.tokenCalls.Load())
		assert.False(t, got.called)
	})

	t.Run("missing client id", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		f := newFederator(mock, &handled{})
		f.ClientId = ""

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("code=abc&state=s1"))
		assert.Equal(t, "config", loginError(t, rr))
	})

	t.Run("missing code", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		f := newFederator(mock, &handled{})

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("state=s1"))
		assert.Equal(t, "missing_code", loginError(t, rr))
		assert.Zero(t, mock.tokenCalls.Load())
	})

	t.Run("mismatched state", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		got := &handled{}
		f := newFederator(mock, got)

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("code=abc&state=forged"))
		assert.Equal(t, "invalid_state", loginError(t, rr))
		assert.Zero(t, mock.tokenCalls.Load())
		assert.False(t, got.called)
	})

	t.Run("missing state cookie", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		f := newFederator(mock, &handled{})

		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=s1", nil)
		rr := httptest.NewRecorder()
		f.HandleCallback(rr, req)
		assert.Equal(t, "invalid_state", loginError(t, rr))
	})

	t.Run("token endpoint rejects code", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		mock.tokenError = true
		f := newFederator(mock, &handled{})

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("code=abc&state=s1"))
		assert.Equal(t, "token_exchange", loginError(t, rr))
		assert.NotContains(t, rr.Body.String(), "secret provider detail")
		assert.Zero(t, mock.userInfoCalls.Load())
	})

	t.Run("token response without access token", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		mock.tokenResponse = map[string]any{"token_type": "Bearer"}
		f := newFederator(mock, &handled{})

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("code=abc&state=s1"))
		assert.Equal(t, "no_token", loginError(t, rr))
	})

	t.Run("userinfo failure", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		mock.userInfoError = true
		f := newFederator(mock, &handled{})

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("code=abc&state=s1"))
		assert.Equal(t, "userinfo", loginError(t, rr))
	})

	t.Run("userinfo without email", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		mock.userInfoResponse = map[string]any{"id": "12345", "name": "No Mail"}
		got := &handled{}
		f := newFederator(mock, got)

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("code=abc&state=s1"))
		assert.Equal(t, "no_email", loginError(t, rr))
		assert.False(t, got.called)
	})

	t.Run("success hands user info to HandleUser", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		got := &handled{}
		f := newFederator(mock, got)

		rr := httptest.NewRecorder()
		f.HandleCallback(rr, callback("code=abc&state=s1"))

		require.True(t, got.called)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "oauth", got.authtype)
		assert.Equal(t, "google", got.provider)
		assert.Equal(t, "mock_access_token", got.token.AccessToken)
		assert.Equal(t, "TestUser@Example.com", got.userInfo["email"])
		assert.Equal(t, "Bearer mock_access_token", mock.lastAuthToken.Load())

		var cleared int
		for _, c := range rr.Result().Cookies() {
			if c.Name == "oauthstate" {
				cleared++
				assert.Negative(t, c.MaxAge)
			}
		}
		assert.Equal(t, 1, cleared, "state cookie should be cleared exactly once")
	})

	t.Run("state store is single use", func(t *testing.T) {
		mock := newMockOAuthServer(t)
		got := &handled{}
		f := newFederator(mock, got)
		f.States = memStates{"oauth_state_google": "s2"}

		req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=s2", nil)
		rr := httptest.NewRecorder()
		f.HandleCallback(rr, req)
		require.True(t, got.called)

		got.called = false
		rr = httptest.NewRecorder()
		f.HandleCallback(rr, httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=abc&state=s2", nil))
		assert.Equal(t, "invalid_state", loginError(t, rr))
		assert.False(t, got.called)
	})
}
