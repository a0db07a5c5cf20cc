package oauth2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Error codes placed on the login redirect. The UI switches on these.
const (
	ErrCodeConfig        = "config"
	ErrCodeMissingCode   = "missing_code"
	ErrCodeInvalidState  = "invalid_state"
	ErrCodeTokenExchange = "token_exchange"
	ErrCodeNoToken       = "no_token"
	ErrCodeUserInfo      = "userinfo"
	ErrCodeNoEmail       = "no_email"
)

// Federator runs the authorization-code flow against one provider and hands
// the verified user info to HandleUser.
type Federator struct {
	// Provider name, eg "google". Used for the default callback path and
	// passed to HandleUser.
	Name string

	ClientId     string
	ClientSecret string

	// CallbackURL overrides the redirect URI computed from the request
	CallbackURL string

	Endpoint    oauth2.Endpoint
	Scopes      []string
	UserInfoURL string
	AuthOptions []oauth2.AuthCodeOption

	HandleUser HandleUserFunc

	// States keeps the anti-forgery state server side. Optional.
	States StateStore

	// LoginPath receives ?error=<code> on every failure. Defaults to /login
	LoginPath string

	// CallbackPath is used when CallbackURL is empty. Defaults to /auth/<Name>/callback
	CallbackPath string

	// HTTPClient is used for the token and userinfo calls
	HTTPClient *http.Client

	Logger *slog.Logger
}

func (f *Federator) logger() *slog.Logger {
	if f.Logger != nil {
		return f.Logger
	}
	return slog.Default()
}

func (f *Federator) stateKey() string {
	return "oauth_state_" + f.Name
}

func (f *Federator) loginPath() string {
	if f.LoginPath != "" {
		return f.LoginPath
	}
	return "/login"
}

// RedirectURI is the callback address sent to the provider for r.
func (f *Federator) RedirectURI(r *http.Request) string {
	if f.CallbackURL != "" {
		return f.CallbackURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	path := f.CallbackPath
	if path == "" {
		path = "/auth/" + f.Name + "/callback"
	}
	return scheme + "://" + host + path
}

func (f *Federator) config(r *http.Request) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     f.ClientId,
		ClientSecret: f.ClientSecret,
		RedirectURL:  f.RedirectURI(r),
		Scopes:       f.Scopes,
		Endpoint:     f.Endpoint,
	}
}

func (f *Federator) exchangeContext(r *http.Request) context.Context {
	ctx := r.Context()
	if f.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.HTTPClient)
	}
	return ctx
}

func (f *Federator) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, f.loginPath()+"?error="+url.QueryEscape(code), http.StatusFound)
}

// HandleLogin starts the flow by redirecting to the provider.
func (f *Federator) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if f.ClientId == "" {
		f.logger().Warn("oauth client id not configured", "provider", f.Name)
		f.fail(w, r, ErrCodeConfig)
		return
	}
	OauthRedirector(f.config(r), f.States, f.stateKey(), f.AuthOptions...)(w, r)
}

// HandleCallback finishes the flow. Every failure redirects to the login
// page with one of the ErrCode values; provider bodies are only logged.
func (f *Federator) HandleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		f.logger().Info("provider returned error", "provider", f.Name, "error", providerErr,
			"description", query.Get("error_description"))
		f.fail(w, r, providerErr)
		return
	}
	if f.ClientId == "" || f.HandleUser == nil {
		f.fail(w, r, ErrCodeConfig)
		return
	}
	code := query.Get("code")
	if code == "" {
		f.fail(w, r, ErrCodeMissingCode)
		return
	}
	expected := popState(w, r, f.States, f.stateKey())
	if expected == "" || query.Get("state") != expected {
		f.logger().Warn("oauth state mismatch", "provider", f.Name)
		f.fail(w, r, ErrCodeInvalidState)
		return
	}

	ctx := f.exchangeContext(r)
	cfg := f.config(r)
	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		f.logger().Warn("code exchange failed", "provider", f.Name, "error", err)
		f.fail(w, r, classifyExchangeError(err))
		return
	}
	if token.AccessToken == "" {
		f.fail(w, r, ErrCodeNoToken)
		return
	}

	userInfo, err := f.fetchUserInfo(ctx, cfg, token)
	if err != nil {
		f.logger().Warn("userinfo request failed", "provider", f.Name, "error", err)
		f.fail(w, r, ErrCodeUserInfo)
		return
	}
	if email, _ := userInfo["email"].(string); strings.TrimSpace(email) == "" {
		f.fail(w, r, ErrCodeNoEmail)
		return
	}

	f.HandleUser("oauth", f.Name, token, userInfo, w, r)
}

// classifyExchangeError separates "provider said no" from "provider said yes
// without a token". x/oauth2 reports the latter as a plain error.
func classifyExchangeError(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return ErrCodeTokenExchange
	}
	if strings.Contains(err.Error(), "missing access_token") {
		return ErrCodeNoToken
	}
	return ErrCodeTokenExchange
}

const userInfoTimeout = 10 * time.Second

func (f *Federator) fetchUserInfo(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, userInfoTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := cfg.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, body)
	}
	var userInfo map[string]any
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("invalid userinfo body: %w", err)
	}
	return userInfo, nil
}
