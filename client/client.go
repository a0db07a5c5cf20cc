package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultPrefix     = "/auth"
	DefaultCookieName = "session"
)

// APIError is a non-2xx response from the server
type APIError struct {
	Status    int    `json:"-"`
	Message   string `json:"error"`
	Code      string `json:"code,omitempty"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tenantauth: %s (%s, HTTP %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("tenantauth: %s (HTTP %d)", e.Message, e.Status)
}

// Session mirrors the server's {email, role} session
type Session struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// SignupRequest is the body of send-otp
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// AuthClient talks to the tenantauth endpoints of one server
type AuthClient struct {
	mu            sync.Mutex
	serverURL     string
	store         CredentialStore
	httpClient    *http.Client
	baseTransport http.RoundTripper
	prefix        string
	cookieName    string
}

// ClientOption configures an AuthClient
type ClientOption func(*AuthClient)

// WithPrefix sets the auth route prefix (default /auth)
func WithPrefix(prefix string) ClientOption {
	return func(c *AuthClient) {
		c.prefix = strings.TrimSuffix(prefix, "/")
	}
}

// WithCookieName matches a server that renamed its session cookie
func WithCookieName(name string) ClientOption {
	return func(c *AuthClient) {
		c.cookieName = name
	}
}

// WithHTTPClient sets a custom base HTTP client (for timeouts, TLS config, etc.)
// The transport from this client will be wrapped with session handling.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *AuthClient) {
		if client != nil && client.Transport != nil {
			c.baseTransport = client.Transport
		}
		if client != nil {
			c.httpClient.Timeout = client.Timeout
		}
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *AuthClient) {
		c.baseTransport = transport
	}
}

// NewAuthClient creates a client for serverURL. A nil store keeps
// credentials in memory.
func NewAuthClient(serverURL string, store CredentialStore, opts ...ClientOption) *AuthClient {
	u, err := url.Parse(serverURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}
	if store == nil {
		store = NewMemoryCredentialStore()
	}

	c := &AuthClient{
		serverURL:     serverURL,
		store:         store,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		baseTransport: http.DefaultTransport,
		prefix:        DefaultPrefix,
		cookieName:    DefaultCookieName,
	}
	for _, opt := range opts {
		opt(c)
	}

	// redirects are part of the protocol, callers see them as responses
	c.httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.httpClient.Transport = &sessionTransport{client: c, base: c.baseTransport}
	return c
}

// HTTPClient returns an HTTP client that sends the stored session cookie.
// Use it for the application's own routes on the same server.
func (c *AuthClient) HTTPClient() *http.Client {
	return c.httpClient
}

// ServerURL returns the server URL this client is configured for
func (c *AuthClient) ServerURL() string {
	return c.serverURL
}

// GetCredential returns the stored credential for this server
func (c *AuthClient) GetCredential() (*ServerCredential, error) {
	return c.store.GetCredential(c.serverURL)
}

// IsLoggedIn returns true if there is a non-expired session
func (c *AuthClient) IsLoggedIn() bool {
	cred, err := c.GetCredential()
	if err != nil || cred == nil {
		return false
	}
	return !cred.IsExpired()
}

// SendOTP starts (or restarts) a registration; the server emails a code
func (c *AuthClient) SendOTP(ctx context.Context, req SignupRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/send-otp", req, nil)
	return err
}

// VerifyOTP confirms a registration. It does not sign in.
func (c *AuthClient) VerifyOTP(ctx context.Context, email, code string) error {
	_, err := c.do(ctx, http.MethodPost, "/verify-otp", map[string]string{"email": email, "otp": code}, nil)
	return err
}

// Register creates an account without the code step
func (c *AuthClient) Register(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	_, err := c.do(ctx, http.MethodPost, "/register", body, nil)
	return err
}

// Login signs in with email and password and stores the session cookie
func (c *AuthClient) Login(ctx context.Context, email, password string) (*ServerCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out struct {
		Session Session `json:"session"`
	}
	resp, err := c.do(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}

	var cookie *http.Cookie
	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookieName {
			cookie = ck
		}
	}
	if cookie == nil || cookie.Value == "" {
		return nil, fmt.Errorf("server did not set the %q cookie", c.cookieName)
	}

	now := time.Now()
	cred := &ServerCredential{
		Session:   cookie.Value,
		Email:     out.Session.Email,
		Role:      out.Session.Role,
		CreatedAt: now,
	}
	if cookie.MaxAge > 0 {
		cred.ExpiresAt = now.Add(time.Duration(cookie.MaxAge) * time.Second)
	}

	if err := c.store.SetCredential(c.serverURL, cred); err != nil {
		return nil, fmt.Errorf("failed to store credential: %w", err)
	}
	if err := c.store.Save(); err != nil {
		return nil, fmt.Errorf("failed to save credentials: %w", err)
	}
	return cred, nil
}

// Session asks the server which session the stored cookie carries. It
// returns nil when the server does not recognize it.
func (c *AuthClient) Session(ctx context.Context) (*Session, error) {
	var out struct {
		Session *Session `json:"session"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/session", nil, &out); err != nil {
		return nil, err
	}
	return out.Session, nil
}

// Logout clears the session on the server and removes the stored credential
func (c *AuthClient) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.do(ctx, http.MethodPost, "/logout", nil, nil); err != nil {
		return err
	}
	if err := c.store.RemoveCredential(c.serverURL); err != nil {
		return err
	}
	return c.store.Save()
}

// do sends body as JSON and decodes a 2xx response into out
func (c *AuthClient) do(ctx context.Context, method, path string, body, out any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+c.prefix+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return resp, apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp, fmt.Errorf("invalid response from server: %w", err)
		}
	}
	return resp, nil
}
