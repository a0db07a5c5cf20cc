package client

import (
	"net/http"
)

// SessionTransport wraps an http.RoundTripper to send the session cookie
type SessionTransport struct {
	Base       http.RoundTripper
	CookieName string
	Session    string
}

// RoundTrip implements http.RoundTripper
func (t *SessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Session != "" {
		// Clone the request to avoid mutating the original
		req2 := req.Clone(req.Context())
		req2.AddCookie(&http.Cookie{Name: t.cookieName(), Value: t.Session})
		req = req2
	}

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return base.RoundTrip(req)
}

func (t *SessionTransport) cookieName() string {
	if t.CookieName != "" {
		return t.CookieName
	}
	return DefaultCookieName
}

// sessionTransport looks up the stored credential on every request
type sessionTransport struct {
	client *AuthClient
	base   http.RoundTripper
}

func (t *sessionTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cred, err := t.client.GetCredential()
	if err != nil {
		return nil, err
	}
	st := &SessionTransport{Base: t.base, CookieName: t.client.cookieName}
	if cred != nil && !cred.IsExpired() {
		st.Session = cred.Session
	}
	return st.RoundTrip(req)
}
