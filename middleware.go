package tenantauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type sessionKey struct{}

// Middleware exposes the session cookie to downstream handlers.
type Middleware struct {
	Sessions *SessionCodec

	// LoginPath is where RequireRole sends anonymous browsers. When empty a
	// 401 is returned instead.
	LoginPath string

	// CallbackURLParam names the query parameter carrying the original path
	CallbackURLParam string
}

// ContextWithSession returns ctx carrying s.
func ContextWithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session placed by ExtractSession, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey{}).(*Session)
	return s
}

/**
 * Decodes the session cookie and makes it available through
 * SessionFromContext.  Anonymous requests pass through untouched.
 */
func (m *Middleware) ExtractSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s := m.Sessions.ReadRequest(r); s != nil {
			r = r.WithContext(ContextWithSession(r.Context(), s))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole lets through sessions holding one of roles. No roles means any
// signed in user. Admins are not implicitly allowed into user-only routes.
func (m *Middleware) RequireRole(next http.Handler, roles ...Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := SessionFromContext(r.Context())
		if s == nil {
			s = m.Sessions.ReadRequest(r)
		}
		if s == nil {
			m.deny(w, r)
			return
		}
		if len(roles) > 0 && !hasRole(s.Role, roles) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), s)))
	})
}

func hasRole(role Role, roles []Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (m *Middleware) deny(w http.ResponseWriter, r *http.Request) {
	if m.LoginPath == "" {
		http.Error(w, "Login Required", http.StatusUnauthorized)
		return
	}
	param := m.CallbackURLParam
	if param == "" {
		param = "callbackURL"
	}
	encoded := strings.Replace(url.QueryEscape(r.URL.Path), "+", "%20", -1)
	http.Redirect(w, r, fmt.Sprintf("%s?%s=%s", m.LoginPath, param, encoded), http.StatusFound)
}
