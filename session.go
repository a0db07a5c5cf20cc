package tenantauth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// DefaultSessionCookieName is the cookie the rest of the application reads.
const DefaultSessionCookieName = "session"

// DefaultSessionMaxAge is one day, in seconds.
const DefaultSessionMaxAge = 86400

// Session is the client-held {email, role} pair. Nothing is stored server side.
type Session struct {
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// SessionCodec converts sessions to and from cookie values.
//
// Without a Secret the value is the URL-escaped JSON form, which any client
// can forge. With a Secret an HMAC-SHA256 signature is appended after a '.'
// and Decode rejects values whose signature does not match.
type SessionCodec struct {
	Secret     []byte
	CookieName string
	MaxAge     int
	Secure     bool
}

// Name is the cookie name, defaulting to "session"
func (c *SessionCodec) Name() string {
	if c.CookieName != "" {
		return c.CookieName
	}
	return DefaultSessionCookieName
}

func (c *SessionCodec) maxAge() int {
	if c.MaxAge > 0 {
		return c.MaxAge
	}
	return DefaultSessionMaxAge
}

// Encode serializes s into a cookie-safe string.
func (c *SessionCodec) Encode(s Session) string {
	data, _ := json.Marshal(s)
	payload := url.QueryEscape(string(data))
	if len(c.Secret) == 0 {
		return payload
	}
	return payload + "." + c.sign(payload)
}

// Decode returns nil for anything that is not a well formed session.
func (c *SessionCodec) Decode(value string) *Session {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if len(c.Secret) > 0 {
		idx := strings.LastIndexByte(value, '.')
		if idx < 0 {
			return nil
		}
		payload, sig := value[:idx], value[idx+1:]
		if !hmac.Equal([]byte(sig), []byte(c.sign(payload))) {
			return nil
		}
		value = payload
	}

	// a leading '{' means an intermediary already decoded the value, and
	// unescaping again would turn '+' into a space
	raw := value
	if !strings.HasPrefix(value, "{") {
		unescaped, err := url.QueryUnescape(value)
		if err == nil {
			raw = unescaped
		}
	}

	var fields struct {
		Email *string `json:"email"`
		Role  *string `json:"role"`
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil
	}
	if fields.Email == nil || *fields.Email == "" || fields.Role == nil {
		return nil
	}
	role := Role(*fields.Role)
	if !role.IsValid() {
		return nil
	}
	return &Session{Email: *fields.Email, Role: role}
}

func (c *SessionCodec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.Secret)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// WriteCookie sets the session cookie. It is not HttpOnly: client script reads it.
func (c *SessionCodec) WriteCookie(w http.ResponseWriter, s Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name(),
		Value:    c.Encode(s),
		Path:     "/",
		MaxAge:   c.maxAge(),
		HttpOnly: false,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (c *SessionCodec) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ReadRequest decodes the session cookie on r, returning nil when absent or invalid.
func (c *SessionCodec) ReadRequest(r *http.Request) *Session {
	if r == nil {
		return nil
	}
	cookie, err := r.Cookie(c.Name())
	if err != nil || cookie == nil {
		return nil
	}
	return c.Decode(cookie.Value)
}
