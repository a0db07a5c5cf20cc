package tenantauth_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	oa "github.com/panyam/tenantauth"
)

func TestSessionRoundTrip(t *testing.T) {
	codecs := map[string]*oa.SessionCodec{
		"unsigned": {},
		"signed":   {Secret: []byte("s3cret")},
	}
	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			in := oa.Session{Email: "ann@example.com", Role: oa.RoleAdmin}
			out := codec.Decode(codec.Encode(in))
			if out == nil || *out != in {
				t.Fatalf("round trip = %+v, want %+v", out, in)
			}
		})
	}
}

func TestSessionDecodeRejectsMalformed(t *testing.T) {
	codec := &oa.SessionCodec{}
	values := map[string]string{
		"empty":         "",
		"garbage":       "not-json",
		"empty object":  url.QueryEscape(`{}`),
		"unknown role":  url.QueryEscape(`{"email":"ann@example.com","role":"superuser"}`),
		"missing email": url.QueryEscape(`{"role":"user"}`),
		"blank email":   url.QueryEscape(`{"email":"","role":"user"}`),
		"missing role":  url.QueryEscape(`{"email":"ann@example.com"}`),
	}
	for name, value := range values {
		if s := codec.Decode(value); s != nil {
			t.Errorf("%s: expected nil, got %+v", name, s)
		}
	}
}

func TestSessionDecodeAcceptsRawJSON(t *testing.T) {
	codec := &oa.SessionCodec{}
	s := codec.Decode(`{"email":"ann@example.com","role":"user"}`)
	if s == nil || s.Email != "ann@example.com" || s.Role != oa.RoleUser {
		t.Fatalf("unexpected session %+v", s)
	}

	s = codec.Decode(`{"email":"a+b@x.com","role":"user"}`)
	if s == nil || s.Email != "a+b@x.com" {
		t.Errorf("expected plus addressing to survive a raw value, got %+v", s)
	}
}

func TestSessionPlusAddressRoundTrip(t *testing.T) {
	for _, codec := range []*oa.SessionCodec{{}, {Secret: []byte("s3cret")}} {
		in := oa.Session{Email: "a+b@x.com", Role: oa.RoleUser}
		if out := codec.Decode(codec.Encode(in)); out == nil || *out != in {
			t.Errorf("round trip = %+v, want %+v", out, in)
		}
	}
}

func TestSignedSessionRejectsTampering(t *testing.T) {
	codec := &oa.SessionCodec{Secret: []byte("s3cret")}
	value := codec.Encode(oa.Session{Email: "ann@example.com", Role: oa.RoleUser})

	forged := url.QueryEscape(`{"email":"ann@example.com","role":"admin"}`)
	sig := value[strings.LastIndexByte(value, '.'):]
	if s := codec.Decode(forged + sig); s != nil {
		t.Errorf("expected forged payload to be rejected, got %+v", s)
	}
	if s := codec.Decode(forged); s != nil {
		t.Errorf("expected unsigned value to be rejected, got %+v", s)
	}
	other := &oa.SessionCodec{Secret: []byte("other")}
	if s := other.Decode(value); s != nil {
		t.Errorf("expected a different secret to reject the value, got %+v", s)
	}
}

func TestSessionCookieAttributes(t *testing.T) {
	codec := &oa.SessionCodec{}
	rr := httptest.NewRecorder()
	codec.WriteCookie(rr, oa.Session{Email: "ann@example.com", Role: oa.RoleUser})

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "session" || c.Path != "/" {
		t.Errorf("name/path = %q/%q", c.Name, c.Path)
	}
	if c.MaxAge != 86400 {
		t.Errorf("max age = %d, want 86400", c.MaxAge)
	}
	if c.HttpOnly {
		t.Error("session cookie must be readable by client script")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("samesite = %v, want Lax", c.SameSite)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	if s := codec.ReadRequest(req); s == nil || s.Email != "ann@example.com" {
		t.Errorf("ReadRequest = %+v", s)
	}

	rr = httptest.NewRecorder()
	codec.ClearCookie(rr)
	cleared := rr.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 || cleared[0].Value != "" {
		t.Errorf("expected an expired empty cookie, got %+v", cleared)
	}
}

func TestSessionCustomCookieName(t *testing.T) {
	codec := &oa.SessionCodec{CookieName: "app_session", Secure: true}
	rr := httptest.NewRecorder()
	codec.WriteCookie(rr, oa.Session{Email: "ann@example.com", Role: oa.RoleUser})
	c := rr.Result().Cookies()[0]
	if c.Name != "app_session" || !c.Secure {
		t.Errorf("unexpected cookie %+v", c)
	}
	if codec.ReadRequest(httptest.NewRequest(http.MethodGet, "/", nil)) != nil {
		t.Error("expected nil session without a cookie")
	}
}
