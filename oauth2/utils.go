package oauth2

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

type HandleUserFunc func(authtype string, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request)

// StateStore keeps the anti-forgery state between the redirect and the
// callback. *scs.SessionManager satisfies it.
type StateStore interface {
	Put(ctx context.Context, key string, val any)
	PopString(ctx context.Context, key string) string
}

const stateCookieName = "oauthstate"

// state cookies only need to outlive one round trip to the provider
const stateCookieMaxAge = 10 * 60

func generateState() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		slog.Error("failed to generate oauth state", "error", err)
	}
	return base64.URLEncoding.EncodeToString(b)
}

func setStateCookie(w http.ResponseWriter, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		Expires:  time.Now().Add(stateCookieMaxAge * time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:    stateCookieName,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Now(),
	})
}

// OauthRedirector returns a handler that stores a fresh state and redirects
// to the provider. states may be nil, in which case the state rides in a cookie.
func OauthRedirector(oauthConfig *oauth2.Config, states StateStore, stateKey string, opts ...oauth2.AuthCodeOption) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		oauthState := generateState()
		if states != nil {
			states.Put(r.Context(), stateKey, oauthState)
		} else {
			setStateCookie(w, oauthState)
		}
		u := oauthConfig.AuthCodeURL(oauthState, opts...)
		http.Redirect(w, r, u, http.StatusFound)
	}
}

// popState returns the state saved by OauthRedirector and forgets it.
func popState(w http.ResponseWriter, r *http.Request, states StateStore, stateKey string) string {
	if states != nil {
		return states.PopString(r.Context(), stateKey)
	}
	cookie, err := r.Cookie(stateCookieName)
	clearStateCookie(w)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}
