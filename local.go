package tenantauth

import (
	"errors"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"
)

// HandleUserFunc is called by federated providers once an identity has been
// confirmed. token is nil for password sign-ins.
type HandleUserFunc func(authtype string, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request)

// LocalAuth serves the password registration, OTP and session endpoints.
type LocalAuth struct {
	Registrar *Registrar

	// Roles decides the role placed in sessions created by Login
	Roles *RoleResolver

	Sessions *SessionCodec

	// Production hides the development reset endpoint
	Production bool

	// OnError is called before the default JSON error body is written
	OnError AuthErrorHandler
}

// HandleRegister creates an account directly from {name, email, password}.
func (a *LocalAuth) HandleRegister(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFields(r, "name", "email", "password")
	if err != nil {
		a.fail(NewAuthError(ErrCodeParse, err.Error(), ""), w, r)
		return
	}
	creds := Credentials{Name: fields["name"], Email: fields["email"], Password: fields["password"]}
	if _, err := a.Registrar.Register(r.Context(), creds); err != nil {
		a.failErr(err, w, r)
		return
	}
	writeOK(w)
}

// HandleSendOTP records a pending registration and sends its code. Calling
// it again for the same email is a resend.
func (a *LocalAuth) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFields(r, "name", "email", "password", "phone")
	if err != nil {
		a.fail(NewAuthError(ErrCodeParse, err.Error(), ""), w, r)
		return
	}
	req := RegistrationRequest{
		Name:     fields["name"],
		Email:    fields["email"],
		Password: fields["password"],
		Phone:    fields["phone"],
	}
	if err := a.Registrar.RequestRegistration(r.Context(), req); err != nil {
		var authErr *AuthError
		// send-otp reports a taken email as a plain 400
		if errors.As(err, &authErr) && authErr.Code == ErrCodeEmailTaken {
			a.fail(&AuthError{Kind: KindValidation, Code: authErr.Code, Message: authErr.Message, Field: authErr.Field}, w, r)
			return
		}
		a.failErr(err, w, r)
		return
	}
	writeOK(w)
}

// HandleVerifyOTP confirms {email, otp}. It does not sign the user in.
func (a *LocalAuth) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFields(r, "email", "otp")
	if err != nil {
		a.fail(NewAuthError(ErrCodeParse, err.Error(), ""), w, r)
		return
	}
	if _, err := a.Registrar.VerifyOTP(r.Context(), fields["email"], fields["otp"]); err != nil {
		a.failErr(err, w, r)
		return
	}
	writeOK(w)
}

// HandleLogin checks {email, password} and sets the session cookie.
func (a *LocalAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	fields, err := parseFields(r, "email", "password")
	if err != nil {
		a.fail(NewAuthError(ErrCodeParse, err.Error(), ""), w, r)
		return
	}
	user, err := a.Registrar.Authenticate(r.Context(), fields["email"], fields["password"])
	if err != nil {
		a.failErr(err, w, r)
		return
	}
	session := Session{Email: user.Email, Role: a.Roles.Resolve(r.Context(), user.Email)}
	a.Sessions.WriteCookie(w, session)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "session": session})
}

// HandleLogout clears the session cookie.
func (a *LocalAuth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	a.Sessions.ClearCookie(w)
	writeOK(w)
}

// HandleSession reports the caller's session, or null when there is none.
func (a *LocalAuth) HandleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"session": a.Sessions.ReadRequest(r)})
}

// HandleDeleteUser is a development reset that lets an email register again.
func (a *LocalAuth) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if a.Production {
		http.NotFound(w, r)
		return
	}
	if err := a.Registrar.DeleteAccount(r.Context(), r.URL.Query().Get("email")); err != nil {
		a.failErr(err, w, r)
		return
	}
	writeOK(w)
}

func (a *LocalAuth) failErr(err error, w http.ResponseWriter, r *http.Request) {
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		authErr = storeError(err)
	}
	a.fail(authErr, w, r)
}

func (a *LocalAuth) fail(err *AuthError, w http.ResponseWriter, r *http.Request) {
	if err.Kind == KindPersistence || err.Kind == KindUpstream {
		slog.ErrorContext(r.Context(), "auth request failed",
			"path", r.URL.Path, "code", err.Code, "error", err.Err)
	}
	writeAuthError(a.OnError, err, w, r)
}
