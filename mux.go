package tenantauth

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
)

// FederatedProvider is an external sign-in flow mounted at
// <prefix>/<name> and <prefix>/<name>/callback.
type FederatedProvider interface {
	HandleLogin(w http.ResponseWriter, r *http.Request)
	HandleCallback(w http.ResponseWriter, r *http.Request)
}

// TenantAuth wires the registration core, session codec and federated
// providers into one http.Handler.
type TenantAuth struct {
	Registrar *Registrar
	Roles     *RoleResolver
	Sessions  *SessionCodec

	// Session holds short lived server side state such as OAuth state
	// values. When set, Handler wraps every route in LoadAndSave.
	Session *scs.SessionManager

	Middleware Middleware

	// Production hides development-only routes
	Production bool

	// Prefix for all routes. Defaults to /auth
	Prefix string

	LoginPath        string
	AdminLandingPath string
	UserLandingPath  string

	OnError AuthErrorHandler

	router *mux.Router
	local  *LocalAuth
}

func New(registrar *Registrar, roles *RoleResolver, sessions *SessionCodec) *TenantAuth {
	return (&TenantAuth{Registrar: registrar, Roles: roles, Sessions: sessions}).EnsureDefaults()
}

func (a *TenantAuth) EnsureDefaults() *TenantAuth {
	if a.Sessions == nil {
		a.Sessions = &SessionCodec{}
	}
	if a.Prefix == "" {
		a.Prefix = "/auth"
	}
	a.Prefix = strings.TrimSuffix(a.Prefix, "/")
	if a.LoginPath == "" {
		a.LoginPath = "/login"
	}
	if a.AdminLandingPath == "" {
		a.AdminLandingPath = "/admin"
	}
	if a.UserLandingPath == "" {
		a.UserLandingPath = "/dashboard"
	}
	if a.Middleware.Sessions == nil {
		a.Middleware.Sessions = a.Sessions
	}
	if a.Middleware.LoginPath == "" {
		a.Middleware.LoginPath = a.LoginPath
	}
	return a
}

// Handler returns the route table, wrapped in the scs session middleware
// when a session manager is configured.
func (a *TenantAuth) Handler() http.Handler {
	var h http.Handler = a.Router()
	if a.Session != nil {
		h = a.Session.LoadAndSave(h)
	}
	return h
}

// Router exposes the underlying router so applications can mount their own
// routes next to the auth ones.
func (a *TenantAuth) Router() *mux.Router {
	a.setupRoutes()
	return a.router
}

func (a *TenantAuth) setupRoutes() {
	if a.router != nil {
		return
	}
	a.EnsureDefaults()
	a.local = &LocalAuth{
		Registrar:  a.Registrar,
		Roles:      a.Roles,
		Sessions:   a.Sessions,
		Production: a.Production,
		OnError:    a.OnError,
	}
	a.router = mux.NewRouter()
	sub := a.router.PathPrefix(a.Prefix).Subrouter()
	sub.HandleFunc("/register", a.local.HandleRegister).Methods(http.MethodPost)
	sub.HandleFunc("/send-otp", a.local.HandleSendOTP).Methods(http.MethodPost)
	sub.HandleFunc("/verify-otp", a.local.HandleVerifyOTP).Methods(http.MethodPost)
	sub.HandleFunc("/login", a.local.HandleLogin).Methods(http.MethodPost)
	sub.HandleFunc("/logout", a.local.HandleLogout).Methods(http.MethodPost)
	sub.HandleFunc("/session", a.local.HandleSession).Methods(http.MethodGet)
	sub.HandleFunc("/delete-user", a.local.HandleDeleteUser).Methods(http.MethodDelete)
}

// AddProvider mounts a federated sign-in flow, eg "google" serves
// /auth/google and /auth/google/callback.
func (a *TenantAuth) AddProvider(name string, provider FederatedProvider) *TenantAuth {
	a.setupRoutes()
	name = strings.Trim(name, "/")
	slog.Info("adding federated provider", "name", name, "path", a.Prefix+"/"+name)
	a.router.HandleFunc(a.Prefix+"/"+name, provider.HandleLogin).Methods(http.MethodGet)
	a.router.HandleFunc(a.Prefix+"/"+name+"/callback", provider.HandleCallback).Methods(http.MethodGet)
	return a
}

/**
 * Called by a federated provider after a successful callback.
 *
 * The provider has already verified the identity; here we only derive the
 * role, set the session cookie and pick the landing page.
 */
func (a *TenantAuth) SaveSessionAndRedirect(authtype, provider string, token *oauth2.Token, userInfo map[string]any, w http.ResponseWriter, r *http.Request) {
	a.EnsureDefaults()
	email, _ := userInfo["email"].(string)
	email = NormalizeEmail(email)
	if email == "" {
		a.RedirectToLogin(w, r, "no_email")
		return
	}

	session := Session{Email: email, Role: a.Roles.Resolve(r.Context(), email)}
	a.Sessions.WriteCookie(w, session)

	slog.Info("federated sign-in", "authtype", authtype, "provider", provider, "email", email, "role", session.Role)
	http.Redirect(w, r, a.LandingPath(session.Role), http.StatusFound)
}

// LandingPath is where a freshly signed in user of the given role is sent.
func (a *TenantAuth) LandingPath(role Role) string {
	a.EnsureDefaults()
	if role == RoleAdmin {
		return a.AdminLandingPath
	}
	return a.UserLandingPath
}

// RedirectToLogin sends the user agent to the login page carrying code.
func (a *TenantAuth) RedirectToLogin(w http.ResponseWriter, r *http.Request, code string) {
	a.EnsureDefaults()
	http.Redirect(w, r, a.LoginPath+"?error="+url.QueryEscape(code), http.StatusFound)
}
