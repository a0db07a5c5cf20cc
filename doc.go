// Package tenantauth provides registration, one-time code verification,
// federated sign-in and cookie sessions for multi-tenant SaaS backends.
//
// TenantAuth separates the flow into a few small parts: a credential
// validator, a Registrar that runs the pending registration / OTP state
// machine over a RegistrationStore, a RoleResolver that maps an email to
// user or admin, and a SessionCodec that writes the {email, role} session
// cookie shared by every front end.
//
// # Registration
//
// A signup is held as a PendingRegistration with a six digit PendingOtp
// until the user confirms it. Confirmation promotes the pending record into
// a User and, if configured, announces the new account to a companion
// system through an AccountSyncer:
//
//	registrar := &tenantauth.Registrar{
//	    Store:      stores.NewFSBlobStore("/path/to/data"),
//	    Dispatcher: &tenantauth.ConsoleDispatcher{},
//	}
//	err := registrar.RequestRegistration(ctx, tenantauth.RegistrationRequest{
//	    Name: "Ann", Email: "ann@example.com", Password: "Secret123",
//	})
//	user, err := registrar.VerifyOTP(ctx, "ann@example.com", code)
//
// # HTTP Routes
//
// TenantAuth mounts the JSON endpoints under /auth:
//
//	roles := &tenantauth.RoleResolver{SuperAdmin: "boss@example.com"}
//	ta := tenantauth.New(registrar, roles, &tenantauth.SessionCodec{})
//	google := oauth2.NewGoogleFederator("", "", "", ta.SaveSessionAndRedirect)
//	ta.AddProvider("google", google)
//	http.ListenAndServe(":8080", ta.Handler())
//
// Downstream handlers read the session with Middleware.ExtractSession and
// guard admin pages with Middleware.RequireRole.
//
// # Store Implementations
//
// The stores package keeps one JSON blob per table on a filesystem or S3
// backend, guarded against lost updates. stores/gorm and stores/gae keep one
// row or entity per email for larger deployments.
//
// # Security
//
// Passwords are hashed using bcrypt with default cost over a SHA-256 digest,
// so any length is accepted. Codes come from crypto/rand and live for ten
// minutes. Session values can be signed with an HMAC so clients cannot forge
// a role.
package tenantauth
