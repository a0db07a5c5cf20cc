package tenantauth

import (
	"context"
	"log/slog"
	"strings"
)

// Role is the coarse authorization level carried in a Session.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid reports whether r is one of the known roles.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// AdminList is a source of admin email addresses.
type AdminList interface {
	AdminEmails(ctx context.Context) ([]string, error)
}

// StaticAdminList is an AdminList loaded once from configuration.
type StaticAdminList []string

func (l StaticAdminList) AdminEmails(ctx context.Context) ([]string, error) {
	return l, nil
}

// RoleResolver maps an email to a role. It is consulted on every sign-in so
// allow-list changes apply at the next login without touching stored users.
type RoleResolver struct {
	// SuperAdmin is always an admin regardless of the allow-list
	SuperAdmin string

	// Admins is optional
	Admins AdminList

	Logger *slog.Logger
}

// Resolve never fails: allow-list errors are logged and treated as "not listed".
func (r *RoleResolver) Resolve(ctx context.Context, email string) Role {
	if r == nil {
		return RoleUser
	}
	email = NormalizeEmail(email)
	if email == "" {
		return RoleUser
	}
	if super := NormalizeEmail(r.SuperAdmin); super != "" && super == email {
		return RoleAdmin
	}
	if r.Admins == nil {
		return RoleUser
	}
	admins, err := r.Admins.AdminEmails(ctx)
	if err != nil {
		r.logger().Warn("failed to load admin allow-list", "error", err)
		return RoleUser
	}
	for _, admin := range admins {
		if strings.EqualFold(strings.TrimSpace(admin), email) {
			return RoleAdmin
		}
	}
	return RoleUser
}

func (r *RoleResolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
