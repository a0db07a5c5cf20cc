package tenantauth_test

import (
	"context"
	"errors"
	"testing"

	oa "github.com/panyam/tenantauth"
)

type brokenAdminList struct{}

func (brokenAdminList) AdminEmails(ctx context.Context) ([]string, error) {
	return nil, errors.New("bucket unreachable")
}

func TestRoleResolver(t *testing.T) {
	ctx := context.Background()
	resolver := &oa.RoleResolver{
		SuperAdmin: "Boss@Example.com",
		Admins:     oa.StaticAdminList{" ops@example.com", "Lead@Example.com"},
	}

	tests := []struct {
		email string
		want  oa.Role
	}{
		{"boss@example.com", oa.RoleAdmin},
		{"BOSS@EXAMPLE.COM", oa.RoleAdmin},
		{"ops@example.com", oa.RoleAdmin},
		{"lead@example.com", oa.RoleAdmin},
		{"ann@example.com", oa.RoleUser},
		{"", oa.RoleUser},
	}
	for _, tt := range tests {
		if got := resolver.Resolve(ctx, tt.email); got != tt.want {
			t.Errorf("Resolve(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestRoleResolverFallbacks(t *testing.T) {
	ctx := context.Background()

	var nilResolver *oa.RoleResolver
	if got := nilResolver.Resolve(ctx, "boss@example.com"); got != oa.RoleUser {
		t.Errorf("nil resolver = %q, want user", got)
	}

	broken := &oa.RoleResolver{SuperAdmin: "boss@example.com", Admins: brokenAdminList{}}
	if got := broken.Resolve(ctx, "ops@example.com"); got != oa.RoleUser {
		t.Errorf("allow-list error = %q, want user", got)
	}
	if got := broken.Resolve(ctx, "boss@example.com"); got != oa.RoleAdmin {
		t.Errorf("super admin should not depend on the allow-list, got %q", got)
	}
}

func TestRoleResolverReadsStoreAdmins(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	resolver := &oa.RoleResolver{Admins: env.store}

	if got := resolver.Resolve(ctx, "ops@example.com"); got != oa.RoleUser {
		t.Fatalf("expected user before promotion, got %q", got)
	}
	if err := env.store.AddAdmin(ctx, "Ops@Example.com"); err != nil {
		t.Fatal(err)
	}
	if got := resolver.Resolve(ctx, "ops@example.com"); got != oa.RoleAdmin {
		t.Errorf("expected admin after promotion, got %q", got)
	}
}
