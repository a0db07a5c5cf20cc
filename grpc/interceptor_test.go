package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	oa "github.com/panyam/tenantauth"
)

func sessionCtx(email string, role oa.Role) context.Context {
	return incoming(DefaultMetadataKeySession, testCodec.Encode(oa.Session{Email: email, Role: role}))
}

func expectCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error", code)
	}
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected grpc status error, got %v", err)
	}
	if st.Code() != code {
		t.Errorf("expected %v code, got %v", code, st.Code())
	}
}

func TestDefaultInterceptorConfig(t *testing.T) {
	config := DefaultInterceptorConfig(testCodec)
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true by default")
	}
	if config.PublicMethods == nil || config.MethodRoles == nil {
		t.Error("expected maps to be initialized")
	}
	if config.Config == nil || config.Sessions != testCodec {
		t.Error("expected Config to carry the codec")
	}
}

func TestNewPublicMethodsConfig(t *testing.T) {
	config := NewPublicMethodsConfig(testCodec, "/pkg.Svc/Method1", "/pkg.Svc/Method2")
	if !config.RequireAuth {
		t.Error("expected RequireAuth to be true")
	}
	if !config.PublicMethods["/pkg.Svc/Method1"] || !config.PublicMethods["/pkg.Svc/Method2"] {
		t.Error("expected both methods to be public")
	}
	if config.PublicMethods["/pkg.Svc/Method3"] {
		t.Error("expected Method3 to not be public")
	}
}

func TestUnarySessionInterceptor_RequireAuth_NoSession(t *testing.T) {
	interceptor := UnarySessionInterceptor(DefaultInterceptorConfig(testCodec))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		t.Error("handler should not be called")
		return nil, nil
	})
	expectCode(t, err, codes.Unauthenticated)
}

func TestUnarySessionInterceptor_AttachesSession(t *testing.T) {
	interceptor := UnarySessionInterceptor(DefaultInterceptorConfig(testCodec))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	var seen *oa.Session
	_, err := interceptor(sessionCtx("ann@example.com", oa.RoleUser), nil, info, func(ctx context.Context, req any) (any, error) {
		seen = oa.SessionFromContext(ctx)
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.Email != "ann@example.com" {
		t.Errorf("expected handler to see the session, got %+v", seen)
	}
}

func TestUnarySessionInterceptor_PublicMethod(t *testing.T) {
	interceptor := UnarySessionInterceptor(NewPublicMethodsConfig(testCodec, "/pkg.Svc/Health"))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Health"}

	called := false
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		called = true
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected handler to be called for public method")
	}
}

func TestUnarySessionInterceptor_OptionalAuth(t *testing.T) {
	interceptor := UnarySessionInterceptor(OptionalAuthConfig(testCodec))
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Svc/Method"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		if IsAuthenticated(ctx) {
			t.Error("expected no session")
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUnarySessionInterceptor_Roles(t *testing.T) {
	config := DefaultInterceptorConfig(testCodec).AdminOnly("/pkg.Admin/Purge")
	interceptor := UnarySessionInterceptor(config)
	info := &grpc.UnaryServerInfo{FullMethod: "/pkg.Admin/Purge"}
	ok := func(ctx context.Context, req any) (any, error) { return nil, nil }

	_, err := interceptor(sessionCtx("ann@example.com", oa.RoleUser), nil, info, ok)
	expectCode(t, err, codes.PermissionDenied)

	if _, err := interceptor(sessionCtx("boss@example.com", oa.RoleAdmin), nil, info, ok); err != nil {
		t.Errorf("expected admin to pass, got %v", err)
	}
}

type fakeStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeStream) Context() context.Context { return f.ctx }

func TestStreamSessionInterceptor(t *testing.T) {
	interceptor := StreamSessionInterceptor(DefaultInterceptorConfig(testCodec))
	info := &grpc.StreamServerInfo{FullMethod: "/pkg.Svc/Watch"}

	err := interceptor(nil, &fakeStream{ctx: context.Background()}, info, func(srv any, ss grpc.ServerStream) error {
		t.Error("handler should not be called")
		return nil
	})
	expectCode(t, err, codes.Unauthenticated)

	var seen *oa.Session
	err = interceptor(nil, &fakeStream{ctx: sessionCtx("ann@example.com", oa.RoleUser)}, info, func(srv any, ss grpc.ServerStream) error {
		seen = oa.SessionFromContext(ss.Context())
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen == nil || seen.Role != oa.RoleUser {
		t.Errorf("expected stream handler to see the session, got %+v", seen)
	}
}
