package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	oa "github.com/panyam/tenantauth"
)

// InterceptorConfig configures the session interceptor behavior.
type InterceptorConfig struct {
	// Config holds the session codec and metadata key.
	*Config

	// RequireAuth when true rejects requests without a valid session.
	// When false, requests proceed and oa.SessionFromContext returns nil.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require a session.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool

	// MethodRoles restricts methods to the listed roles. Methods not listed
	// accept any authenticated role.
	MethodRoles map[string][]oa.Role
}

// DefaultInterceptorConfig returns a config that requires a session for all methods.
func DefaultInterceptorConfig(sessions *oa.SessionCodec) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        &Config{Sessions: sessions},
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
		MethodRoles:   make(map[string][]oa.Role),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(sessions *oa.SessionCodec, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(sessions)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows requests without a session.
func OptionalAuthConfig(sessions *oa.SessionCodec) *InterceptorConfig {
	config := DefaultInterceptorConfig(sessions)
	config.RequireAuth = false
	return config
}

// AdminOnly restricts methods to admins.
func (c *InterceptorConfig) AdminOnly(methods ...string) *InterceptorConfig {
	if c.MethodRoles == nil {
		c.MethodRoles = make(map[string][]oa.Role)
	}
	for _, m := range methods {
		c.MethodRoles[m] = []oa.Role{oa.RoleAdmin}
	}
	return c
}

func normalizeConfig(config *InterceptorConfig) *InterceptorConfig {
	if config == nil {
		config = DefaultInterceptorConfig(nil)
	}
	if config.Config == nil {
		config.Config = &Config{}
	}
	config.Config.EnsureDefaults()
	return config
}

// authorize decodes the session and applies the method's policy. The
// returned context carries the session when one was found.
func authorize(ctx context.Context, method string, config *InterceptorConfig) (context.Context, error) {
	session := SessionFromMetadata(ctx, config.Config)
	if session != nil {
		ctx = oa.ContextWithSession(ctx, session)
	}

	if config.PublicMethods[method] {
		return ctx, nil
	}
	if session == nil {
		if config.RequireAuth {
			return ctx, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}
	if roles, ok := config.MethodRoles[method]; ok && !hasRole(session.Role, roles) {
		return ctx, status.Error(codes.PermissionDenied, "insufficient role")
	}
	return ctx, nil
}

func hasRole(role oa.Role, roles []oa.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// UnarySessionInterceptor returns a gRPC unary interceptor that decodes the
// session from metadata and attaches it to the handler context.
func UnarySessionInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = normalizeConfig(config)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authorize(ctx, info.FullMethod, config)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// sessionStream overrides Context so stream handlers see the session.
type sessionStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *sessionStream) Context() context.Context {
	return s.ctx
}

// StreamSessionInterceptor returns a gRPC stream interceptor that decodes the session.
func StreamSessionInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = normalizeConfig(config)

	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authorize(ss.Context(), info.FullMethod, config)
		if err != nil {
			return err
		}
		return handler(srv, &sessionStream{ServerStream: ss, ctx: ctx})
	}
}
