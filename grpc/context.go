// Package grpc carries the tenantauth session between HTTP front ends and
// gRPC services via metadata. Services see the same {email, role} value the
// browser holds in its session cookie.
package grpc

import (
	"context"
	"net/http"

	"google.golang.org/grpc/metadata"

	oa "github.com/panyam/tenantauth"
)

// Default metadata keys for the session.
const (
	// DefaultMetadataKeySession carries an encoded session value directly
	DefaultMetadataKeySession = "x-session"

	// MetadataKeyCookie is where grpc-gateway and browsers forward the Cookie header
	MetadataKeyCookie = "cookie"
)

// Config holds the codec and metadata key used to find a session.
type Config struct {
	// Sessions decodes session values. Required; must match the HTTP side.
	Sessions *oa.SessionCodec

	// MetadataKeySession is the gRPC metadata key for an encoded session.
	// Defaults to "x-session".
	MetadataKeySession string
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeySession == "" {
		c.MetadataKeySession = DefaultMetadataKeySession
	}
	if c.Sessions == nil {
		c.Sessions = &oa.SessionCodec{}
	}
}

// SessionFromMetadata decodes the session from incoming metadata. The
// explicit session key wins over the cookie header. Returns nil when no
// valid session is present.
func SessionFromMetadata(ctx context.Context, config *Config) *oa.Session {
	if config == nil {
		config = &Config{}
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil
	}

	if values := md.Get(config.MetadataKeySession); len(values) > 0 && values[0] != "" {
		if s := config.Sessions.Decode(values[0]); s != nil {
			return s
		}
	}

	name := config.Sessions.Name()
	for _, line := range md.Get(MetadataKeyCookie) {
		cookies, err := http.ParseCookie(line)
		if err != nil {
			continue
		}
		for _, c := range cookies {
			if c.Name == name {
				return config.Sessions.Decode(c.Value)
			}
		}
	}
	return nil
}

// SessionToOutgoingContext encodes s into outgoing metadata so a downstream
// service running the interceptor sees the same session.
func SessionToOutgoingContext(ctx context.Context, codec *oa.SessionCodec, s oa.Session) context.Context {
	return SessionToOutgoingContextWithKey(ctx, codec, s, DefaultMetadataKeySession)
}

// SessionToOutgoingContextWithKey is SessionToOutgoingContext with a custom key.
func SessionToOutgoingContextWithKey(ctx context.Context, codec *oa.SessionCodec, s oa.Session, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, codec.Encode(s))
}

// IsAuthenticated returns true if the interceptor attached a session to ctx.
func IsAuthenticated(ctx context.Context) bool {
	return oa.SessionFromContext(ctx) != nil
}
