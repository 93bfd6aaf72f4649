// Package requestcontext provides HTTP-independent accessors for request-scoped values.
//
// Middleware sets these values; services read them. Keeping the package free of
// net/http lets services import it without dragging in transport code.
//
// The authenticated identity travels here explicitly instead of living in a
// process-wide "current user": RequireAuth stores an Identity, and components that
// need to know who is acting read it from the context they are handed.
//
//	ident, ok := requestcontext.IdentityFrom(ctx)
//	now := requestcontext.Now(ctx)
package requestcontext

import (
	"context"
	"time"

	id "dlvery/pkg/domain"
)

type (
	identityKey    struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientMetaKey  struct{}
)

// Identity is the authenticated principal of a request.
type Identity struct {
	UserID    id.UserID
	SessionID id.SessionID
	Username  string
	Role      id.Role
	TokenID   string
	ExpiresAt time.Time
}

// WithIdentity injects the authenticated identity.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, ident)
}

// IdentityFrom returns the identity and whether one was set.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey{}).(Identity)
	return ident, ok
}

// UserID returns the authenticated user ID or the zero value.
func UserID(ctx context.Context) id.UserID {
	ident, _ := IdentityFrom(ctx)
	return ident.UserID
}

// Username returns the authenticated username or "".
func Username(ctx context.Context) string {
	ident, _ := IdentityFrom(ctx)
	return ident.Username
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time.
// Falls back to time.Now() outside HTTP requests (CLI, workers).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the request-scoped time. Tests use it to make date arithmetic deterministic.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

type clientMeta struct {
	ip        string
	userAgent string
}

// WithClientMetadata injects client IP and User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	return context.WithValue(ctx, clientMetaKey{}, clientMeta{ip: clientIP, userAgent: userAgent})
}

// ClientIP retrieves the client IP address.
func ClientIP(ctx context.Context) string {
	m, _ := ctx.Value(clientMetaKey{}).(clientMeta)
	return m.ip
}

// UserAgent retrieves the User-Agent header value.
func UserAgent(ctx context.Context) string {
	m, _ := ctx.Value(clientMetaKey{}).(clientMeta)
	return m.userAgent
}
