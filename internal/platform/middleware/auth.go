package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	id "dlvery/pkg/domain"
	"dlvery/pkg/requestcontext"
)

var errMissingJTI = errors.New("token has no jti")

// JWTValidator validates a bearer token and returns its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker reports whether a token ID was revoked by logout.
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims are the claims RequireAuth needs from a validated token.
type JWTClaims struct {
	UserID    string
	SessionID string
	Username  string
	Role      string
	JTI       string
	ExpiresAt time.Time
}

// RequireAuth validates the bearer token, rejects revoked tokens and stores the
// caller's requestcontext.Identity. revocationChecker may be nil.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ident, err := identityFrom(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed claims",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			if revocationChecker != nil {
				revoked, err := revocationChecker.IsTokenRevoked(ctx, claims.JTI)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check token revocation",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to validate token")
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - token revoked",
						"jti", claims.JTI,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token has been revoked")
					return
				}
			}

			ctx = requestcontext.WithIdentity(ctx, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects authenticated callers whose role is not listed.
// It must run after RequireAuth.
func RequireRole(logger *slog.Logger, roles ...id.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ident, ok := requestcontext.IdentityFrom(ctx)
			if !ok || !slices.Contains(roles, ident.Role) {
				logger.WarnContext(ctx, "forbidden - role not permitted",
					"role", string(ident.Role),
					"request_id", GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Role not permitted for this operation")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFrom(claims *JWTClaims) (requestcontext.Identity, error) {
	if claims.JTI == "" {
		return requestcontext.Identity{}, errMissingJTI
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return requestcontext.Identity{}, err
	}
	role, err := id.ParseRole(claims.Role)
	if err != nil {
		return requestcontext.Identity{}, err
	}
	ident := requestcontext.Identity{
		UserID:    userID,
		Username:  claims.Username,
		Role:      role,
		TokenID:   claims.JTI,
		ExpiresAt: claims.ExpiresAt,
	}
	if claims.SessionID != "" {
		sessionID, err := id.ParseSessionID(claims.SessionID)
		if err != nil {
			return requestcontext.Identity{}, err
		}
		ident.SessionID = sessionID
	}
	return ident, nil
}
