package token

import (
	"dlvery/internal/platform/middleware"
)

// ToMiddlewareClaims maps token claims to what RequireAuth consumes.
func ToMiddlewareClaims(claims *Claims) *middleware.JWTClaims {
	out := &middleware.JWTClaims{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Username:  claims.Username,
		Role:      claims.Role,
		JTI:       claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out
}

// JWTServiceAdapter lets JWTService satisfy middleware.JWTValidator.
type JWTServiceAdapter struct {
	service *JWTService
}

func NewJWTServiceAdapter(service *JWTService) *JWTServiceAdapter {
	return &JWTServiceAdapter{service: service}
}

func (a *JWTServiceAdapter) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
