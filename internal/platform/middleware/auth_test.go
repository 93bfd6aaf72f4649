package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "dlvery/pkg/domain"
	"dlvery/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

type stubRevocations struct {
	revoked bool
	err     error
	seen    string
}

func (s *stubRevocations) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	s.seen = jti
	return s.revoked, s.err
}

type RequireAuthSuite struct {
	suite.Suite
	logger *slog.Logger
	claims *JWTClaims
}

func TestRequireAuthSuite(t *testing.T) {
	suite.Run(t, new(RequireAuthSuite))
}

func (s *RequireAuthSuite) SetupTest() {
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.claims = &JWTClaims{
		UserID:    uuid.NewString(),
		SessionID: uuid.NewString(),
		Username:  "agent1",
		Role:      string(id.RoleDeliveryAgent),
		JTI:       "jti-1",
	}
}

func (s *RequireAuthSuite) serve(v JWTValidator, rc TokenRevocationChecker, header string) (*httptest.ResponseRecorder, *requestcontext.Identity) {
	var got *requestcontext.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := requestcontext.IdentityFrom(r.Context())
		if ok {
			got = &ident
		}
		w.WriteHeader(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/deliveries", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	RequireAuth(v, rc, s.logger)(next).ServeHTTP(rr, req)
	return rr, got
}

func (s *RequireAuthSuite) TestValidTokenSetsIdentity() {
	revs := &stubRevocations{}
	rr, ident := s.serve(stubValidator{claims: s.claims}, revs, "Bearer token")

	s.Equal(http.StatusNoContent, rr.Code)
	s.Require().NotNil(ident)
	s.Equal("agent1", ident.Username)
	s.Equal(id.RoleDeliveryAgent, ident.Role)
	s.Equal(s.claims.UserID, ident.UserID.String())
	s.Equal("jti-1", revs.seen)
}

func (s *RequireAuthSuite) TestRejections() {
	s.Run("missing header", func() {
		rr, ident := s.serve(stubValidator{claims: s.claims}, nil, "")
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Contains(rr.Body.String(), "Missing or invalid Authorization header")
		s.Nil(ident)
	})
	s.Run("non bearer scheme", func() {
		rr, _ := s.serve(stubValidator{claims: s.claims}, nil, "Basic abc")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
	s.Run("invalid token", func() {
		rr, _ := s.serve(stubValidator{err: errors.New("bad signature")}, nil, "Bearer x")
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Contains(rr.Body.String(), "Invalid or expired token")
	})
	s.Run("unknown role in claims", func() {
		claims := *s.claims
		claims.Role = "ADMIN"
		rr, _ := s.serve(stubValidator{claims: &claims}, nil, "Bearer x")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
	s.Run("missing jti", func() {
		claims := *s.claims
		claims.JTI = ""
		rr, _ := s.serve(stubValidator{claims: &claims}, nil, "Bearer x")
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
	s.Run("revoked token", func() {
		rr, ident := s.serve(stubValidator{claims: s.claims}, &stubRevocations{revoked: true}, "Bearer x")
		s.Equal(http.StatusUnauthorized, rr.Code)
		s.Contains(rr.Body.String(), "Token has been revoked")
		s.Nil(ident)
	})
	s.Run("revocation lookup failure", func() {
		rr, _ := s.serve(stubValidator{claims: s.claims}, &stubRevocations{err: errors.New("redis down")}, "Bearer x")
		s.Equal(http.StatusInternalServerError, rr.Code)
	})
}

func (s *RequireAuthSuite) TestRequireRole() {
	handler := RequireRole(s.logger, id.RoleInventoryTeam)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	s.Run("permitted role", func() {
		req := httptest.NewRequest(http.MethodPost, "/deliveries", nil)
		req = req.WithContext(requestcontext.WithIdentity(req.Context(), requestcontext.Identity{Role: id.RoleInventoryTeam}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		s.Equal(http.StatusNoContent, rr.Code)
	})
	s.Run("other role", func() {
		req := httptest.NewRequest(http.MethodPost, "/deliveries", nil)
		req = req.WithContext(requestcontext.WithIdentity(req.Context(), requestcontext.Identity{Role: id.RoleDeliveryAgent}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		s.Equal(http.StatusForbidden, rr.Code)
	})
	s.Run("anonymous", func() {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/deliveries", nil))
		s.Equal(http.StatusForbidden, rr.Code)
	})
}
