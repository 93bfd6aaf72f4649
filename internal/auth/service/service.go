// Package service implements local account registration, login and logout.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dlvery/internal/auth/device"
	"dlvery/internal/auth/metrics"
	"dlvery/internal/auth/models"
	"dlvery/internal/auth/token"
	"dlvery/internal/password"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

const (
	defaultTokenTTL = 8 * time.Hour
	tokenType       = "Bearer"

	outcomeSuccess   = "success"
	outcomeFailed    = "failed"
	outcomeForbidden = "forbidden"
	outcomeLocked    = "locked"
)

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	ListByRole(ctx context.Context, role id.Role) ([]models.User, error)
}

// ProfileStore holds delivery agent profiles keyed by account.
type ProfileStore interface {
	FindByUserID(ctx context.Context, userID id.UserID) (*models.AgentProfile, error)
	Save(ctx context.Context, p *models.AgentProfile) error
}

type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

type TokenIssuer interface {
	GenerateAccessToken(u *models.User, sessionID id.SessionID, issuedAt time.Time, expiresIn time.Duration) (*token.Issued, error)
}

// LoginLockout throttles failed logins per username and client IP.
type LoginLockout interface {
	Check(ctx context.Context, username, ip string) error
	RecordFailure(ctx context.Context, username, ip string) (locked bool, err error)
	Clear(ctx context.Context, username, ip string) error
}

// Service owns account lifecycle and session issuance.
type Service struct {
	users      UserStore
	trl        RevocationList
	tokens     TokenIssuer
	devices    *device.Service
	lockout    LoginLockout
	profiles   ProfileStore
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tokenTTL   time.Duration
	bcryptCost int
	dummyHash  []byte
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithBcryptCost sets the hashing cost. Values outside bcrypt's range are ignored.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithLockout enables failed-login throttling.
func WithLockout(l LoginLockout) Option {
	return func(s *Service) {
		s.lockout = l
	}
}

// WithProfileStore enables the delivery agent profile operations.
func WithProfileStore(p ProfileStore) Option {
	return func(s *Service) {
		s.profiles = p
	}
}

func WithDeviceService(d *device.Service) Option {
	return func(s *Service) {
		s.devices = d
	}
}

func New(users UserStore, trl RevocationList, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("user store is required")
	}
	if trl == nil {
		return nil, errors.New("revocation list is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	s := &Service{
		users:      users,
		trl:        trl,
		tokens:     tokens,
		devices:    device.NewService(true),
		logger:     slog.Default(),
		tokenTTL:   defaultTokenTTL,
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	// Compared against when the username is unknown so both paths cost one bcrypt check.
	hash, err := bcrypt.GenerateFromPassword([]byte("dlvery-timing-equalizer"), s.bcryptCost)
	if err != nil {
		return nil, err
	}
	s.dummyHash = hash
	return s, nil
}

// RegisterCommand describes a new account.
type RegisterCommand struct {
	Username        string
	Email           string
	FullName        string
	Password        string
	ConfirmPassword string
	Role            id.Role
}

// Register creates an account after the password policy and uniqueness checks.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*models.User, error) {
	if _, err := id.ParseRole(string(cmd.Role)); err != nil {
		return nil, err
	}
	if err := s.checkPassword(cmd.Password); err != nil {
		return nil, err
	}
	if err := password.ValidateMatch(cmd.Password, cmd.ConfirmPassword); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(cmd.Username)
	if err := s.ensureAvailable(ctx, username, models.NormalizeEmail(cmd.Email)); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	u, err := models.NewUser(id.NewUserID(), username, cmd.Email, cmd.FullName, cmd.Role, string(hash), requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "user already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	if s.metrics != nil {
		s.metrics.IncrementRegistered(string(u.Role))
	}
	s.logAudit(ctx, "user_registered",
		"user_id", u.ID.String(),
		"username", u.Username,
		"role", string(u.Role),
	)
	return u, nil
}

func (s *Service) checkPassword(pw string) error {
	err := password.Validate(pw)
	if s.metrics != nil {
		s.metrics.ObservePassword(err == nil, password.Score(pw))
	}
	return err
}

func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return dErrors.New(dErrors.CodeConflict, "username already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check username")
	}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return dErrors.New(dErrors.CodeConflict, "email already exists")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check email")
	}
	return nil
}

// LoginCommand is a username/password sign-in for a specific role's portal.
type LoginCommand struct {
	Username string
	Password string
	Role     id.Role
}

// Login verifies credentials and issues a session token.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, cmd LoginCommand) (*models.Session, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	ip := requestcontext.ClientIP(ctx)

	if s.lockout != nil {
		if err := s.lockout.Check(ctx, cmd.Username, ip); err != nil {
			s.loginFailed(ctx, cmd, outcomeLocked, "locked")
			return nil, err
		}
	}

	u, err := s.users.FindByUsername(ctx, strings.TrimSpace(cmd.Username))
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(cmd.Password))
		s.loginFailed(ctx, cmd, outcomeFailed, "unknown_user")
		s.countFailure(ctx, cmd.Username, ip)
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(cmd.Password)); err != nil {
		s.loginFailed(ctx, cmd, outcomeFailed, "bad_password")
		s.countFailure(ctx, cmd.Username, ip)
		return nil, invalid
	}
	if err := u.CanLogin(cmd.Role); err != nil {
		s.loginFailed(ctx, cmd, outcomeForbidden, err.Error())
		return nil, err
	}

	now := requestcontext.Now(ctx)
	sessionID := id.NewSessionID()
	issued, err := s.tokens.GenerateAccessToken(u, sessionID, now, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if s.lockout != nil {
		if err := s.lockout.Clear(ctx, cmd.Username, ip); err != nil {
			s.logger.WarnContext(ctx, "failed to clear login lockout", "error", err)
		}
	}

	u.RecordLogin(now)
	if err := s.users.UpdateLastLogin(ctx, u); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login",
			"user_id", u.ID.String(),
			"error", err,
		)
	}

	ua := requestcontext.UserAgent(ctx)
	session := &models.Session{
		ID:          sessionID,
		AccessToken: issued.Token,
		TokenType:   tokenType,
		TokenID:     issued.TokenID,
		ExpiresAt:   issued.ExpiresAt,
		ExpiresIn:   int(s.tokenTTL.Seconds()),
		Device:      device.ParseUserAgent(ua),
		Fingerprint: s.devices.ComputeFingerprint(ua),
		User:        u.Summary(),
	}

	if s.metrics != nil {
		s.metrics.IncrementLogin(string(cmd.Role), outcomeSuccess)
	}
	s.logAudit(ctx, "user_logged_in",
		"user_id", u.ID.String(),
		"session_id", sessionID.String(),
		"device", session.Device,
		"client_ip", ip,
	)
	return session, nil
}

func (s *Service) loginFailed(ctx context.Context, cmd LoginCommand, outcome, reason string) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(string(cmd.Role), outcome)
	}
	s.logger.WarnContext(ctx, "login failed",
		"username", cmd.Username,
		"role", string(cmd.Role),
		"reason", reason,
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
}

func (s *Service) countFailure(ctx context.Context, username, ip string) {
	if s.lockout == nil {
		return
	}
	if _, err := s.lockout.RecordFailure(ctx, username, ip); err != nil {
		s.logger.WarnContext(ctx, "failed to record login failure", "error", err)
	}
}

// Logout revokes the caller's access token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context, ident requestcontext.Identity) error {
	if ident.TokenID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	ttl := ident.ExpiresAt.Sub(requestcontext.Now(ctx))
	if ttl <= 0 {
		return nil
	}
	if err := s.trl.RevokeToken(ctx, ident.TokenID, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	if s.metrics != nil {
		s.metrics.IncrementLogout()
	}
	s.logAudit(ctx, "user_logged_out",
		"user_id", ident.UserID.String(),
		"session_id", ident.SessionID.String(),
	)
	return nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

// AssessPassword scores a candidate password for live feedback.
func (s *Service) AssessPassword(pw string) password.Assessment {
	a := password.Assess(pw)
	if s.metrics != nil {
		s.metrics.ObservePassword(a.Valid, a.Score)
	}
	return a
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
