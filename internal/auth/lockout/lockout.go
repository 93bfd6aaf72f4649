// Package lockout throttles repeated failed logins per username and client IP.
package lockout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

// Record is the failure state of one username+IP pair.
type Record struct {
	Key         string
	Failures    int
	LockedUntil *time.Time
}

// IsLockedAt reports whether the pair is still locked at now.
func (r *Record) IsLockedAt(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// Store persists failure counters. Counters expire window after the first failure.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Increment(ctx context.Context, key string, window time.Duration) (*Record, error)
	Lock(ctx context.Context, key string, until time.Time) error
	Clear(ctx context.Context, key string) error
}

// Policy bounds failed attempts.
type Policy struct {
	MaxAttempts  int
	Window       time.Duration
	LockDuration time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		Window:       15 * time.Minute,
		LockDuration: 15 * time.Minute,
	}
}

type Service struct {
	store  Store
	policy Policy
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithPolicy(p Policy) Option {
	return func(s *Service) {
		if p.MaxAttempts > 0 && p.Window > 0 && p.LockDuration > 0 {
			s.policy = p
		}
	}
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("lockout store is required")
	}
	s := &Service{
		store:  store,
		policy: DefaultPolicy(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Key builds the counter key. Usernames are case-folded.
func Key(username, ip string) string {
	return strings.ToLower(strings.TrimSpace(username)) + "|" + ip
}

// Check rejects the attempt while the pair is locked.
func (s *Service) Check(ctx context.Context, username, ip string) error {
	rec, err := s.store.Get(ctx, Key(username, ip))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read login lockout")
	}
	now := requestcontext.Now(ctx)
	if rec.IsLockedAt(now) {
		retry := rec.LockedUntil.Sub(now).Round(time.Second)
		return dErrors.New(dErrors.CodeTooManyRequests, fmt.Sprintf("too many failed login attempts, retry in %s", retry))
	}
	return nil
}

// RecordFailure counts a failed attempt and locks the pair once the policy is exceeded.
func (s *Service) RecordFailure(ctx context.Context, username, ip string) (locked bool, err error) {
	key := Key(username, ip)
	rec, err := s.store.Increment(ctx, key, s.policy.Window)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record login failure")
	}
	if rec.Failures < s.policy.MaxAttempts {
		return false, nil
	}

	until := requestcontext.Now(ctx).Add(s.policy.LockDuration)
	if err := s.store.Lock(ctx, key, until); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock login")
	}
	s.logger.WarnContext(ctx, "login locked",
		"event", "login_locked",
		"log_type", "audit",
		"username", username,
		"client_ip", ip,
		"failures", rec.Failures,
		"locked_until", until,
		"request_id", requestcontext.RequestID(ctx),
	)
	return true, nil
}

// Clear resets the pair after a successful login.
func (s *Service) Clear(ctx context.Context, username, ip string) error {
	if err := s.store.Clear(ctx, Key(username, ip)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear login lockout")
	}
	return nil
}
