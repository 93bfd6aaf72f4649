package models

import (
	"time"

	id "dlvery/pkg/domain"
)

// Session is the result of a successful login. It is not persisted: the access
// token carries the identity and logout revokes the token ID.
type Session struct {
	ID          id.SessionID `json:"session_id"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	TokenID     string       `json:"-"`
	ExpiresAt   time.Time    `json:"expires_at"`
	ExpiresIn   int          `json:"expires_in"`
	Device      string       `json:"device"`
	Fingerprint string       `json:"-"`
	User        UserSummary  `json:"user"`
}

// RemainingTTL is how long the session's token stays valid after now.
func (s *Session) RemainingTTL(now time.Time) time.Duration {
	if now.After(s.ExpiresAt) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
