// Package models holds the account and session types of the auth module.
package models

import (
	"net/mail"
	"strings"
	"time"

	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	maxFullNameLen = 100
)

// User is a local account.
//
// Invariants:
//   - Username is trimmed and 3 to 50 characters
//   - Email is trimmed, lowercased and syntactically valid
//   - PasswordHash is never empty and never serialized
type User struct {
	ID           id.UserID  `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	FullName     string     `json:"full_name"`
	Role         id.Role    `json:"role"`
	PasswordHash string     `json:"-"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// NewUser normalizes and validates account fields.
func NewUser(userID id.UserID, username, email, fullName string, role id.Role, passwordHash string, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	email = NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username must be between 3 and 50 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email must be a valid address")
	}
	if fullName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "full name cannot be empty")
	}
	if len(fullName) > maxFullNameLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "full name must be 100 characters or less")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}

	return &User{
		ID:           userID,
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Role:         role,
		PasswordHash: passwordHash,
		Active:       true,
		CreatedAt:    now,
	}, nil
}

// NormalizeEmail trims and lowercases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanLogin checks the account may sign in under the requested role.
func (u *User) CanLogin(role id.Role) error {
	if !u.Active {
		return dErrors.New(dErrors.CodeForbidden, "account is inactive")
	}
	if u.Role != role {
		return dErrors.New(dErrors.CodeForbidden, "access denied: invalid role for this login")
	}
	return nil
}

// RecordLogin stamps the last successful sign-in.
func (u *User) RecordLogin(now time.Time) {
	at := now
	u.LastLoginAt = &at
}

// Summary is the public view returned with a session.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		FullName: u.FullName,
		Role:     u.Role,
	}
}

type UserSummary struct {
	ID       id.UserID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	Role     id.Role   `json:"role"`
}

// ChangeContact replaces the full name and email under the same rules as NewUser.
func (u *User) ChangeContact(fullName, email string) error {
	fullName = strings.TrimSpace(fullName)
	email = NormalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return dErrors.New(dErrors.CodeInvariantViolation, "email must be a valid address")
	}
	if fullName == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "full name cannot be empty")
	}
	if len(fullName) > maxFullNameLen {
		return dErrors.New(dErrors.CodeInvariantViolation, "full name must be 100 characters or less")
	}
	u.FullName = fullName
	u.Email = email
	return nil
}
