// Package domain holds typed identifiers shared across modules.
//
// Typed IDs keep a delivery ID from being passed where a user ID is expected.
// Construct them with the Parse functions at trust boundaries.
package domain

import (
	"github.com/google/uuid"

	dErrors "dlvery/pkg/domain-errors"
)

type (
	UserID     uuid.UUID
	SessionID  uuid.UUID
	DeliveryID uuid.UUID
)

func parseUUID(kind, s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

// ParseUserID validates s as a non-nil UUID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID("user ID", s)
	return UserID(u), err
}

// ParseSessionID validates s as a non-nil UUID.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID("session ID", s)
	return SessionID(u), err
}

// ParseDeliveryID validates s as a non-nil UUID.
func ParseDeliveryID(s string) (DeliveryID, error) {
	u, err := parseUUID("delivery ID", s)
	return DeliveryID(u), err
}

// NewUserID, NewSessionID and NewDeliveryID generate random (v4) identifiers.
func NewUserID() UserID         { return UserID(uuid.New()) }
func NewSessionID() SessionID   { return SessionID(uuid.New()) }
func NewDeliveryID() DeliveryID { return DeliveryID(uuid.New()) }

func (id UserID) String() string     { return uuid.UUID(id).String() }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) String() string  { return uuid.UUID(id).String() }
func (id SessionID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id DeliveryID) String() string { return uuid.UUID(id).String() }
func (id DeliveryID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id UserID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id SessionID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id DeliveryID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *UserID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *SessionID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *DeliveryID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
