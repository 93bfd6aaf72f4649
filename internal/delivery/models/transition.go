package models

import (
	"fmt"
	"strings"

	dErrors "dlvery/pkg/domain-errors"
)

// TransitionRequest is the payload accompanying a status change.
type TransitionRequest struct {
	To Status
	// SignatureRef identifies the captured signature; required for DELIVERED.
	SignatureRef string
	CustomerName string
	Reason       string
	Notes        string
}

// Transition rule names carried by TransitionError.
const (
	RuleNotAllowed = "not_allowed"
	RuleRequired   = "required"
)

// TransitionError is a rejected status change. It unwraps to a CodeValidation
// domain error so transports report it without special-casing.
type TransitionError struct {
	From  Status
	To    Status
	Field string
	Rule  string
}

func (e *TransitionError) Error() string {
	if e.Rule == RuleNotAllowed {
		return fmt.Sprintf("transition from %s to %s is not allowed", e.From, e.To)
	}
	return fmt.Sprintf("%s is required to move a delivery to %s", e.Field, e.To)
}

func (e *TransitionError) Unwrap() error {
	return dErrors.New(dErrors.CodeValidation, e.Error())
}

// ValidateTransition checks a proposed change against the transition table and
// the target's payload requirements. It runs before any store round-trip; the
// store's conditional update remains authoritative.
func ValidateTransition(from Status, req TransitionRequest) error {
	if !from.CanTransitionTo(req.To) {
		return &TransitionError{From: from, To: req.To, Field: "status", Rule: RuleNotAllowed}
	}

	missing := func(field string) error {
		return &TransitionError{From: from, To: req.To, Field: field, Rule: RuleRequired}
	}

	switch req.To {
	case StatusDelivered:
		if strings.TrimSpace(req.SignatureRef) == "" {
			return missing("signature")
		}
		if strings.TrimSpace(req.CustomerName) == "" {
			return missing("customer_name")
		}
	case StatusDamagedInTransit, StatusReturned, StatusDoorLocked:
		if strings.TrimSpace(req.Reason) == "" {
			return missing("reason")
		}
	}
	return nil
}
