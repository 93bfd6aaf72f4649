// Package models holds the delivery aggregate, its status lifecycle and priority.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
)

const (
	numberPrefix       = "DLV-"
	maxCustomerNameLen = 128
	maxAddressLen      = 512
)

// Delivery is the aggregate root for a single drop-off.
//
// Invariants:
//   - Number is "DLV-" followed by 8 uppercase hex characters and never changes
//   - Status is always one of Statuses
//   - DeliveredAt is set exactly when Status is DELIVERED
//   - Status changes go through CanTransition + ApplyTransition
type Delivery struct {
	ID              id.DeliveryID `json:"id"`
	Number          string        `json:"delivery_number"`
	Agent           string        `json:"agent,omitempty"`
	Status          Status        `json:"status"`
	Priority        Priority      `json:"priority"`
	CustomerName    string        `json:"customer_name"`
	CustomerAddress string        `json:"customer_address"`
	CustomerPhone   string        `json:"customer_phone,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	StatusReason    string        `json:"status_reason,omitempty"`
	SignatureRef    string        `json:"signature_ref,omitempty"`
	ReceivedBy      string        `json:"received_by,omitempty"`
	ScheduledAt     time.Time     `json:"scheduled_at"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	AssignedAt      *time.Time    `json:"assigned_at,omitempty"`
	DeliveredAt     *time.Time    `json:"delivered_at,omitempty"`
}

// NewDelivery builds a pending delivery, or an assigned one when agent is set.
func NewDelivery(deliveryID id.DeliveryID, customerName, address string, priority Priority, scheduledAt time.Time, agent string, now time.Time) (*Delivery, error) {
	customerName = strings.TrimSpace(customerName)
	address = strings.TrimSpace(address)
	if customerName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer name cannot be empty")
	}
	if len(customerName) > maxCustomerNameLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer name must be 128 characters or less")
	}
	if address == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer address cannot be empty")
	}
	if len(address) > maxAddressLen {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "customer address must be 512 characters or less")
	}
	if priority == "" {
		priority = PriorityStandard
	}

	d := &Delivery{
		ID:              deliveryID,
		Number:          NumberFor(deliveryID),
		Agent:           agent,
		Status:          StatusPending,
		Priority:        priority,
		CustomerName:    customerName,
		CustomerAddress: address,
		ScheduledAt:     scheduledAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if agent != "" {
		d.Status = StatusAssigned
		assigned := now
		d.AssignedAt = &assigned
	}
	return d, nil
}

// NumberFor derives the human-facing delivery number from the ID.
func NumberFor(deliveryID id.DeliveryID) string {
	hex := strings.ReplaceAll(uuid.UUID(deliveryID).String(), "-", "")
	return numberPrefix + strings.ToUpper(hex[:8])
}

// IsTerminal reports whether the delivery has reached a final state.
func (d *Delivery) IsTerminal() bool {
	return d.Status.IsTerminal()
}

// CanTransition validates req against the current status.
// Use with ApplyTransition once the store has accepted the change.
func (d *Delivery) CanTransition(req TransitionRequest) error {
	return ValidateTransition(d.Status, req)
}

// ApplyTransition moves the delivery to req.To and records the accompanying payload.
// Call CanTransition first.
func (d *Delivery) ApplyTransition(req TransitionRequest, now time.Time) {
	d.Status = req.To
	d.UpdatedAt = now
	if req.Reason != "" {
		d.StatusReason = strings.TrimSpace(req.Reason)
	}
	if req.Notes != "" {
		d.Notes = strings.TrimSpace(req.Notes)
	}
	if req.To == StatusDelivered {
		d.SignatureRef = req.SignatureRef
		d.ReceivedBy = strings.TrimSpace(req.CustomerName)
		delivered := now
		d.DeliveredAt = &delivered
	}
}

// Transition validates and applies in one call.
func (d *Delivery) Transition(req TransitionRequest, now time.Time) error {
	if err := d.CanTransition(req); err != nil {
		return err
	}
	d.ApplyTransition(req, now)
	return nil
}
