// Package models holds the inventory product aggregate and its movement ledger.
package models

import (
	"strconv"
	"strings"
	"time"

	dErrors "dlvery/pkg/domain-errors"
)

const (
	maxNameLen        = 200
	maxDescriptionLen = 1000

	// ExpiryWindow is how far ahead a perishable product counts as expiring.
	ExpiryWindow = 7 * 24 * time.Hour
)

// Product is a stocked item keyed by SKU.
//
// Invariants:
//   - SKU is assigned at creation and never changes
//   - Quantity is never negative
//   - every Quantity change is paired with a Movement whose Balance equals the new Quantity
//   - Version increases by one on every stored update
type Product struct {
	SKU            string     `json:"sku"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Category       Category   `json:"category"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Damaged        bool       `json:"damaged"`
	Perishable     bool       `json:"perishable"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Version        int        `json:"version"`
}

// Details are the descriptive fields staff may edit.
type Details struct {
	Name           string
	Description    string
	Category       Category
	UnitPriceCents int64
	Damaged        bool
	Perishable     bool
	ExpiryDate     *time.Time
}

// NewProduct builds a product with zero stock. Opening stock is applied through Move.
func NewProduct(sku string, d Details, now time.Time) (*Product, error) {
	p := &Product{SKU: sku, CreatedAt: now, UpdatedAt: now}
	if err := p.SetDetails(d, now); err != nil {
		return nil, err
	}
	return p, nil
}

// SetDetails validates and applies the descriptive fields.
func (p *Product) SetDetails(d Details, now time.Time) error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "product name cannot be empty")
	}
	if len(name) > maxNameLen {
		return dErrors.New(dErrors.CodeInvariantViolation, "product name must be 200 characters or less")
	}
	desc, err := normalizeNote("description", d.Description, maxDescriptionLen)
	if err != nil {
		return err
	}
	if _, err := ParseCategory(string(d.Category)); err != nil {
		return err
	}
	if d.UnitPriceCents < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "unit price cannot be negative")
	}
	if d.ExpiryDate != nil && !d.Perishable {
		return dErrors.New(dErrors.CodeInvariantViolation, "only perishable products carry an expiry date")
	}

	p.Name = name
	p.Description = desc
	p.Category = d.Category
	p.UnitPriceCents = d.UnitPriceCents
	p.Damaged = d.Damaged
	p.Perishable = d.Perishable
	p.ExpiryDate = d.ExpiryDate
	p.UpdatedAt = now
	return nil
}

// MoveCommand is one stock change.
type MoveCommand struct {
	Type        MovementType
	Quantity    int
	Reason      string
	Reference   string
	PerformedBy string
}

// Move applies cmd to the stock and returns the ledger entry for it.
// Outbound movements beyond the available stock are rejected with CodeConflict.
func (p *Product) Move(movementID string, cmd MoveCommand, now time.Time) (*Movement, error) {
	if cmd.Quantity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "movement quantity must be positive")
	}
	sign, ok := movementSigns[cmd.Type]
	if !ok || sign == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "movement type "+string(cmd.Type)+" cannot change stock directly")
	}
	return p.apply(movementID, cmd, sign*cmd.Quantity, now)
}

// SetQuantity records the difference to target as an IN or OUT adjustment.
// It returns nil when the quantity is unchanged.
func (p *Product) SetQuantity(movementID string, target int, performedBy string, now time.Time) (*Movement, error) {
	if target < 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "quantity cannot be negative")
	}
	diff := target - p.Quantity
	if diff == 0 {
		return nil, nil
	}
	cmd := MoveCommand{
		Type:        MovementIn,
		Quantity:    diff,
		Reason:      "Quantity adjustment",
		Reference:   ReferenceAdjustment,
		PerformedBy: performedBy,
	}
	if diff < 0 {
		cmd.Type = MovementOut
		cmd.Quantity = -diff
	}
	return p.apply(movementID, cmd, diff, now)
}

func (p *Product) apply(movementID string, cmd MoveCommand, delta int, now time.Time) (*Movement, error) {
	reason, err := normalizeNote("reason", cmd.Reason, maxReasonLen)
	if err != nil {
		return nil, err
	}
	reference, err := normalizeNote("reference", cmd.Reference, maxReferenceLen)
	if err != nil {
		return nil, err
	}
	balance := p.Quantity + delta
	if balance < 0 {
		return nil, dErrors.New(dErrors.CodeConflict,
			"insufficient stock for "+p.SKU+": have "+strconv.Itoa(p.Quantity)+", need "+strconv.Itoa(-delta))
	}
	p.Quantity = balance
	p.UpdatedAt = now
	return &Movement{
		ID:          movementID,
		SKU:         p.SKU,
		Type:        cmd.Type,
		Quantity:    cmd.Quantity,
		Delta:       delta,
		Balance:     balance,
		Reason:      reason,
		Reference:   reference,
		PerformedBy: cmd.PerformedBy,
		CreatedAt:   now,
	}, nil
}

// Available reports whether any stock is on hand.
func (p *Product) Available() bool {
	return p.Quantity > 0
}

// Expiring reports whether a perishable product expires on or before now plus ExpiryWindow.
func (p *Product) Expiring(now time.Time) bool {
	return p.Perishable && p.ExpiryDate != nil && !p.ExpiryDate.After(now.Add(ExpiryWindow))
}
