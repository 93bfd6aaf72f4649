package models

import (
	"strings"
	"time"

	dErrors "dlvery/pkg/domain-errors"
)

// MovementType is the kind of stock change recorded against a product.
type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
	MovementDamaged    MovementType = "DAMAGED"
	MovementExpired    MovementType = "EXPIRED"
	MovementDelivery   MovementType = "DELIVERY"
)

// movementSigns maps each type to its effect on stock. ADJUSTMENT is
// recorded only by product edits and carries its own sign.
var movementSigns = map[MovementType]int{
	MovementIn:         1,
	MovementOut:        -1,
	MovementAdjustment: 0,
	MovementDamaged:    -1,
	MovementExpired:    -1,
	MovementDelivery:   -1,
}

// ParseMovementType validates s against the closed set.
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	if _, ok := movementSigns[t]; !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid movement type: "+s)
	}
	return t, nil
}

// Manual reports whether staff may record t directly.
func (t MovementType) Manual() bool {
	return movementSigns[t] != 0
}

const (
	maxReasonLen    = 255
	maxReferenceLen = 100

	// ReferenceInitial marks the movement that seeds a new product.
	ReferenceInitial = "INITIAL"
	// ReferenceAdjustment marks movements produced by editing a product's quantity.
	ReferenceAdjustment = "ADJUSTMENT"
)

// Movement is an append-only stock ledger entry. Quantity is always positive;
// Delta carries the signed effect and Balance the stock after it.
type Movement struct {
	ID          string       `json:"id"`
	SKU         string       `json:"sku"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"`
	Delta       int          `json:"delta"`
	Balance     int          `json:"balance"`
	Reason      string       `json:"reason,omitempty"`
	Reference   string       `json:"reference,omitempty"`
	PerformedBy string       `json:"performed_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

func normalizeNote(field, v string, limit int) (string, error) {
	v = strings.TrimSpace(v)
	if len(v) > limit {
		return "", dErrors.New(dErrors.CodeInvariantViolation, field+" is too long")
	}
	return v, nil
}
