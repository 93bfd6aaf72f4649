package handler

import (
	"time"

	"dlvery/internal/inventory/models"
	dErrors "dlvery/pkg/domain-errors"
)

const dateLayout = "2006-01-02"

// ProductRequest is the body for POST /inventory/products and PUT /inventory/products/{sku}.
// Quantity is required on create and optional on update.
type ProductRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	Description    string `json:"description" validate:"max=1000"`
	Category       string `json:"category" validate:"required"`
	Quantity       *int   `json:"quantity" validate:"omitempty,min=0"`
	UnitPriceCents int64  `json:"unit_price_cents" validate:"min=0"`
	Damaged        bool   `json:"damaged"`
	Perishable     bool   `json:"perishable"`
	ExpiryDate     string `json:"expiry_date"`

	details models.Details
}

// Validate parses the category and expiry date.
func (r *ProductRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	r.details = models.Details{
		Name:           r.Name,
		Description:    r.Description,
		Category:       category,
		UnitPriceCents: r.UnitPriceCents,
		Damaged:        r.Damaged,
		Perishable:     r.Perishable,
	}
	if r.ExpiryDate != "" {
		at, err := time.Parse(dateLayout, r.ExpiryDate)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "expiry_date must be a date in YYYY-MM-DD form")
		}
		r.details.ExpiryDate = &at
	}
	return nil
}

// MovementRequest is the body for POST /inventory/products/{sku}/movements.
type MovementRequest struct {
	Type      string `json:"type" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Reason    string `json:"reason" validate:"max=255"`
	Reference string `json:"reference" validate:"max=100"`

	parsedType models.MovementType
}

func (r *MovementRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	typ, err := models.ParseMovementType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = typ
	return nil
}
