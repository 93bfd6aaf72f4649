package handler

import (
	"time"

	"dlvery/internal/delivery/models"
	"dlvery/internal/signature"
	dErrors "dlvery/pkg/domain-errors"
)

const (
	maxStrokes         = 200
	maxPointsPerStroke = 2000
	maxCanvasSide      = 4096
)

// CreateDeliveryRequest is the body for POST /deliveries.
type CreateDeliveryRequest struct {
	CustomerName    string `json:"customer_name" validate:"required,max=128"`
	CustomerAddress string `json:"customer_address" validate:"required,max=512"`
	CustomerPhone   string `json:"customer_phone" validate:"max=32"`
	Notes           string `json:"notes" validate:"max=1000"`
	Priority        string `json:"priority"`
	ScheduledAt     string `json:"scheduled_at"`
	Agent           string `json:"agent" validate:"max=64"`

	parsedPriority    models.Priority
	parsedScheduledAt time.Time
}

// Validate parses priority and schedule.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateDeliveryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	priority, err := models.ParsePriority(r.Priority)
	if err != nil {
		return err
	}
	r.parsedPriority = priority

	if r.ScheduledAt != "" {
		at, err := time.Parse(time.RFC3339, r.ScheduledAt)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "scheduled_at must be an RFC3339 timestamp")
		}
		r.parsedScheduledAt = at
	}
	return nil
}

// UpdateStatusRequest is the body for POST /deliveries/{id}/status.
type UpdateStatusRequest struct {
	Status       string              `json:"status" validate:"required"`
	CustomerName string              `json:"customer_name" validate:"max=128"`
	Reason       string              `json:"reason" validate:"max=500"`
	Notes        string              `json:"notes" validate:"max=1000"`
	Signature    string              `json:"signature" sanitize:"-"`
	Strokes      [][]signature.Point `json:"strokes"`
	CanvasWidth  int                 `json:"canvas_width" validate:"gte=0"`
	CanvasHeight int                 `json:"canvas_height" validate:"gte=0"`

	parsedStatus models.Status
}

// Validate parses the target status and bounds the stroke payload.
func (r *UpdateStatusRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	status, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsedStatus = status

	if r.CanvasWidth > maxCanvasSide || r.CanvasHeight > maxCanvasSide {
		return dErrors.New(dErrors.CodeValidation, "canvas dimensions must be at most 4096")
	}
	if len(r.Strokes) > maxStrokes {
		return dErrors.New(dErrors.CodeValidation, "too many strokes")
	}
	for _, stroke := range r.Strokes {
		if len(stroke) > maxPointsPerStroke {
			return dErrors.New(dErrors.CodeValidation, "stroke has too many points")
		}
	}
	return nil
}
