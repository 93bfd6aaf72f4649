package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"dlvery/internal/inventory/models"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

// MovementCommand is a manual stock change recorded by staff.
type MovementCommand struct {
	Type      models.MovementType
	Quantity  int
	Reason    string
	Reference string
}

// RecordMovement applies a stock change and appends it to the ledger.
// ADJUSTMENT is reserved for product edits and is rejected here.
func (s *Service) RecordMovement(ctx context.Context, sku string, cmd MovementCommand) (*models.Movement, error) {
	ctx, span := tracer.Start(ctx, "inventory.RecordMovement")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.sku", sku),
		attribute.String("movement.type", string(cmd.Type)),
	)

	if !cmd.Type.Manual() {
		return nil, dErrors.New(dErrors.CodeValidation, "adjustments are recorded by editing the product quantity")
	}

	now := requestcontext.Now(ctx)
	p, m, err := s.mutate(ctx, sku, func(p *models.Product) (*models.Movement, error) {
		return p.Move(s.newID(), models.MoveCommand{
			Type:        cmd.Type,
			Quantity:    cmd.Quantity,
			Reason:      cmd.Reason,
			Reference:   cmd.Reference,
			PerformedBy: actor(ctx),
		}, now)
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	s.logAudit(ctx, "stock_moved",
		"sku", p.SKU,
		"type", string(m.Type),
		"delta", m.Delta,
		"balance", m.Balance,
	)
	return m, nil
}

// Movements returns a product's ledger, newest first.
func (s *Service) Movements(ctx context.Context, sku string) ([]models.Movement, error) {
	history, err := s.products.Movements(ctx, sku)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load movements")
	}
	return history, nil
}
