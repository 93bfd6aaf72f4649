// Package service keeps the product catalogue and its stock ledger, and
// assembles the inventory dashboard from stock and delivery figures.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	authmodels "dlvery/internal/auth/models"
	deliverymodels "dlvery/internal/delivery/models"
	"dlvery/internal/inventory/metrics"
	"dlvery/internal/inventory/models"
	"dlvery/internal/inventory/store"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

var tracer = otel.Tracer("dlvery.inventory")

// maxWriteAttempts bounds retries after a lost compare-and-set or SKU race.
const maxWriteAttempts = 3

const systemActor = "system"

type Store interface {
	Create(ctx context.Context, p *models.Product, opening *models.Movement) error
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	List(ctx context.Context, q store.Query) ([]models.Product, error)
	LastSKU(ctx context.Context, prefix string) (string, error)
	Update(ctx context.Context, p *models.Product, m *models.Movement) error
	Delete(ctx context.Context, sku string) error
	Movements(ctx context.Context, sku string) ([]models.Movement, error)
}

// DeliveryCounter exposes the delivery figures the dashboard and agent list need.
type DeliveryCounter interface {
	CountByStatus(ctx context.Context) (map[deliverymodels.Status]int, error)
	AssignedAgents(ctx context.Context) ([]string, error)
}

// AgentDirectory lists agent accounts that can take assignments.
type AgentDirectory interface {
	ActiveAgents(ctx context.Context) ([]authmodels.AgentOption, error)
}

// Service owns products, stock movements and the inventory dashboard.
type Service struct {
	products   Store
	deliveries DeliveryCounter
	agents     AgentDirectory
	logger     *slog.Logger
	metrics    *metrics.Metrics
	newID      func() string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service. All three collaborators are required.
func New(products Store, deliveries DeliveryCounter, agents AgentDirectory, opts ...Option) (*Service, error) {
	if products == nil {
		return nil, errors.New("product store is required")
	}
	if deliveries == nil {
		return nil, errors.New("delivery counter is required")
	}
	if agents == nil {
		return nil, errors.New("agent directory is required")
	}
	s := &Service{
		products:   products,
		deliveries: deliveries,
		agents:     agents,
		logger:     slog.Default(),
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateCommand describes a new product. Quantity is the opening stock.
type CreateCommand struct {
	Details  models.Details
	Quantity int
}

// Create allocates the next SKU for the category and stores the product with
// an opening IN movement when the quantity is positive.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*models.Product, error) {
	ctx, span := tracer.Start(ctx, "inventory.Create")
	defer span.End()

	category, err := models.ParseCategory(string(cmd.Details.Category))
	if err != nil {
		return nil, err
	}
	if cmd.Quantity < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "quantity cannot be negative")
	}
	now := requestcontext.Now(ctx)

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		last, err := s.products.LastSKU(ctx, category.Prefix())
		if err != nil {
			recordError(span, err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate sku")
		}
		p, err := models.NewProduct(models.NextSKU(category.Prefix(), last), cmd.Details, now)
		if err != nil {
			return nil, asValidation(err)
		}
		var opening *models.Movement
		if cmd.Quantity > 0 {
			opening, err = p.Move(s.newID(), models.MoveCommand{
				Type:        models.MovementIn,
				Quantity:    cmd.Quantity,
				Reason:      "Initial stock",
				Reference:   models.ReferenceInitial,
				PerformedBy: actor(ctx),
			}, now)
			if err != nil {
				return nil, asValidation(err)
			}
		}

		err = s.products.Create(ctx, p, opening)
		if errors.Is(err, sentinel.ErrConflict) {
			s.retried()
			continue
		}
		if err != nil {
			recordError(span, err)
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create product")
		}

		span.SetAttributes(attribute.String("product.sku", p.SKU))
		if s.metrics != nil {
			s.metrics.IncrementCreated(string(p.Category))
			if opening != nil {
				s.metrics.IncrementMovement(string(opening.Type))
			}
		}
		s.logAudit(ctx, "product_created",
			"sku", p.SKU,
			"category", string(p.Category),
			"quantity", p.Quantity,
		)
		return p, nil
	}
	return nil, dErrors.New(dErrors.CodeConflict, "could not allocate a unique sku, retry the request")
}

// Get loads one product by SKU.
func (s *Service) Get(ctx context.Context, sku string) (*models.Product, error) {
	p, err := s.products.FindBySKU(ctx, sku)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load product")
	}
	return p, nil
}

// ListQuery filters the product list.
type ListQuery struct {
	AvailableOnly bool
	Category      models.Category
}

func (s *Service) List(ctx context.Context, q ListQuery) ([]models.Product, error) {
	products, err := s.products.List(ctx, store.Query{AvailableOnly: q.AvailableOnly, Category: q.Category})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
	}
	return products, nil
}

// SKUs lists every SKU in order.
func (s *Service) SKUs(ctx context.Context) ([]string, error) {
	products, err := s.List(ctx, ListQuery{})
	if err != nil {
		return nil, err
	}
	skus := make([]string, len(products))
	for i, p := range products {
		skus[i] = p.SKU
	}
	return skus, nil
}

// UpdateCommand replaces a product's details. A nil Quantity leaves stock alone;
// otherwise the difference is recorded as an adjustment movement.
type UpdateCommand struct {
	Details  models.Details
	Quantity *int
}

func (s *Service) Update(ctx context.Context, sku string, cmd UpdateCommand) (*models.Product, error) {
	ctx, span := tracer.Start(ctx, "inventory.Update")
	defer span.End()
	span.SetAttributes(attribute.String("product.sku", sku))

	now := requestcontext.Now(ctx)
	p, m, err := s.mutate(ctx, sku, func(p *models.Product) (*models.Movement, error) {
		if err := p.SetDetails(cmd.Details, now); err != nil {
			return nil, err
		}
		if cmd.Quantity == nil {
			return nil, nil
		}
		return p.SetQuantity(s.newID(), *cmd.Quantity, actor(ctx), now)
	})
	if err != nil {
		recordError(span, err)
		return nil, err
	}

	attrs := []any{"sku", p.SKU}
	if m != nil {
		attrs = append(attrs, "adjustment", m.Delta, "quantity", p.Quantity)
	}
	s.logAudit(ctx, "product_updated", attrs...)
	return p, nil
}

// Delete removes a product and its movement history.
func (s *Service) Delete(ctx context.Context, sku string) error {
	if err := s.products.Delete(ctx, sku); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "product not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete product")
	}
	s.logAudit(ctx, "product_deleted", "sku", sku)
	return nil
}

// mutate applies fn to a fresh read of the product and stores the result,
// re-reading and re-applying when a concurrent write wins the race.
func (s *Service) mutate(ctx context.Context, sku string, fn func(p *models.Product) (*models.Movement, error)) (*models.Product, *models.Movement, error) {
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		p, err := s.Get(ctx, sku)
		if err != nil {
			return nil, nil, err
		}
		m, err := fn(p)
		if err != nil {
			if dErrors.HasCode(err, dErrors.CodeConflict) && s.metrics != nil {
				s.metrics.IncrementStockRejection()
			}
			return nil, nil, asValidation(err)
		}

		err = s.products.Update(ctx, p, m)
		switch {
		case err == nil:
			if m != nil && s.metrics != nil {
				s.metrics.IncrementMovement(string(m.Type))
			}
			return p, m, nil
		case errors.Is(err, sentinel.ErrInvalidState):
			s.retried()
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "product not found")
		default:
			return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update product")
		}
	}
	return nil, nil, dErrors.New(dErrors.CodeConflict, "product was changed concurrently, retry the request")
}

func (s *Service) retried() {
	if s.metrics != nil {
		s.metrics.IncrementRetry()
	}
}

func asValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, err.Error())
	}
	return err
}

func actor(ctx context.Context) string {
	if name := requestcontext.Username(ctx); name != "" {
		return name
	}
	return systemActor
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	attributes = append(attributes, "actor", actor(ctx))
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
