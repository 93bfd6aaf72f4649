// Package service orchestrates the delivery lifecycle: creation, the agent
// dashboard, status transitions with signature capture, and tracking.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"dlvery/internal/delivery/events"
	"dlvery/internal/delivery/metrics"
	"dlvery/internal/delivery/models"
	"dlvery/internal/delivery/store"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

var tracer = otel.Tracer("dlvery.delivery")

type Store interface {
	Create(ctx context.Context, d *models.Delivery) error
	FindByID(ctx context.Context, deliveryID id.DeliveryID) (*models.Delivery, error)
	List(ctx context.Context, q store.Query) ([]models.Delivery, error)
	UpdateStatus(ctx context.Context, d *models.Delivery, expected models.Status) error
}

type SignatureStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Delete(ctx context.Context, ref string) error
}

type EventPublisher interface {
	PublishStatusChanged(ctx context.Context, evt events.StatusChanged) error
}

// Service coordinates delivery stores, signature blobs and lifecycle events.
type Service struct {
	deliveries Store
	signatures SignatureStore
	publisher  EventPublisher
	logger     *slog.Logger
	metrics    *metrics.Metrics
	newID      func() id.DeliveryID
	newAttempt func() string
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

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithIDGenerator overrides delivery ID generation. Tests use it for stable numbers.
func WithIDGenerator(gen func() id.DeliveryID) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New constructs a Service. Both stores are required.
func New(deliveries Store, signatures SignatureStore, opts ...Option) (*Service, error) {
	if deliveries == nil {
		return nil, errors.New("delivery store is required")
	}
	if signatures == nil {
		return nil, errors.New("signature store is required")
	}
	s := &Service{
		deliveries: deliveries,
		signatures: signatures,
		logger:     slog.Default(),
		newID:      id.NewDeliveryID,
		newAttempt: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateCommand describes a new delivery.
type CreateCommand struct {
	CustomerName    string
	CustomerAddress string
	CustomerPhone   string
	Notes           string
	Priority        models.Priority
	ScheduledAt     time.Time
	Agent           string
}

// Create registers a delivery, assigned when an agent is given.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*models.Delivery, error) {
	ctx, span := tracer.Start(ctx, "delivery.Create")
	defer span.End()

	now := requestcontext.Now(ctx)
	d, err := models.NewDelivery(s.newID(), cmd.CustomerName, cmd.CustomerAddress, cmd.Priority, cmd.ScheduledAt, cmd.Agent, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	d.CustomerPhone = cmd.CustomerPhone
	d.Notes = cmd.Notes

	if err := s.deliveries.Create(ctx, d); err != nil {
		recordError(span, err)
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "delivery already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create delivery")
	}

	span.SetAttributes(attribute.String("delivery.id", d.ID.String()))
	s.logAudit(ctx, "delivery_created",
		"delivery_id", d.ID,
		"delivery_number", d.Number,
		"agent", d.Agent,
	)
	return d, nil
}

// Get loads one delivery the caller may see.
func (s *Service) Get(ctx context.Context, deliveryID id.DeliveryID) (*models.Delivery, error) {
	d, err := s.load(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) load(ctx context.Context, deliveryID id.DeliveryID) (*models.Delivery, error) {
	d, err := s.deliveries.FindByID(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load delivery")
	}
	return d, nil
}

// authorize lets inventory staff see everything and agents only their own
// or unassigned deliveries. Calls without an identity (CLI, workers) pass.
func authorize(ctx context.Context, d *models.Delivery) error {
	ident, ok := requestcontext.IdentityFrom(ctx)
	if !ok || ident.Role != id.RoleDeliveryAgent {
		return nil
	}
	if d.Agent != "" && d.Agent != ident.Username {
		return dErrors.New(dErrors.CodeForbidden, "delivery is assigned to another agent")
	}
	return nil
}

// scopeAgent narrows list queries for agents to their own deliveries.
func scopeAgent(ctx context.Context, requested string) string {
	if ident, ok := requestcontext.IdentityFrom(ctx); ok && ident.Role == id.RoleDeliveryAgent {
		return ident.Username
	}
	return requested
}

// Signature returns the stored PNG for a delivered delivery.
func (s *Service) Signature(ctx context.Context, deliveryID id.DeliveryID) ([]byte, error) {
	d, err := s.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d.SignatureRef == "" {
		return nil, dErrors.New(dErrors.CodeNotFound, "delivery has no signature")
	}
	png, err := s.signatures.Get(ctx, d.SignatureRef)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "signature not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load signature")
	}
	return png, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	if actor := requestcontext.Username(ctx); actor != "" {
		attributes = append(attributes, "actor", actor)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
