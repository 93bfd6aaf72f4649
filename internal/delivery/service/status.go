package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"dlvery/internal/delivery/events"
	"dlvery/internal/delivery/models"
	"dlvery/internal/signature"
	sigstore "dlvery/internal/signature/store"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

const (
	outcomeAccepted = "accepted"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
)

// StatusCommand is a requested status change. A DELIVERED change carries the
// signature either as an encoded PNG or as recorded strokes.
type StatusCommand struct {
	To           string
	CustomerName string
	Reason       string
	Notes        string
	Signature    string
	Strokes      [][]signature.Point
	CanvasWidth  int
	CanvasHeight int
}

// hasSignature is true for an encoded image or at least one drawable stroke.
// Whether the strokes actually leave ink is checked when they are rendered.
func (c StatusCommand) hasSignature() bool {
	return strings.TrimSpace(c.Signature) != "" || signature.HasStrokes(c.Strokes)
}

// UpdateStatus validates the change locally, stores the signature when
// delivering, then applies the change conditionally on the status it read.
// A concurrent change wins: the caller gets CodeConflict and must reload, and
// the signature it uploaded is removed again.
func (s *Service) UpdateStatus(ctx context.Context, deliveryID id.DeliveryID, cmd StatusCommand) (*models.Delivery, error) {
	ctx, span := tracer.Start(ctx, "delivery.UpdateStatus")
	defer span.End()
	span.SetAttributes(attribute.String("delivery.id", deliveryID.String()))

	to, err := models.ParseStatus(cmd.To)
	if err != nil {
		return nil, err
	}
	d, err := s.Get(ctx, deliveryID)
	if err != nil {
		recordError(span, err)
		return nil, err
	}
	prev := d.Status
	span.SetAttributes(attribute.String("delivery.from", string(prev)), attribute.String("delivery.to", string(to)))

	req := models.TransitionRequest{
		To:           to,
		CustomerName: cmd.CustomerName,
		Reason:       cmd.Reason,
		Notes:        cmd.Notes,
	}
	key := sigstore.KeyFor(d.ID.String(), s.newAttempt())
	if to == models.StatusDelivered && cmd.hasSignature() {
		req.SignatureRef = key
	}

	if err := d.CanTransition(req); err != nil {
		s.countTransition(prev, to, outcomeRejected)
		return nil, err
	}

	if to == models.StatusDelivered {
		ref, err := s.storeSignature(ctx, key, cmd)
		if err != nil {
			s.countTransition(prev, to, outcomeRejected)
			recordError(span, err)
			return nil, err
		}
		req.SignatureRef = ref
	}

	now := requestcontext.Now(ctx)
	next := *d
	next.ApplyTransition(req, now)

	if err := s.deliveries.UpdateStatus(ctx, &next, prev); err != nil {
		recordError(span, err)
		s.discardSignature(ctx, next.ID, req.SignatureRef)
		switch {
		case errors.Is(err, sentinel.ErrInvalidState):
			s.countTransition(prev, to, outcomeConflict)
			return nil, dErrors.New(dErrors.CodeConflict, "delivery status changed since it was loaded; reload and retry")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "delivery not found")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update delivery status")
		}
	}
	s.countTransition(prev, to, outcomeAccepted)

	s.logAudit(ctx, events.TypeStatusChanged,
		"delivery_id", next.ID,
		"from", prev,
		"to", next.Status,
	)
	s.publish(ctx, events.NewStatusChanged(&next, prev, requestcontext.Username(ctx), requestcontext.RequestID(ctx), now))
	return &next, nil
}

// storeSignature decodes or renders the signature and uploads it.
func (s *Service) storeSignature(ctx context.Context, key string, cmd StatusCommand) (string, error) {
	var (
		png    []byte
		source string
	)
	if strings.TrimSpace(cmd.Signature) != "" {
		decoded, err := signature.DecodeUpload(cmd.Signature)
		if err != nil {
			return "", err
		}
		png, source = decoded, "image"
	} else {
		rendered, err := signature.Replay(cmd.CanvasWidth, cmd.CanvasHeight, cmd.Strokes)
		if err != nil {
			return "", err
		}
		png, source = rendered, "strokes"
	}

	ref, err := s.signatures.Put(ctx, key, png)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store signature")
	}
	if s.metrics != nil {
		s.metrics.IncrementSignatureUpload(source)
	}
	return ref, nil
}

// discardSignature removes a blob uploaded by an attempt whose status update
// did not commit. Failure only leaves an orphan object behind.
func (s *Service) discardSignature(ctx context.Context, deliveryID id.DeliveryID, ref string) {
	if ref == "" {
		return
	}
	if err := s.signatures.Delete(context.WithoutCancel(ctx), ref); err != nil {
		s.logger.WarnContext(ctx, "failed to remove orphaned signature",
			"delivery_id", deliveryID,
			"signature_ref", ref,
			"error", err,
		)
	}
}

// publish is best-effort: the status change is already committed, so a broker
// failure is logged rather than reported to the caller.
func (s *Service) publish(ctx context.Context, evt events.StatusChanged) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishStatusChanged(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish delivery event",
			"event", evt.Type,
			"delivery_id", evt.DeliveryID,
			"error", err,
		)
	}
}

func (s *Service) countTransition(from, to models.Status, outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(from), string(to), outcome)
	}
}
