package service

import (
	"context"

	"dlvery/internal/delivery/categorize"
	"dlvery/internal/delivery/models"
	"dlvery/internal/delivery/store"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
)

// TrackQuery filters the tracking list.
type TrackQuery struct {
	Agent    string
	Criteria categorize.Criteria
}

// Track lists deliveries visible to the caller that match the criteria.
func (s *Service) Track(ctx context.Context, q TrackQuery) ([]models.Delivery, error) {
	ctx, span := tracer.Start(ctx, "delivery.Track")
	defer span.End()

	all, err := s.deliveries.List(ctx, store.Query{Agent: scopeAgent(ctx, q.Agent)})
	if err != nil {
		recordError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	return categorize.Filter(all, q.Criteria), nil
}

// TransitionOptions describes what a client may do next with a delivery.
type TransitionOptions struct {
	Current models.Status        `json:"current"`
	Display models.StatusDisplay `json:"display"`
	Next    []TransitionOption   `json:"next"`
	Final   bool                 `json:"final"`
}

type TransitionOption struct {
	Status  models.Status        `json:"status"`
	Display models.StatusDisplay `json:"display"`
}

// Transitions reports the allowed next statuses for a delivery.
func (s *Service) Transitions(ctx context.Context, deliveryID id.DeliveryID) (*TransitionOptions, error) {
	d, err := s.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	next := models.AllowedNext(d.Status)
	opts := &TransitionOptions{
		Current: d.Status,
		Display: d.Status.Display(),
		Next:    make([]TransitionOption, 0, len(next)),
		Final:   d.IsTerminal(),
	}
	for _, st := range next {
		opts.Next = append(opts.Next, TransitionOption{Status: st, Display: st.Display()})
	}
	return opts, nil
}
