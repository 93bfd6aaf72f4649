package service

import (
	"context"
	"slices"

	"dlvery/internal/delivery/models"
	"dlvery/internal/delivery/store"
	dErrors "dlvery/pkg/domain-errors"
)

// CountByStatus tallies every delivery by status. Statuses with no deliveries are absent.
func (s *Service) CountByStatus(ctx context.Context) (map[models.Status]int, error) {
	ctx, span := tracer.Start(ctx, "delivery.CountByStatus")
	defer span.End()

	all, err := s.deliveries.List(ctx, store.Query{})
	if err != nil {
		recordError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	counts := make(map[models.Status]int)
	for _, d := range all {
		counts[d.Status]++
	}
	return counts, nil
}

// AssignedAgents returns the distinct agent names on any delivery, sorted.
func (s *Service) AssignedAgents(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "delivery.AssignedAgents")
	defer span.End()

	all, err := s.deliveries.List(ctx, store.Query{})
	if err != nil {
		recordError(span, err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list deliveries")
	}
	agents := make([]string, 0)
	for _, d := range all {
		if d.Agent != "" {
			agents = append(agents, d.Agent)
		}
	}
	slices.Sort(agents)
	return slices.Compact(agents), nil
}
