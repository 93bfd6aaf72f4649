package service

import (
	"context"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	authmodels "dlvery/internal/auth/models"
	deliverymodels "dlvery/internal/delivery/models"
	"dlvery/internal/inventory/models"
	"dlvery/internal/inventory/store"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/requestcontext"
)

// Stats builds the inventory dashboard. Stock and delivery figures load concurrently.
// Pending counts every delivery not yet in a final status.
func (s *Service) Stats(ctx context.Context) (*models.Stats, error) {
	ctx, span := tracer.Start(ctx, "inventory.Stats")
	defer span.End()

	var (
		products []models.Product
		counts   map[deliverymodels.Status]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = s.products.List(gctx, store.Query{})
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list products")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, err = s.deliveries.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		recordError(span, err)
		return nil, err
	}

	now := requestcontext.Now(ctx)
	stats := &models.Stats{
		TotalProducts:      len(products),
		ProductsByCategory: make(map[models.Category]int),
	}
	for i := range products {
		p := &products[i]
		if p.Available() {
			stats.AvailableProducts++
		}
		if p.Damaged {
			stats.DamagedProducts++
		}
		if p.Expiring(now) {
			stats.ExpiringProducts++
		}
		stats.ProductsByCategory[p.Category]++
	}
	for status, n := range counts {
		switch {
		case status == deliverymodels.StatusDelivered:
			stats.CompletedDeliveries += n
		case !status.IsTerminal():
			stats.PendingDeliveries += n
		}
	}
	return stats, nil
}

// Agents merges active agent accounts with agent names already on deliveries,
// ordered by username. Names without an account are listed as unavailable.
func (s *Service) Agents(ctx context.Context) ([]authmodels.AgentOption, error) {
	ctx, span := tracer.Start(ctx, "inventory.Agents")
	defer span.End()

	var (
		accounts []authmodels.AgentOption
		assigned []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.agents.ActiveAgents(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		assigned, err = s.deliveries.AssignedAgents(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		recordError(span, err)
		return nil, err
	}

	known := make(map[string]bool, len(accounts))
	out := slices.Clone(accounts)
	for _, a := range accounts {
		known[a.Username] = true
	}
	for _, name := range assigned {
		if !known[name] {
			out = append(out, authmodels.AgentOption{Username: name, DisplayName: name})
			known[name] = true
		}
	}
	slices.SortFunc(out, func(a, b authmodels.AgentOption) int { return strings.Compare(a.Username, b.Username) })
	return out, nil
}
