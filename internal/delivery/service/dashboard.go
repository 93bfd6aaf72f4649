package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"dlvery/internal/delivery/categorize"
	"dlvery/internal/delivery/models"
	"dlvery/internal/delivery/store"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/requestcontext"
)

const (
	dashboardTimeout   = 5 * time.Second
	recentlyDeliveredN = 20
)

// Dashboard is an agent's working view.
type Dashboard struct {
	Today     []models.Delivery `json:"today"`
	Pending   []models.Delivery `json:"pending"`
	Delivered []models.Delivery `json:"delivered"`
	Stats     DashboardStats    `json:"stats"`
}

type DashboardStats struct {
	Today     int `json:"today"`
	Pending   int `json:"pending"`
	Delivered int `json:"delivered"`
	Overdue   int `json:"overdue"`
	Defaulted int `json:"defaulted"`
}

// Dashboard loads today's, open and delivered lists in parallel, merges the
// first two without duplicates, partitions them and sorts each bucket by priority.
func (s *Service) Dashboard(ctx context.Context, agent string) (*Dashboard, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "delivery.Dashboard")
	defer span.End()

	agent = scopeAgent(ctx, agent)
	now := requestcontext.Now(ctx)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var today, open, delivered []models.Delivery
	if err := s.gather(ctx, func(ctx context.Context, g *errgroup.Group) {
		g.Go(func() (err error) {
			today, err = s.deliveries.List(ctx, store.Query{
				Agent:         agent,
				ScheduledFrom: dayStart,
				ScheduledTo:   dayStart.AddDate(0, 0, 1),
			})
			return err
		})
		g.Go(func() (err error) {
			open, err = s.deliveries.List(ctx, store.Query{
				Agent:    agent,
				Statuses: []models.Status{models.StatusPending, models.StatusAssigned},
			})
			return err
		})
		g.Go(func() (err error) {
			delivered, err = s.deliveries.List(ctx, store.Query{
				Agent:    agent,
				Statuses: []models.Status{models.StatusDelivered},
				Limit:    recentlyDeliveredN,
			})
			return err
		})
	}); err != nil {
		recordError(span, err)
		return nil, err
	}

	res := categorize.Categorize(categorize.Dedupe(today, open), now)
	categorize.SortByPriority(res.Today)
	categorize.SortByPriority(res.Pending)

	overdue := 0
	for _, d := range res.Pending {
		if categorize.IsOverdue(d, now) {
			overdue++
		}
	}
	if res.Defaulted > 0 {
		s.logger.WarnContext(ctx, "deliveries without scheduled time placed in today",
			"count", res.Defaulted,
			"agent", agent,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	dash := &Dashboard{
		Today:     res.Today,
		Pending:   res.Pending,
		Delivered: delivered,
		Stats: DashboardStats{
			Today:     len(res.Today),
			Pending:   len(res.Pending),
			Delivered: len(delivered),
			Overdue:   overdue,
			Defaulted: res.Defaulted,
		},
	}
	span.SetAttributes(
		attribute.Int("dashboard.today", dash.Stats.Today),
		attribute.Int("dashboard.pending", dash.Stats.Pending),
	)
	if s.metrics != nil {
		s.metrics.ObserveDashboard(start, dash.Stats.Today, dash.Stats.Pending, dash.Stats.Defaulted)
	}
	return dash, nil
}

// gather runs the launched queries with shared cancellation and a deadline.
func (s *Service) gather(ctx context.Context, launch func(context.Context, *errgroup.Group)) error {
	ctx, cancel := context.WithTimeout(ctx, dashboardTimeout)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	launch(gctx, g)
	if err := g.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "dashboard queries timed out")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard")
	}
	return nil
}
