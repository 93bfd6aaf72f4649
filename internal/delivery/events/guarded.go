package events

import (
	"context"
	"errors"
	"log/slog"

	"dlvery/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while the primary publisher is being skipped.
var ErrCircuitOpen = errors.New("events: publisher circuit open")

type publisher interface {
	PublishStatusChanged(ctx context.Context, evt StatusChanged) error
}

// GuardedPublisher stops calling a failing broker until it recovers. Events
// the broker did not take go to the fallback publisher instead. A diverted
// event counts as published; only losing it in both places is an error.
type GuardedPublisher struct {
	primary  publisher
	fallback publisher
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func NewGuardedPublisher(primary, fallback publisher, breaker *circuit.Breaker, logger *slog.Logger) *GuardedPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuardedPublisher{primary: primary, fallback: fallback, breaker: breaker, logger: logger}
}

func (g *GuardedPublisher) PublishStatusChanged(ctx context.Context, evt StatusChanged) error {
	if !g.breaker.Allow() {
		return g.divert(ctx, evt, ErrCircuitOpen)
	}

	err := g.primary.PublishStatusChanged(ctx, evt)
	if err == nil {
		if _, change := g.breaker.RecordSuccess(); change.Closed {
			g.logger.InfoContext(ctx, "event publisher recovered", "breaker", g.breaker.Name())
		}
		return nil
	}

	_, change := g.breaker.RecordFailure()
	if change.Opened {
		g.logger.WarnContext(ctx, "event publisher circuit opened",
			"breaker", g.breaker.Name(),
			"error", err,
		)
	}
	return g.divert(ctx, evt, err)
}

func (g *GuardedPublisher) divert(ctx context.Context, evt StatusChanged, cause error) error {
	if g.fallback == nil {
		return cause
	}
	if err := g.fallback.PublishStatusChanged(ctx, evt); err != nil {
		return errors.Join(cause, err)
	}
	g.logger.DebugContext(ctx, "event diverted to fallback publisher",
		"breaker", g.breaker.Name(),
		"delivery_id", evt.DeliveryID,
		"reason", cause,
	)
	return nil
}
