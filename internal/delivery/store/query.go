// Package store persists deliveries. Both implementations treat status updates
// as compare-and-set on the status the caller last read.
package store

import (
	"slices"
	"time"

	"dlvery/internal/delivery/models"
)

// Query selects deliveries. Zero fields do not constrain the result.
// Scheduled bounds are half-open: [ScheduledFrom, ScheduledTo).
type Query struct {
	Agent         string
	Statuses      []models.Status
	ScheduledFrom time.Time
	ScheduledTo   time.Time
	Limit         int
}

func (q Query) matches(d *models.Delivery) bool {
	if q.Agent != "" && d.Agent != q.Agent {
		return false
	}
	if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, d.Status) {
		return false
	}
	if !q.ScheduledFrom.IsZero() && d.ScheduledAt.Before(q.ScheduledFrom) {
		return false
	}
	if !q.ScheduledTo.IsZero() && !d.ScheduledAt.Before(q.ScheduledTo) {
		return false
	}
	return true
}
