// Package categorize partitions an agent's deliveries into the dashboard's
// "today" and "pending" buckets and provides the list filters around it.
//
// All functions are pure and safe for concurrent use.
package categorize

import (
	"cmp"
	"slices"
	"time"

	"dlvery/internal/delivery/models"
	textutil "dlvery/pkg/platform/strings"
)

const staleAfter = 24 * time.Hour

// Reason explains why a record sits in the pending bucket.
type Reason string

const (
	ReasonNone   Reason = "none"
	ReasonFuture Reason = "future"
	ReasonStale  Reason = "stale"
)

// Result is the dashboard partition. Defaulted counts records whose scheduled
// time was missing and were placed in Today.
type Result struct {
	Today     []models.Delivery `json:"today"`
	Pending   []models.Delivery `json:"pending"`
	Defaulted int               `json:"defaulted"`
}

// Categorize splits records in one stable pass. Every record lands in exactly
// one bucket, in input order.
func Categorize(records []models.Delivery, now time.Time) Result {
	res := Result{
		Today:   make([]models.Delivery, 0, len(records)),
		Pending: make([]models.Delivery, 0),
	}
	for _, r := range records {
		if r.ScheduledAt.IsZero() {
			res.Defaulted++
			res.Today = append(res.Today, r)
			continue
		}
		if PendingReason(r, now) != ReasonNone {
			res.Pending = append(res.Pending, r)
			continue
		}
		res.Today = append(res.Today, r)
	}
	return res
}

// PendingReason reports whether r belongs in the pending bucket and why.
// A record scheduled after today is future regardless of status; one scheduled
// at least 24 hours ago that was never dispatched is stale.
func PendingReason(r models.Delivery, now time.Time) Reason {
	if r.ScheduledAt.IsZero() {
		return ReasonNone
	}
	scheduledDay := midnight(r.ScheduledAt.In(now.Location()))
	if scheduledDay.After(midnight(now)) {
		return ReasonFuture
	}
	if now.Sub(r.ScheduledAt) >= staleAfter && r.Status.IsOpen() {
		return ReasonStale
	}
	return ReasonNone
}

// IsOverdue reports whether r was due today or earlier and is still undispatched.
func IsOverdue(r models.Delivery, now time.Time) bool {
	return PendingReason(r, now) == ReasonStale
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Dedupe merges lists keeping the first occurrence of each ID. Records without
// an ID are dropped.
func Dedupe(lists ...[]models.Delivery) []models.Delivery {
	total := 0
	for _, l := range lists {
		total += len(l)
	}

	seen := make(map[string]struct{}, total)
	out := make([]models.Delivery, 0, total)
	for _, l := range lists {
		for _, r := range l {
			if r.ID.IsNil() {
				continue
			}
			key := r.ID.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// Criteria narrows a delivery list. Zero values match everything.
type Criteria struct {
	Search   string
	Status   models.Status
	Priority models.Priority
}

// Filter returns the records matching c, preserving order. Search terms must
// each appear in the delivery number, customer name or address.
func Filter(records []models.Delivery, c Criteria) []models.Delivery {
	terms := textutil.SearchTerms(c.Search)
	out := make([]models.Delivery, 0, len(records))
	for _, r := range records {
		if c.Status != "" && r.Status != c.Status {
			continue
		}
		if c.Priority != "" && r.Priority != c.Priority {
			continue
		}
		if !textutil.ContainsAll(terms, r.Number, r.CustomerName, r.CustomerAddress) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// SortByPriority orders records most urgent first, stable within a level.
func SortByPriority(records []models.Delivery) {
	slices.SortStableFunc(records, func(a, b models.Delivery) int {
		return cmp.Compare(a.Priority.Level(), b.Priority.Level())
	})
}
