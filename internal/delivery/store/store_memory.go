package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"dlvery/internal/delivery/models"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
)

// InMemoryStore keeps deliveries in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu         sync.RWMutex
	deliveries map[id.DeliveryID]models.Delivery
	numbers    map[string]id.DeliveryID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		deliveries: make(map[id.DeliveryID]models.Delivery),
		numbers:    make(map[string]id.DeliveryID),
	}
}

// Create inserts d. A duplicate ID or delivery number returns sentinel.ErrConflict.
func (s *InMemoryStore) Create(_ context.Context, d *models.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deliveries[d.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.numbers[d.Number]; ok {
		return sentinel.ErrConflict
	}
	s.deliveries[d.ID] = *d
	s.numbers[d.Number] = d.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, deliveryID id.DeliveryID) (*models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deliveries[deliveryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &d, nil
}

// List returns matches ordered by scheduled time, then delivery number.
func (s *InMemoryStore) List(_ context.Context, q Query) ([]models.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Delivery, 0)
	for _, d := range s.deliveries {
		if q.matches(&d) {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b models.Delivery) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Number, b.Number)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// UpdateStatus writes d only if the stored status still equals expected.
// A lost race returns sentinel.ErrInvalidState.
func (s *InMemoryStore) UpdateStatus(_ context.Context, d *models.Delivery, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.deliveries[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != expected {
		return sentinel.ErrInvalidState
	}
	s.deliveries[d.ID] = *d
	return nil
}
