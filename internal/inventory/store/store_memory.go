package store

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"

	"dlvery/internal/inventory/models"
	"dlvery/pkg/platform/sentinel"
)

// InMemoryStore keeps products and movements in maps guarded by a RWMutex.
type InMemoryStore struct {
	mu        sync.RWMutex
	products  map[string]models.Product
	movements map[string][]models.Movement
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		products:  make(map[string]models.Product),
		movements: make(map[string][]models.Movement),
	}
}

// Create inserts p with its opening movement, if any. A duplicate SKU returns sentinel.ErrConflict.
func (s *InMemoryStore) Create(_ context.Context, p *models.Product, opening *models.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.SKU]; ok {
		return sentinel.ErrConflict
	}
	s.products[p.SKU] = *p
	if opening != nil {
		s.movements[p.SKU] = append(s.movements[p.SKU], *opening)
	}
	return nil
}

func (s *InMemoryStore) FindBySKU(_ context.Context, sku string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[sku]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// List returns matching products ordered by SKU.
func (s *InMemoryStore) List(_ context.Context, q Query) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		if q.matches(&p) {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Product) int { return cmp.Compare(a.SKU, b.SKU) })
	return out, nil
}

// LastSKU returns the highest numbered SKU under prefix, or "" when there is none.
func (s *InMemoryStore) LastSKU(_ context.Context, prefix string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	last, best := "", 0
	for sku := range s.products {
		rest, ok := strings.CutPrefix(sku, prefix+"-")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n > best {
			last, best = sku, n
		}
	}
	return last, nil
}

// Update writes p if the stored version still equals p.Version, then bumps it.
// A lost race returns sentinel.ErrInvalidState.
func (s *InMemoryStore) Update(_ context.Context, p *models.Product, m *models.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.products[p.SKU]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != p.Version {
		return sentinel.ErrInvalidState
	}
	p.Version++
	s.products[p.SKU] = *p
	if m != nil {
		s.movements[p.SKU] = append(s.movements[p.SKU], *m)
	}
	return nil
}

// Delete removes the product and its movement history.
func (s *InMemoryStore) Delete(_ context.Context, sku string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[sku]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.products, sku)
	delete(s.movements, sku)
	return nil
}

// Movements returns the ledger for sku, newest first.
func (s *InMemoryStore) Movements(_ context.Context, sku string) ([]models.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.products[sku]; !ok {
		return nil, sentinel.ErrNotFound
	}
	history := s.movements[sku]
	out := make([]models.Movement, len(history))
	for i, m := range history {
		out[len(history)-1-i] = m
	}
	return out, nil
}
