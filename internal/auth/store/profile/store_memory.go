// Package profile persists delivery agent profiles, one per account.
package profile

import (
	"context"
	"sync"

	"dlvery/internal/auth/models"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in process memory.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]models.AgentProfile
}

func New() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.UserID]models.AgentProfile)}
}

func (s *InMemoryStore) FindByUserID(_ context.Context, userID id.UserID) (*models.AgentProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// Save inserts or replaces the profile for p.UserID.
func (s *InMemoryStore) Save(_ context.Context, p *models.AgentProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = *p
	return nil
}
