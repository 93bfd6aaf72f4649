package user

import (
	"context"
	"sort"
	"sync"

	"dlvery/internal/auth/models"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
)

// InMemoryUserStore keeps accounts in process memory, indexed by username and email.
type InMemoryUserStore struct {
	mu         sync.RWMutex
	users      map[id.UserID]*models.User
	byUsername map[string]id.UserID
	byEmail    map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:      make(map[id.UserID]*models.User),
		byUsername: make(map[string]id.UserID),
		byEmail:    make(map[string]id.UserID),
	}
}

// Create inserts a new account. Username and email are unique.
func (s *InMemoryUserStore) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; ok {
		return sentinel.ErrConflict
	}
	if _, ok := s.byUsername[u.Username]; ok {
		return sentinel.ErrConflict
	}
	email := models.NormalizeEmail(u.Email)
	if _, ok := s.byEmail[email]; ok {
		return sentinel.ErrConflict
	}
	stored := *u
	s.users[u.ID] = &stored
	s.byUsername[u.Username] = u.ID
	s.byEmail[email] = u.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyOf(userID)
}

func (s *InMemoryUserStore) FindByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byUsername[username]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.copyOf(userID)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[models.NormalizeEmail(email)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.copyOf(userID)
}

// UpdateLastLogin records a successful sign-in.
func (s *InMemoryUserStore) UpdateLastLogin(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		stored.LastLoginAt = &at
	}
	return nil
}

// Update replaces the contact details and password hash. Email stays unique.
func (s *InMemoryUserStore) Update(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[u.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	email := models.NormalizeEmail(u.Email)
	if owner, ok := s.byEmail[email]; ok && owner != u.ID {
		return sentinel.ErrConflict
	}
	delete(s.byEmail, stored.Email)
	s.byEmail[email] = u.ID
	stored.Email = email
	stored.FullName = u.FullName
	stored.PasswordHash = u.PasswordHash
	return nil
}

// ListByRole returns the accounts holding role, ordered by username.
func (s *InMemoryUserStore) ListByRole(_ context.Context, role id.Role) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.User
	for userID, u := range s.users {
		if u.Role != role {
			continue
		}
		c, _ := s.copyOf(userID)
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *InMemoryUserStore) copyOf(userID id.UserID) (*models.User, error) {
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *u
	if u.LastLoginAt != nil {
		at := *u.LastLoginAt
		out.LastLoginAt = &at
	}
	return &out, nil
}
