// Package store persists signature PNGs as blobs addressed by a reference key.
package store

import (
	"context"
	"sync"

	"dlvery/pkg/platform/sentinel"
)

const contentType = "image/png"

// KeyFor is the blob key of one signature upload for a delivery. Each attempt
// gets its own key so a request that loses the status race never overwrites
// the signature of the one that won.
func KeyFor(deliveryID, attempt string) string {
	return "signatures/" + deliveryID + "/" + attempt + ".png"
}

// InMemoryStore keeps blobs in a map. Used in development and tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under key and returns key as the reference.
func (s *InMemoryStore) Put(_ context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), data...)
	return key, nil
}

// Delete removes the blob. Deleting a missing ref is not an error.
func (s *InMemoryStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, ref)
	return nil
}

// Get returns a copy of the blob or sentinel.ErrNotFound.
func (s *InMemoryStore) Get(_ context.Context, ref string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}
