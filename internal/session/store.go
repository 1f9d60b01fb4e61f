package session

import (
	"context"
	"sync"

	"github.com/Chicken/VenaaRauhassa/internal/models"
)

// Store persists the single upstream session record.
// Set replaces the previous record; Get returns nil when nothing is stored.
// There is no concurrency control beyond last writer wins.
type Store interface {
	Get(ctx context.Context) (*models.Session, error)
	Set(ctx context.Context, s models.Session) error
}

// MemoryStore keeps the session in process memory. It does not survive
// restarts and is meant for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	session *models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, nil
	}
	s := *m.session
	return &s, nil
}

func (m *MemoryStore) Set(_ context.Context, s models.Session) error {
	m.mu.Lock()
	m.session = &s
	m.mu.Unlock()
	return nil
}
