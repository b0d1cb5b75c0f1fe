// Package sessionstore keeps a user's skill attributes across voice sessions.
package sessionstore

import (
	"context"
	"sync"

	"particle-skill/internal/application"
	"particle-skill/internal/domain"
)

// Memory is a process-local store. Contents are lost on restart.
type Memory struct {
	mu    sync.RWMutex
	attrs map[string]domain.Attributes
}

func NewMemory() *Memory {
	return &Memory{attrs: make(map[string]domain.Attributes)}
}

func (m *Memory) Load(_ context.Context, userID string) (domain.Attributes, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	attrs, ok := m.attrs[userID]
	if !ok {
		return domain.Attributes{}, application.ErrNotFound
	}
	return attrs, nil
}

func (m *Memory) Save(_ context.Context, userID string, attrs domain.Attributes) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attrs[userID] = attrs
	return nil
}
