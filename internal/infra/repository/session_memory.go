package repository

import (
	"context"
	"sync"

	repo "storefront/internal/repository"
)

// SessionStoreのメモリ実装。テストとローカル開発用。
type SessionMemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewSessionMemoryStore() *SessionMemoryStore {
	return &SessionMemoryStore{data: map[string]string{}}
}

func (s *SessionMemoryStore) Load(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", repo.ErrNotFound
	}
	return v, nil
}

func (s *SessionMemoryStore) Save(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = value
	return nil
}

func (s *SessionMemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}
