package margin

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Setting
}

// NewMemoryRepository constructs an in-memory repository for dev mode and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Setting)}
}

func (r *memoryRepository) Get(_ context.Context, key string) (Setting, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	setting, ok := r.storage[key]
	return setting, ok, nil
}

func (r *memoryRepository) GetAll(_ context.Context) ([]Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	settings := make([]Setting, 0, len(r.storage))
	for _, setting := range r.storage {
		settings = append(settings, setting)
	}
	return settings, nil
}

func (r *memoryRepository) UpsertAll(_ context.Context, settings []Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, setting := range settings {
		r.storage[setting.Key] = setting
	}
	return nil
}
