package episode

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process [Store].
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	episodes []Episode
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, now: time.Now}
}

// Record implements [Store].
func (s *MemoryStore) Record(_ context.Context, ep *Episode) error {
	if err := ep.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ep.ID = s.nextID
	s.nextID++
	ep.CreatedAt = s.now()

	stored := *ep
	stored.Warnings = slices.Clone(ep.Warnings)
	s.episodes = append(s.episodes, stored)
	return nil
}

// List implements [Store].
func (s *MemoryStore) List(_ context.Context, project string, limit int) ([]Episode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Episode
	for i := len(s.episodes) - 1; i >= 0; i-- {
		ep := s.episodes[i]
		if project != "" && ep.Project != project {
			continue
		}
		ep.Warnings = slices.Clone(ep.Warnings)
		out = append(out, ep)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
