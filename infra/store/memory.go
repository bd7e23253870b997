// Package store provides the resource and request registries: an in-memory
// implementation for tests and single-node runs, and a PostgreSQL one.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/model"
	corestore "github.com/kilianp07/crisistriage/core/store"
)

var _ corestore.Store = (*MemoryStore)(nil)

// MemoryStore keeps resources and requests in maps guarded by one lock, so
// every conditional update is atomic.
type MemoryStore struct {
	mu        sync.RWMutex
	resources map[string]model.Resource
	requests  map[string]model.EmergencyRequest
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		resources: map[string]model.Resource{},
		requests:  map[string]model.EmergencyRequest{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) FindResources(_ context.Context, f corestore.ResourceFilter) ([]model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Resource, 0, len(s.resources))
	for _, r := range s.resources {
		if f.Match(r) {
			res = append(res, r)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) GetResource(_ context.Context, id string) (model.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resources[id]
	if !ok {
		return model.Resource{}, errs.NotFoundf("resource %s", id)
	}
	return r, nil
}

func (s *MemoryStore) SaveResource(_ context.Context, r model.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.resources[r.ID] = r
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) UpdateResource(_ context.Context, id string, p model.ResourcePatch) (model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return model.Resource{}, errs.NotFoundf("resource %s", id)
	}
	next, err := p.Apply(r, s.now())
	if err != nil {
		return model.Resource{}, err
	}
	s.resources[id] = next
	return next, nil
}

func (s *MemoryStore) UpdateResourceAvailability(_ context.Context, id string, delta int) (model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[id]
	if !ok {
		return model.Resource{}, errs.NotFoundf("resource %s", id)
	}
	next, err := r.WithAvailability(delta, s.now())
	if err != nil {
		return model.Resource{}, err
	}
	s.resources[id] = next
	return next, nil
}

func (s *MemoryStore) SaveRequest(_ context.Context, r model.EmergencyRequest) error {
	if r.ID == "" {
		return errs.Validationf("request id is required")
	}
	s.mu.Lock()
	s.requests[r.ID] = r.Clone()
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) FindRequest(_ context.Context, id string) (model.EmergencyRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return model.EmergencyRequest{}, errs.NotFoundf("request %s", id)
	}
	return r.Clone(), nil
}

func (s *MemoryStore) UpdateRequest(_ context.Context, r model.EmergencyRequest, expected model.RequestStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.requests[r.ID]
	if !ok {
		return errs.NotFoundf("request %s", r.ID)
	}
	if cur.Status != expected {
		return fmt.Errorf("%w: request %s is %s, expected %s", errs.ErrInvalidTransition, r.ID, cur.Status, expected)
	}
	s.requests[r.ID] = r.Clone()
	return nil
}

func (s *MemoryStore) ListRequests(_ context.Context, f corestore.RequestFilter) ([]model.EmergencyRequest, error) {
	s.mu.RLock()
	res := make([]model.EmergencyRequest, 0, len(s.requests))
	for _, r := range s.requests {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		res = append(res, r.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		if !res[i].ReceivedAt.Equal(res[j].ReceivedAt) {
			return res[i].ReceivedAt.After(res[j].ReceivedAt)
		}
		return res[i].ID < res[j].ID
	})
	return page(res, f.Skip, f.Limit), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func page[T any](items []T, skip, limit int) []T {
	if skip > 0 {
		if skip >= len(items) {
			return items[:0]
		}
		items = items[skip:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}
