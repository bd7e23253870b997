package triage

import (
	"context"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/events"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/store"
)

// RegisterResource validates and stores a new resource.
func (s *Service) RegisterResource(ctx context.Context, r model.Resource) (model.Resource, error) {
	r.Normalize()
	if err := r.Validate(); err != nil {
		return model.Resource{}, err
	}
	now := s.clock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	if err := s.store.SaveResource(ctx, r); err != nil {
		return model.Resource{}, err
	}
	s.logger.Infof("resource %s registered (%s, %d/%d)", r.ID, r.Type, r.Availability, r.Capacity)
	return r, nil
}

// UpdateResource applies a fleet-management patch to a resource.
func (s *Service) UpdateResource(ctx context.Context, id string, p model.ResourcePatch) (model.Resource, error) {
	if id == "" {
		return model.Resource{}, errs.Validationf("resource id is required")
	}
	r, err := s.store.UpdateResource(ctx, id, p)
	if err != nil {
		return model.Resource{}, err
	}
	s.publish(events.ResourceStatusEvent{ResourceID: r.ID, Availability: r.Availability, Status: r.Status, At: r.UpdatedAt})
	return r, nil
}

// Resources lists registered resources.
func (s *Service) Resources(ctx context.Context, f store.ResourceFilter) ([]model.Resource, error) {
	return s.store.FindResources(ctx, f)
}
