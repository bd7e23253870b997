// Package store declares the persistence contracts for resources and
// emergency requests.
package store

import (
	"context"

	"github.com/kilianp07/crisistriage/core/model"
)

// ResourceFilter narrows a resource query. Zero values match everything.
type ResourceFilter struct {
	Status   model.ResourceStatus
	Type     model.ResourceType
	Verified *bool
}

// Match reports whether r satisfies the filter.
func (f ResourceFilter) Match(r model.Resource) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.Verified != nil && r.Verified != *f.Verified {
		return false
	}
	return true
}

// Eligible returns the filter selecting resources that may be matched.
func Eligible() ResourceFilter {
	verified := true
	return ResourceFilter{Status: model.ResourceActive, Verified: &verified}
}

// RequestFilter narrows a request listing. Results are ordered by
// ReceivedAt, newest first.
type RequestFilter struct {
	Status model.RequestStatus
	Skip   int
	Limit  int
}

// ResourceStore persists the resource registry.
type ResourceStore interface {
	FindResources(ctx context.Context, f ResourceFilter) ([]model.Resource, error)
	GetResource(ctx context.Context, id string) (model.Resource, error)
	SaveResource(ctx context.Context, r model.Resource) error
	UpdateResource(ctx context.Context, id string, p model.ResourcePatch) (model.Resource, error)
	// UpdateResourceAvailability atomically shifts availability by delta. It
	// fails with errs.ErrCapacityConflict when the result would leave
	// [0, capacity], or when delta reserves units on a resource that is not
	// active and verified, and with errs.ErrNotFound for unknown ids. A
	// resource reaching zero availability becomes deployed.
	UpdateResourceAvailability(ctx context.Context, id string, delta int) (model.Resource, error)
}

// RequestStore persists emergency requests.
type RequestStore interface {
	SaveRequest(ctx context.Context, r model.EmergencyRequest) error
	FindRequest(ctx context.Context, id string) (model.EmergencyRequest, error)
	// UpdateRequest replaces the stored request only if its current status is
	// expected. A mismatch fails with errs.ErrInvalidTransition.
	UpdateRequest(ctx context.Context, r model.EmergencyRequest, expected model.RequestStatus) error
	ListRequests(ctx context.Context, f RequestFilter) ([]model.EmergencyRequest, error)
}

// Store combines both registries.
type Store interface {
	ResourceStore
	RequestStore
	Ping(ctx context.Context) error
	Close() error
}
