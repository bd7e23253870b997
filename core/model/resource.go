package model

import (
	"fmt"
	"time"

	"github.com/kilianp07/crisistriage/core/errs"
)

// DefaultResponseTimeMinutes is used when a resource does not declare its
// base response time.
const DefaultResponseTimeMinutes = 30

// ResourceLocation is the fixed base position of a resource.
type ResourceLocation struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Region    string  `json:"region,omitempty"`
}

// Resource is a response unit that can be dispatched to a request.
type Resource struct {
	ID                  string            `json:"resource_id"`
	Type                ResourceType      `json:"resource_type"`
	Name                string            `json:"name"`
	Description         string            `json:"description,omitempty"`
	Location            ResourceLocation  `json:"location"`
	Capacity            int               `json:"capacity"`
	Availability        int               `json:"current_availability"`
	Capabilities        []NeedType        `json:"capabilities"`
	Status              ResourceStatus    `json:"status"`
	Verified            bool              `json:"verified"`
	ContactInfo         map[string]string `json:"contact_info,omitempty"`
	ResponseTimeMinutes int               `json:"estimated_response_time_minutes"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Validate checks the registry invariants of the resource.
func (r Resource) Validate() error {
	switch {
	case r.ID == "":
		return errs.Validationf("resource id is required")
	case !r.Type.Valid():
		return errs.Validationf("resource %s: unknown type %q", r.ID, r.Type)
	case r.Capacity <= 0:
		return errs.Validationf("resource %s: capacity must be positive", r.ID)
	case r.Availability < 0 || r.Availability > r.Capacity:
		return errs.Validationf("resource %s: availability %d outside [0,%d]", r.ID, r.Availability, r.Capacity)
	case !r.Status.Valid():
		return errs.Validationf("resource %s: unknown status %q", r.ID, r.Status)
	case r.ResponseTimeMinutes < 0:
		return errs.Validationf("resource %s: response time must not be negative", r.ID)
	}
	for _, c := range r.Capabilities {
		if !c.Valid() {
			return errs.Validationf("resource %s: unknown capability %q", r.ID, c)
		}
	}
	return nil
}

// Normalize fills defaults for optional fields.
func (r *Resource) Normalize() {
	if r.Status == "" {
		r.Status = ResourceActive
	}
	if r.ResponseTimeMinutes == 0 {
		r.ResponseTimeMinutes = DefaultResponseTimeMinutes
	}
	if r.Capabilities == nil {
		r.Capabilities = []NeedType{}
	}
}

// Eligible reports whether the resource may be offered as a match.
func (r Resource) Eligible() bool {
	return r.Status == ResourceActive && r.Verified
}

// HasCapability reports whether the resource lists n among its capabilities.
func (r Resource) HasCapability(n NeedType) bool {
	for _, c := range r.Capabilities {
		if c == n {
			return true
		}
	}
	return false
}

// WithAvailability returns a copy with availability shifted by delta and the
// status kept consistent: an active resource with nothing left becomes
// deployed, and a deployed resource regaining capacity becomes active.
// Reservations (delta < 0) are only taken on eligible resources; releases
// always apply.
func (r Resource) WithAvailability(delta int, now time.Time) (Resource, error) {
	if delta < 0 && !r.Eligible() {
		return r, fmt.Errorf("%w: resource %s is %s (verified=%t)", errs.ErrCapacityConflict, r.ID, r.Status, r.Verified)
	}
	next := r.Availability + delta
	if next < 0 || next > r.Capacity {
		return r, errs.ErrCapacityConflict
	}
	r.Availability = next
	switch {
	case next == 0 && r.Status == ResourceActive:
		r.Status = ResourceDeployed
	case next > 0 && r.Status == ResourceDeployed:
		r.Status = ResourceActive
	}
	r.UpdatedAt = now
	return r, nil
}

// ResourcePatch carries optional updates to a resource.
type ResourcePatch struct {
	Name                *string           `json:"name,omitempty"`
	Description         *string           `json:"description,omitempty"`
	Location            *ResourceLocation `json:"location,omitempty"`
	Capacity            *int              `json:"capacity,omitempty"`
	Availability        *int              `json:"current_availability,omitempty"`
	Capabilities        []NeedType        `json:"capabilities,omitempty"`
	Status              *ResourceStatus   `json:"status,omitempty"`
	Verified            *bool             `json:"verified,omitempty"`
	ContactInfo         map[string]string `json:"contact_info,omitempty"`
	ResponseTimeMinutes *int              `json:"estimated_response_time_minutes,omitempty"`
}

// Apply returns r with the patch applied. The result is validated.
func (p ResourcePatch) Apply(r Resource, now time.Time) (Resource, error) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.Location != nil {
		r.Location = *p.Location
	}
	if p.Capacity != nil {
		r.Capacity = *p.Capacity
	}
	if p.Availability != nil {
		r.Availability = *p.Availability
	}
	if p.Capabilities != nil {
		r.Capabilities = append([]NeedType(nil), p.Capabilities...)
	}
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.Verified != nil {
		r.Verified = *p.Verified
	}
	if p.ContactInfo != nil {
		r.ContactInfo = p.ContactInfo
	}
	if p.ResponseTimeMinutes != nil {
		r.ResponseTimeMinutes = *p.ResponseTimeMinutes
	}
	if err := r.Validate(); err != nil {
		return r, err
	}
	r.UpdatedAt = now
	return r, nil
}
