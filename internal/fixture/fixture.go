// Package fixture decodes resource registry fixtures written in YAML.
package fixture

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/crisistriage/core/model"
)

// Location is the base position of a fixture resource.
type Location struct {
	Address   string  `yaml:"address"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Region    string  `yaml:"region"`
}

// Resource is the YAML form of a registry resource. Availability defaults to
// the capacity, status to active and verified to true.
type Resource struct {
	ID                  string            `yaml:"resource_id"`
	Type                string            `yaml:"resource_type"`
	Name                string            `yaml:"name"`
	Description         string            `yaml:"description"`
	Location            Location          `yaml:"location"`
	Capacity            int               `yaml:"capacity"`
	Availability        *int              `yaml:"current_availability"`
	Capabilities        []string          `yaml:"capabilities"`
	Status              string            `yaml:"status"`
	Verified            *bool             `yaml:"verified"`
	ContactInfo         map[string]string `yaml:"contact_info"`
	ResponseTimeMinutes int               `yaml:"estimated_response_time_minutes"`
}

type document struct {
	Resources []Resource `yaml:"resources"`
}

// Model converts the fixture entry into a normalized registry resource.
func (s Resource) Model(now time.Time) model.Resource {
	r := model.Resource{
		ID:          s.ID,
		Type:        model.ResourceType(s.Type),
		Name:        s.Name,
		Description: s.Description,
		Location: model.ResourceLocation{
			Address:   s.Location.Address,
			Latitude:  s.Location.Latitude,
			Longitude: s.Location.Longitude,
			Region:    s.Location.Region,
		},
		Capacity:            s.Capacity,
		Availability:        s.Capacity,
		Status:              model.ResourceStatus(s.Status),
		Verified:            true,
		ContactInfo:         s.ContactInfo,
		ResponseTimeMinutes: s.ResponseTimeMinutes,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if s.Availability != nil {
		r.Availability = *s.Availability
	}
	if s.Verified != nil {
		r.Verified = *s.Verified
	}
	if r.Status == "" {
		r.Status = model.ResourceActive
	}
	for _, c := range s.Capabilities {
		r.Capabilities = append(r.Capabilities, model.NeedType(c))
	}
	r.Normalize()
	return r
}

// Convert validates entries and rejects duplicate identifiers.
func Convert(entries []Resource, now time.Time) ([]model.Resource, error) {
	out := make([]model.Resource, 0, len(entries))
	seen := map[string]bool{}
	for _, s := range entries {
		res := s.Model(now)
		if err := res.Validate(); err != nil {
			return nil, err
		}
		if seen[res.ID] {
			return nil, fmt.Errorf("duplicate resource %s", res.ID)
		}
		seen[res.ID] = true
		out = append(out, res)
	}
	return out, nil
}

// Decode parses a document with a top-level resources list.
func Decode(r io.Reader, now time.Time) ([]model.Resource, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	return Convert(doc.Resources, now)
}
