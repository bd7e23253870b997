package store

import (
	"testing"

	"github.com/kilianp07/crisistriage/core/model"
)

func TestEligibleFilter(t *testing.T) {
	f := Eligible()
	ok := model.Resource{Status: model.ResourceActive, Verified: true}
	if !f.Match(ok) {
		t.Fatalf("expected active verified resource to match")
	}
	if f.Match(model.Resource{Status: model.ResourceActive}) {
		t.Fatalf("unverified resource must not match")
	}
	if f.Match(model.Resource{Status: model.ResourceDeployed, Verified: true}) {
		t.Fatalf("deployed resource must not match")
	}
}

func TestZeroFilterMatchesAll(t *testing.T) {
	if !(ResourceFilter{}).Match(model.Resource{Status: model.ResourceInactive}) {
		t.Fatalf("zero filter should match everything")
	}
	if (ResourceFilter{Type: model.ResourceAmbulance}).Match(model.Resource{Type: model.ResourceTransport}) {
		t.Fatalf("type filter should exclude other types")
	}
}
