package triage

import (
	"context"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/crisistriage/core/geo"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/store"
)

// statsWindow bounds the requests used for the average triage time.
const statsWindow = 24 * time.Hour

// Stats summarises the request and resource registries for the dashboard.
func (s *Service) Stats(ctx context.Context) (model.DashboardStats, error) {
	reqs, err := s.store.ListRequests(ctx, store.RequestFilter{})
	if err != nil {
		return model.DashboardStats{}, err
	}
	resources, err := s.store.FindResources(ctx, store.ResourceFilter{})
	if err != nil {
		return model.DashboardStats{}, err
	}
	return summarize(reqs, resources, s.clock()), nil
}

func summarize(reqs []model.EmergencyRequest, resources []model.Resource, now time.Time) model.DashboardStats {
	st := model.DashboardStats{TotalRequests: len(reqs)}
	since := now.Add(-statsWindow)
	var times []float64
	confirmed, overridden := 0, 0
	for _, r := range reqs {
		switch r.Status {
		case model.StatusPending:
			st.PendingRequests++
		case model.StatusProcessing:
			st.ProcessingRequests++
		case model.StatusDispatched:
			st.DispatchedRequests++
		case model.StatusCompleted:
			st.CompletedRequests++
		case model.StatusCancelled:
			st.CancelledRequests++
		}
		if r.Status == model.StatusPending || r.Status == model.StatusProcessing {
			switch r.Urgency() {
			case model.UrgencyCritical:
				st.CriticalRequests++
			case model.UrgencyHigh:
				st.HighUrgencyRequests++
			}
		}
		if !r.ReceivedAt.Before(since) && r.ProcessingCompletedAt != nil {
			times = append(times, r.ProcessingTimeSeconds)
		}
		if r.AssignedResourceID != "" {
			confirmed++
			if len(r.HumanOverrides) > 0 {
				overridden++
			}
		}
	}
	if len(times) > 0 {
		st.AverageTriageTimeSeconds = geo.Round(stat.Mean(times, nil), 2)
	}
	if confirmed > 0 {
		st.OverrideRate = geo.Round(float64(overridden)/float64(confirmed), 3)
	}
	for _, r := range resources {
		switch r.Status {
		case model.ResourceActive:
			st.ResourcesAvailable++
		case model.ResourceDeployed:
			st.ResourcesDeployed++
		}
	}
	return st
}
