package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/crisistriage/core/events"
	coremetrics "github.com/kilianp07/crisistriage/core/metrics"
	"github.com/kilianp07/crisistriage/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink) {
	if bus == nil || sink == nil {
		return
	}
	sub := bus.Subscribe()
	go func() {
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				record(sink, ev)
			}
		}
	}()
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) {
	switch e := ev.(type) {
	case events.TriagedEvent:
		_ = sink.RecordTriage(coremetrics.TriageEvent{
			RequestID:         e.RequestID,
			Urgency:           e.Urgency,
			UrgencyScore:      e.UrgencyScore,
			Source:            e.MatchSource,
			MatchCount:        e.MatchCount,
			TopScore:          e.TopScore,
			RequiresConfirm:   e.RequiresConfirmation,
			ProcessingSeconds: e.ProcessingSeconds,
			Time:              e.At,
		})
	case events.DispatchedEvent:
		if r, ok := sink.(coremetrics.AllocationRecorder); ok {
			_ = r.RecordAllocation(coremetrics.AllocationEvent{RequestID: e.RequestID, ResourceID: e.ResourceID, People: e.People, Result: "allocated", Time: e.At})
		}
	case events.AllocationFailedEvent:
		if r, ok := sink.(coremetrics.AllocationRecorder); ok {
			_ = r.RecordAllocation(coremetrics.AllocationEvent{RequestID: e.RequestID, ResourceID: e.ResourceID, People: e.People, Result: "failed", Time: e.At})
		}
	case events.OverrideEvent:
		if r, ok := sink.(coremetrics.OverrideRecorder); ok {
			o := e.Override
			_ = r.RecordOverride(coremetrics.OverrideEvent{
				RequestID:           e.RequestID,
				DispatcherID:        o.DispatcherID,
				RecommendedResource: o.RecommendedResource,
				SelectedResource:    o.SelectedResource,
				Reason:              o.Reason,
				Time:                o.Timestamp,
			})
		}
	case events.RequestEvent:
		if r, ok := sink.(coremetrics.StatusRecorder); ok {
			_ = r.RecordStatus(coremetrics.StatusEvent{RequestID: e.RequestID, From: e.From, To: e.To, Urgency: e.Urgency, Time: e.At})
		}
	case events.StrategyEvent:
		if r, ok := sink.(coremetrics.MatchingPathRecorder); ok {
			errStr := ""
			if e.Err != nil {
				errStr = e.Err.Error()
			}
			_ = r.RecordMatchingPath(coremetrics.MatchingPathEvent{Action: e.Action, Error: errStr, Time: time.Now()})
		}
	case events.ResourceStatusEvent:
		if r, ok := sink.(coremetrics.ResourceLevelRecorder); ok {
			_ = r.RecordResourceLevel(coremetrics.ResourceLevelEvent{ResourceID: e.ResourceID, Availability: e.Availability, Status: e.Status, Time: e.At})
		}
	case events.NoticeEvent:
		if r, ok := sink.(coremetrics.NoticeRecorder); ok {
			errStr := ""
			if e.Err != nil {
				errStr = e.Err.Error()
			}
			_ = r.RecordNotice(coremetrics.NoticeEvent{
				RequestID:    e.RequestID,
				ResourceID:   e.ResourceID,
				Acknowledged: e.Acknowledged,
				Latency:      e.Latency,
				Error:        errStr,
				Time:         e.At,
			})
		}
	}
}
