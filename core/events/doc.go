// Package events defines the triage related events emitted on the event bus.
//
// Available event types:
//   - StrategyEvent: matching path selection and fallback information
//   - RequestEvent: a request changed lifecycle status
//   - DispatchedEvent: a dispatcher confirmed a resource for a request
//   - OverrideEvent: a dispatcher chose a resource other than the top match
//   - ResourceStatusEvent: a fleet unit reported its availability
//   - TriagedEvent: a message finished automatic triage
//   - AllocationFailedEvent: capacity could not be reserved for a dispatch
//   - NoticeEvent: a dispatch notice was delivered to a resource unit
package events
