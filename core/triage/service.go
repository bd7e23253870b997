// Package triage runs the request lifecycle: automatic triage of inbound
// messages, dispatcher confirmation and completion.
package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/crisistriage/core/audit"
	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/events"
	"github.com/kilianp07/crisistriage/core/extract"
	"github.com/kilianp07/crisistriage/core/geo"
	"github.com/kilianp07/crisistriage/core/geocode"
	"github.com/kilianp07/crisistriage/core/logger"
	"github.com/kilianp07/crisistriage/core/matching"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/monitoring"
	"github.com/kilianp07/crisistriage/core/store"
	"github.com/kilianp07/crisistriage/internal/eventbus"
)

// DefaultOverrideReason is recorded when a dispatcher overrides the top match
// without giving a reason.
const DefaultOverrideReason = "Manual selection"

// ResourceMatcher ranks resources for extracted information.
type ResourceMatcher interface {
	MatchResources(ctx context.Context, info model.ExtractedInformation, maxMatches int) (matching.Result, error)
}

// Store is the persistence the service needs.
type Store interface {
	store.RequestStore
	store.ResourceStore
}

// Config tunes the triage pipeline.
type Config struct {
	MaxMatches     int           `json:"max_matches"`
	ExtractTimeout time.Duration `json:"extract_timeout"`
	GeocodeTimeout time.Duration `json:"geocode_timeout"`
}

// DefaultConfig returns the default pipeline settings.
func DefaultConfig() Config {
	return Config{
		MaxMatches:     5,
		ExtractTimeout: 30 * time.Second,
		GeocodeTimeout: 5 * time.Second,
	}
}

// Response is the decision-support payload returned for a processed message.
type Response struct {
	RequestID             string                     `json:"request_id"`
	Status                string                     `json:"status"`
	ExtractedInfo         model.ExtractedInformation `json:"extracted_info"`
	MatchedResources      []model.ResourceMatch      `json:"matched_resources"`
	ProcessingTimeSeconds float64                    `json:"processing_time_seconds"`
	RequiresConfirmation  bool                       `json:"requires_confirmation"`
	Warnings              []string                   `json:"warnings"`
	MatchSource           matching.Source            `json:"-"`
}

// Confirmation is a dispatcher's decision on a triaged request. An empty
// SelectedResourceID cancels the request.
type Confirmation struct {
	RequestID          string `json:"request_id"`
	SelectedResourceID string `json:"selected_resource_id,omitempty"`
	DispatcherID       string `json:"dispatcher_id"`
	Notes              string `json:"dispatcher_notes,omitempty"`
	OverrideReason     string `json:"override_reason,omitempty"`
}

// Service orchestrates triage and the dispatcher workflow.
type Service struct {
	extractor extract.Extractor
	geocoder  geocode.Geocoder
	matcher   ResourceMatcher
	store     Store
	cfg       Config
	bus       eventbus.EventBus
	logger    logger.Logger

	mu    sync.Mutex
	audit audit.Store
	now   func() time.Time
	newID func() string
}

// NewService wires a Service. geocoder and bus may be nil.
func NewService(ex extract.Extractor, gc geocode.Geocoder, m ResourceMatcher, st Store, cfg Config, bus eventbus.EventBus, log logger.Logger) (*Service, error) {
	if ex == nil || m == nil || st == nil || log == nil {
		return nil, fmt.Errorf("triage: nil parameter provided to NewService")
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = DefaultConfig().MaxMatches
	}
	return &Service{
		extractor: ex,
		geocoder:  gc,
		matcher:   m,
		store:     st,
		cfg:       cfg,
		bus:       bus,
		logger:    log,
		audit:     audit.NopStore{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}, nil
}

// SetAuditStore configures the store receiving decision records.
func (s *Service) SetAuditStore(a audit.Store) {
	if a == nil {
		a = audit.NopStore{}
	}
	s.mu.Lock()
	s.audit = a
	s.mu.Unlock()
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// SetIDGenerator replaces the request id generator.
func (s *Service) SetIDGenerator(gen func() string) {
	s.mu.Lock()
	s.newID = gen
	s.mu.Unlock()
}

func (s *Service) clock() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// Submit triages an inbound message: extract, geocode, match and store. The
// stored request rests in PENDING awaiting a dispatcher. Geocoding and AI
// matching failures degrade the result; extraction and storage failures are
// returned.
func (s *Service) Submit(ctx context.Context, msg model.EmergencyMessage) (Response, error) {
	if strings.TrimSpace(msg.Message) == "" {
		return Response{}, errs.Validationf("message must not be empty")
	}
	start := s.clock()
	if msg.Source == "" {
		msg.Source = model.SourceOther
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = start
	}
	s.mu.Lock()
	id := s.newID()
	s.mu.Unlock()

	req := model.EmergencyRequest{
		ID:                  id,
		OriginalMessage:     msg.Message,
		Source:              msg.Source,
		PhoneNumber:         msg.PhoneNumber,
		ReceivedAt:          msg.Timestamp,
		MatchedResources:    []model.ResourceMatch{},
		Status:              model.StatusProcessing,
		HumanOverrides:      []model.Override{},
		ProcessingStartedAt: &start,
		Metadata:            msg.Metadata,
	}
	if err := s.store.SaveRequest(ctx, req); err != nil {
		return Response{}, errs.Stage(id, "persist", err)
	}
	s.publishStatus(req, "", model.StatusProcessing)
	s.logger.Infof("processing emergency request %s", id)

	info, err := s.extract(ctx, msg)
	if err != nil {
		s.logger.Errorf("extraction failed for request %s: %v", id, err)
		s.abandon(ctx, req, err)
		err = errs.Stage(id, "extract", err)
		monitoring.Capture(err, nil)
		return Response{}, err
	}
	s.geocode(ctx, id, &info)

	res, err := s.matcher.MatchResources(ctx, info, s.cfg.MaxMatches)
	if err != nil {
		s.logger.Errorf("matching failed for request %s: %v", id, err)
		s.abandon(ctx, req, err)
		return Response{}, errs.Stage(id, "match", err)
	}
	s.publishStatus(req, model.StatusProcessing, model.StatusMatched)

	requires := RequiresConfirmation(info, res.Matches)
	warnings := append(Warnings(info, res.Matches), res.Warnings...)
	done := s.clock()
	elapsed := done.Sub(start).Seconds()

	req.ExtractedInfo = &info
	req.MatchedResources = res.Matches
	req.MatchSource = string(res.Source)
	req.Warnings = warnings
	req.ProcessingCompletedAt = &done
	req.ProcessingTimeSeconds = elapsed
	req.Status = model.StatusPending
	if err := s.store.UpdateRequest(ctx, req, model.StatusProcessing); err != nil {
		return Response{}, errs.Stage(id, "persist", err)
	}
	s.publishStatus(req, model.StatusMatched, model.StatusPending)

	triageRequests.WithLabelValues(string(info.UrgencyLevel)).Inc()
	processingSeconds.Observe(elapsed)
	topScore := 0.0
	topID := ""
	if top, ok := req.TopMatch(); ok {
		topScore = top.MatchScore
		topID = top.ResourceID
	}
	s.publish(events.TriagedEvent{
		RequestID:            id,
		Urgency:              info.UrgencyLevel,
		UrgencyScore:         info.UrgencyScore,
		MatchSource:          string(res.Source),
		MatchCount:           len(res.Matches),
		TopScore:             topScore,
		RequiresConfirmation: requires,
		ProcessingSeconds:    elapsed,
		At:                   done,
	})
	s.record(ctx, audit.Record{
		Timestamp:   done,
		RequestID:   id,
		Action:      audit.ActionSubmit,
		Status:      req.Status,
		Urgency:     info.UrgencyLevel,
		MatchSource: string(res.Source),
		TopResource: topID,
	})
	s.logger.Infof("request %s processed in %.2fs. Urgency: %s, Matches: %d", id, elapsed, info.UrgencyLevel, len(res.Matches))

	return Response{
		RequestID:             id,
		Status:                "processed",
		ExtractedInfo:         info,
		MatchedResources:      res.Matches,
		ProcessingTimeSeconds: geo.Round(elapsed, 3),
		RequiresConfirmation:  requires,
		Warnings:              warnings,
		MatchSource:           res.Source,
	}, nil
}

func (s *Service) extract(ctx context.Context, msg model.EmergencyMessage) (model.ExtractedInformation, error) {
	if s.cfg.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ExtractTimeout)
		defer cancel()
	}
	return s.extractor.Extract(ctx, msg.Message, extract.MessageContext{Source: msg.Source, PhoneNumber: msg.PhoneNumber})
}

// geocode replaces the extracted location when the lookup resolves it. Any
// failure keeps the original location.
func (s *Service) geocode(ctx context.Context, id string, info *model.ExtractedInformation) {
	if s.geocoder == nil || info.Location == nil || strings.TrimSpace(info.Location.RawText) == "" {
		return
	}
	if s.cfg.GeocodeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GeocodeTimeout)
		defer cancel()
	}
	loc, err := s.geocoder.Geocode(ctx, info.Location.RawText)
	if err != nil {
		s.logger.Warnf("geocoding failed for request %s: %v", id, err)
		return
	}
	if !loc.IsGeocoded {
		s.logger.Debugf("location %q not found for request %s", info.Location.RawText, id)
		return
	}
	info.Location = &loc
}

// abandon returns a request whose automatic triage failed to the pending
// queue so it can be handled manually.
func (s *Service) abandon(ctx context.Context, req model.EmergencyRequest, cause error) {
	done := s.clock()
	req.Status = model.StatusPending
	req.ProcessingCompletedAt = &done
	req.Warnings = []string{fmt.Sprintf("Automatic triage failed (%v). Manual triage required.", cause)}
	if err := s.store.UpdateRequest(context.WithoutCancel(ctx), req, model.StatusProcessing); err != nil {
		s.logger.Errorf("could not release request %s: %v", req.ID, err)
		return
	}
	s.publishStatus(req, model.StatusProcessing, model.StatusPending)
}

// Confirm applies a dispatcher's decision. Selecting a resource dispatches
// the request and reserves capacity for the people affected; selecting
// nothing cancels it. Choosing a resource other than the top match records
// an override.
func (s *Service) Confirm(ctx context.Context, c Confirmation) (model.EmergencyRequest, error) {
	if c.RequestID == "" {
		return model.EmergencyRequest{}, errs.Validationf("request id is required")
	}
	if strings.TrimSpace(c.DispatcherID) == "" {
		return model.EmergencyRequest{}, errs.Validationf("dispatcher id is required")
	}
	req, err := s.store.FindRequest(ctx, c.RequestID)
	if err != nil {
		return model.EmergencyRequest{}, errs.Stage(c.RequestID, "confirm", err)
	}
	from := req.Status
	to := model.StatusCancelled
	if c.SelectedResourceID != "" {
		to = model.StatusDispatched
	}
	if err := checkTransition(from, to); err != nil {
		return model.EmergencyRequest{}, errs.Stage(req.ID, "confirm", err)
	}

	now := s.clock()
	updated := req.Clone()
	updated.DispatcherConfirmed = true
	updated.ConfirmationTimestamp = &now
	updated.DispatcherID = c.DispatcherID
	updated.DispatcherNotes = c.Notes
	updated.Status = to

	var override *model.Override
	if to == model.StatusDispatched {
		if top, ok := req.TopMatch(); ok && top.ResourceID != c.SelectedResourceID {
			reason := c.OverrideReason
			if strings.TrimSpace(reason) == "" {
				reason = DefaultOverrideReason
			}
			override = &model.Override{
				Timestamp:           now,
				DispatcherID:        c.DispatcherID,
				RecommendedResource: top.ResourceID,
				SelectedResource:    c.SelectedResourceID,
				Reason:              reason,
			}
			updated.HumanOverrides = append(updated.HumanOverrides, *override)
		}
		updated.AssignedResourceID = c.SelectedResourceID
		updated.DispatchedAt = &now
		if err := s.dispatch(ctx, updated, from); err != nil {
			return model.EmergencyRequest{}, err
		}
	} else if err := s.store.UpdateRequest(ctx, updated, from); err != nil {
		return model.EmergencyRequest{}, errs.Stage(req.ID, "persist", err)
	}

	s.publishStatus(updated, from, to)
	if override != nil {
		overrides.Inc()
		s.publish(events.OverrideEvent{RequestID: updated.ID, Override: *override})
		s.logger.Infof("human override on request %s: selected %s instead of %s", updated.ID, override.SelectedResource, override.RecommendedResource)
	}
	rec := audit.Record{
		Timestamp:        now,
		RequestID:        updated.ID,
		Action:           audit.ActionConfirm,
		Status:           to,
		Urgency:          updated.Urgency(),
		MatchSource:      updated.MatchSource,
		SelectedResource: c.SelectedResourceID,
		DispatcherID:     c.DispatcherID,
		Override:         override != nil,
	}
	if top, ok := updated.TopMatch(); ok {
		rec.TopResource = top.ResourceID
	}
	if override != nil {
		rec.OverrideReason = override.Reason
	}
	s.record(ctx, rec)
	s.logger.Infof("dispatch confirmed for request %s: %s", updated.ID, to)
	return updated, nil
}

// dispatch reserves capacity and then stores the request. If the request
// changed concurrently the reservation is released again.
func (s *Service) dispatch(ctx context.Context, req model.EmergencyRequest, expected model.RequestStatus) error {
	people := req.People()
	resourceID := req.AssignedResourceID
	res, err := s.store.UpdateResourceAvailability(ctx, resourceID, -people)
	if err != nil {
		result := "error"
		if errors.Is(err, errs.ErrCapacityConflict) {
			result = "conflict"
			s.logger.Warnf("capacity conflict on resource %s for request %s (%d people): %v", resourceID, req.ID, people, err)
		}
		allocations.WithLabelValues(result).Inc()
		s.publish(events.AllocationFailedEvent{RequestID: req.ID, ResourceID: resourceID, People: people, Err: err, At: *req.DispatchedAt})
		return errs.Stage(req.ID, "allocate", err)
	}
	if err := s.store.UpdateRequest(ctx, req, expected); err != nil {
		if _, cerr := s.store.UpdateResourceAvailability(context.WithoutCancel(ctx), resourceID, people); cerr != nil {
			s.logger.Errorf("could not release %d units on resource %s: %v", people, resourceID, cerr)
			monitoring.Capture(errs.Stage(req.ID, "release", cerr), map[string]string{"resource_id": resourceID})
		}
		allocations.WithLabelValues("rolled_back").Inc()
		return errs.Stage(req.ID, "persist", err)
	}
	allocations.WithLabelValues("allocated").Inc()
	s.logger.Infof("resource %s allocated. Remaining capacity: %d", resourceID, res.Availability)
	s.publish(events.DispatchedEvent{
		RequestID:    req.ID,
		ResourceID:   resourceID,
		DispatcherID: req.DispatcherID,
		People:       people,
		Urgency:      req.Urgency(),
		At:           *req.DispatchedAt,
	})
	s.publish(events.ResourceStatusEvent{ResourceID: res.ID, Availability: res.Availability, Status: res.Status, At: *req.DispatchedAt})
	return nil
}

// Complete closes a dispatched request.
func (s *Service) Complete(ctx context.Context, id string) (model.EmergencyRequest, error) {
	req, err := s.store.FindRequest(ctx, id)
	if err != nil {
		return model.EmergencyRequest{}, errs.Stage(id, "complete", err)
	}
	if err := checkTransition(req.Status, model.StatusCompleted); err != nil {
		return model.EmergencyRequest{}, errs.Stage(id, "complete", err)
	}
	from := req.Status
	now := s.clock()
	req.Status = model.StatusCompleted
	req.CompletedAt = &now
	if err := s.store.UpdateRequest(ctx, req, from); err != nil {
		return model.EmergencyRequest{}, errs.Stage(id, "persist", err)
	}
	s.publishStatus(req, from, model.StatusCompleted)
	s.record(ctx, audit.Record{
		Timestamp:        now,
		RequestID:        id,
		Action:           audit.ActionComplete,
		Status:           model.StatusCompleted,
		Urgency:          req.Urgency(),
		MatchSource:      req.MatchSource,
		SelectedResource: req.AssignedResourceID,
		DispatcherID:     req.DispatcherID,
	})
	return req, nil
}

// Get returns a stored request.
func (s *Service) Get(ctx context.Context, id string) (model.EmergencyRequest, error) {
	return s.store.FindRequest(ctx, id)
}

// List returns stored requests, newest first.
func (s *Service) List(ctx context.Context, f store.RequestFilter) ([]model.EmergencyRequest, error) {
	return s.store.ListRequests(ctx, f)
}

// Audit returns decision records matching q.
func (s *Service) Audit(ctx context.Context, q audit.Query) ([]audit.Record, error) {
	s.mu.Lock()
	a := s.audit
	s.mu.Unlock()
	return a.Query(ctx, q)
}

func (s *Service) record(ctx context.Context, rec audit.Record) {
	s.mu.Lock()
	a := s.audit
	s.mu.Unlock()
	if err := a.Append(context.WithoutCancel(ctx), rec); err != nil {
		s.logger.Warnf("audit append failed for request %s: %v", rec.RequestID, err)
	}
}

func (s *Service) publishStatus(req model.EmergencyRequest, from, to model.RequestStatus) {
	s.publish(events.RequestEvent{RequestID: req.ID, From: from, To: to, Urgency: req.Urgency(), At: s.clock()})
}

func (s *Service) publish(e eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}
