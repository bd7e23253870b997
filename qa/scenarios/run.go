// Package scenarios replays scripted dispatcher sessions against the triage
// service with an in-memory registry and a scripted extractor.
package scenarios

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/events"
	"github.com/kilianp07/crisistriage/core/extract"
	"github.com/kilianp07/crisistriage/core/matching"
	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/triage"
	"github.com/kilianp07/crisistriage/infra/logger"
	"github.com/kilianp07/crisistriage/infra/store"
	"github.com/kilianp07/crisistriage/internal/eventbus"
	"github.com/kilianp07/crisistriage/internal/fixture"
)

// scriptedExtractor answers each message with its scenario extraction.
type scriptedExtractor map[string]model.ExtractedInformation

func (s scriptedExtractor) Extract(_ context.Context, message string, _ extract.MessageContext) (model.ExtractedInformation, error) {
	info, ok := s[message]
	if !ok {
		return model.ExtractedInformation{}, fmt.Errorf("%w: no scripted extraction for %q", errs.ErrMalformedOutput, message)
	}
	return info, nil
}

type counter struct {
	mu         sync.Mutex
	dispatched int
	overrides  int
}

func (c *counter) consume(sub <-chan eventbus.Event, done chan<- struct{}) {
	defer close(done)
	for ev := range sub {
		c.mu.Lock()
		switch ev.(type) {
		case events.DispatchedEvent:
			c.dispatched++
		case events.OverrideEvent:
			c.overrides++
		}
		c.mu.Unlock()
	}
}

// Run replays sc and returns every failed expectation. An error means the
// scenario itself could not be set up.
func Run(ctx context.Context, sc *Scenario) ([]string, error) {
	resources, err := fixture.Convert(sc.Resources, time.Unix(0, 0).UTC())
	if err != nil {
		return nil, err
	}
	st := store.NewMemoryStore()
	for _, r := range resources {
		if err := st.SaveResource(ctx, r); err != nil {
			return nil, err
		}
	}

	script := scriptedExtractor{}
	for _, step := range sc.Steps {
		script[step.Message] = step.Extraction.ToModel()
	}

	bus := eventbus.New(eventbus.WithBuffer(256))
	sub := bus.Subscribe()
	var c counter
	done := make(chan struct{})
	go c.consume(sub, done)

	rule, err := matching.NewRuleMatcher(matching.DefaultWeights())
	if err != nil {
		return nil, err
	}
	orch, err := matching.NewOrchestrator(st, rule, nil, matching.DefaultConfig(), bus, logger.NopLogger{})
	if err != nil {
		return nil, err
	}
	svc, err := triage.NewService(script, nil, orch, st, triage.DefaultConfig(), bus, logger.NopLogger{})
	if err != nil {
		return nil, err
	}

	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}
	for i, step := range sc.Steps {
		runStep(ctx, svc, i, step, fail)
	}

	bus.Close()
	<-done
	if n := bus.Dropped(); n > 0 {
		fail("event bus dropped %d events, counts are unreliable", n)
	}

	for id, want := range sc.Expected.Availability {
		r, err := st.GetResource(ctx, id)
		if err != nil {
			fail("resource %s: %v", id, err)
			continue
		}
		if r.Availability != want {
			fail("resource %s: availability %d, want %d", id, r.Availability, want)
		}
	}
	if c.dispatched != sc.Expected.Dispatched {
		fail("dispatched %d requests, want %d", c.dispatched, sc.Expected.Dispatched)
	}
	if c.overrides != sc.Expected.Overrides {
		fail("recorded %d overrides, want %d", c.overrides, sc.Expected.Overrides)
	}
	return failures, nil
}

func runStep(ctx context.Context, svc *triage.Service, i int, step Step, fail func(string, ...any)) {
	exp := step.Expect
	resp, err := svc.Submit(ctx, model.EmergencyMessage{Message: step.Message, Source: model.SourceOther})
	if err != nil {
		fail("step %d: submit: %v", i, err)
		return
	}
	if exp.Matches != nil && len(resp.MatchedResources) != *exp.Matches {
		fail("step %d: %d matches, want %d", i, len(resp.MatchedResources), *exp.Matches)
	}
	top := ""
	if len(resp.MatchedResources) > 0 {
		top = resp.MatchedResources[0].ResourceID
	}
	if exp.TopMatch != "" && top != exp.TopMatch {
		fail("step %d: top match %q, want %q", i, top, exp.TopMatch)
	}
	if exp.Urgency != "" && string(resp.ExtractedInfo.UrgencyLevel) != exp.Urgency {
		fail("step %d: urgency %s, want %s", i, resp.ExtractedInfo.UrgencyLevel, exp.Urgency)
	}

	if step.Confirm != nil {
		selected := step.Confirm.Resource
		if selected == "top" {
			selected = top
		}
		_, err := svc.Confirm(ctx, triage.Confirmation{
			RequestID:          resp.RequestID,
			SelectedResourceID: selected,
			DispatcherID:       step.Confirm.Dispatcher,
			OverrideReason:     step.Confirm.Reason,
		})
		checkErr(i, "confirm", err, exp.ConfirmError, fail)
	}
	if step.Complete {
		_, err := svc.Complete(ctx, resp.RequestID)
		checkErr(i, "complete", err, exp.CompleteError, fail)
	}

	if exp.Status != "" {
		req, err := svc.Get(ctx, resp.RequestID)
		if err != nil {
			fail("step %d: get: %v", i, err)
			return
		}
		if string(req.Status) != exp.Status {
			fail("step %d: status %s, want %s", i, req.Status, exp.Status)
		}
	}
}

func checkErr(i int, op string, err error, kind string, fail func(string, ...any)) {
	if kind == "" {
		if err != nil {
			fail("step %d: %s: %v", i, op, err)
		}
		return
	}
	if err == nil {
		fail("step %d: %s succeeded, want %s error", i, op, kind)
		return
	}
	if !errors.Is(err, errKind(kind)) {
		fail("step %d: %s: %v, want %s error", i, op, err, kind)
	}
}

func errKind(kind string) error {
	switch kind {
	case "conflict":
		return errs.ErrCapacityConflict
	case "transition":
		return errs.ErrInvalidTransition
	case "not_found":
		return errs.ErrNotFound
	case "validation":
		return errs.ErrValidation
	}
	return fmt.Errorf("unknown error kind %q", kind)
}
