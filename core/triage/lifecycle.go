package triage

import (
	"fmt"

	"github.com/kilianp07/crisistriage/core/errs"
	"github.com/kilianp07/crisistriage/core/model"
)

// transitions lists the statuses reachable from each status. Completed and
// cancelled requests are terminal.
var transitions = map[model.RequestStatus][]model.RequestStatus{
	model.StatusPending:    {model.StatusProcessing, model.StatusDispatched, model.StatusCancelled},
	model.StatusProcessing: {model.StatusMatched, model.StatusPending},
	model.StatusMatched:    {model.StatusPending, model.StatusDispatched, model.StatusCancelled},
	model.StatusDispatched: {model.StatusCompleted},
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to model.RequestStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible from s.
func Terminal(s model.RequestStatus) bool {
	return len(transitions[s]) == 0
}

func checkTransition(from, to model.RequestStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", errs.ErrInvalidTransition, from, to)
	}
	return nil
}
