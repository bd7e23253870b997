// Package audit keeps an append-only log of triage decisions so dispatcher
// actions can be reviewed after the fact.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/kilianp07/crisistriage/core/model"
)

// Action names the operation that produced a record.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionConfirm  Action = "confirm"
	ActionComplete Action = "complete"
)

// Record captures one triage decision.
type Record struct {
	Timestamp        time.Time           `json:"timestamp"`
	RequestID        string              `json:"request_id"`
	Action           Action              `json:"action"`
	Status           model.RequestStatus `json:"status"`
	Urgency          model.UrgencyLevel  `json:"urgency,omitempty"`
	MatchSource      string              `json:"match_source,omitempty"`
	TopResource      string              `json:"top_resource,omitempty"`
	SelectedResource string              `json:"selected_resource,omitempty"`
	DispatcherID     string              `json:"dispatcher_id,omitempty"`
	Override         bool                `json:"override"`
	OverrideReason   string              `json:"override_reason,omitempty"`
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	RequestID string
	Action    Action
	Limit     int
}

// Match reports whether r satisfies the query filters.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RequestID != "" && r.RequestID != q.RequestID {
		return false
	}
	if q.Action != "" && r.Action != q.Action {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// scanRecords decodes JSON lines from r, skipping lines that do not parse.
func scanRecords(r io.Reader, q Query, out []Record) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if q.Match(rec) {
			out = append(out, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return out, nil
}

// finalize orders records chronologically and applies the query limit.
func finalize(recs []Record, q Query) []Record {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.Before(recs[j].Timestamp)
	})
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[len(recs)-q.Limit:]
	}
	return recs
}
