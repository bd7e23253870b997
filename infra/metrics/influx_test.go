package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/crisistriage/core/metrics"
	"github.com/kilianp07/crisistriage/core/model"
)

type lineServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newLineServer(t *testing.T) *lineServer {
	t.Helper()
	ls := &lineServer{}
	ls.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ls.mu.Lock()
		ls.bodies = append(ls.bodies, strings.TrimSpace(string(data)))
		ls.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(ls.Close)
	return ls
}

func (ls *lineServer) Bodies() []string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return append([]string(nil), ls.bodies...)
}

func lineProtocol(p *write.Point) string {
	return strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
}

func TestInfluxSink_RecordTriage(t *testing.T) {
	srv := newLineServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	ev := coremetrics.TriageEvent{
		RequestID:         "req-1",
		Urgency:           model.UrgencyCritical,
		UrgencyScore:      0.95,
		Source:            "rule",
		MatchCount:        2,
		TopScore:          0.8456,
		RequiresConfirm:   true,
		ProcessingSeconds: 1.23456,
		Time:              now,
	}
	if err := sink.RecordTriage(ev); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("triage_event").
		AddTag("request_id", "req-1").
		AddTag("urgency", "critical").
		AddTag("match_source", "rule").
		AddTag("requires_confirmation", "true").
		AddField("urgency_score", 0.95).
		AddField("match_count", 2).
		AddField("top_score", 0.846).
		AddField("processing_seconds", 1.235).
		SetTime(now)
	if bodies := srv.Bodies(); len(bodies) != 1 || bodies[0] != lineProtocol(p) {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordAllocationAndNotice(t *testing.T) {
	srv := newLineServer(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	now := time.Now()
	if err := sink.RecordAllocation(coremetrics.AllocationEvent{RequestID: "req-1", ResourceID: "amb-1", People: 3, Result: "allocated", Time: now}); err != nil {
		t.Fatalf("record allocation: %v", err)
	}
	if err := sink.RecordNotice(coremetrics.NoticeEvent{RequestID: "req-1", ResourceID: "amb-1", Acknowledged: true, Latency: 1500 * time.Microsecond, Time: now}); err != nil {
		t.Fatalf("record notice: %v", err)
	}
	p1 := write.NewPointWithMeasurement("resource_allocation").
		AddTag("request_id", "req-1").
		AddTag("resource_id", "amb-1").
		AddTag("result", "allocated").
		AddField("people", 3).
		SetTime(now)
	p2 := write.NewPointWithMeasurement("dispatch_notice").
		AddTag("request_id", "req-1").
		AddTag("resource_id", "amb-1").
		AddTag("acknowledged", "true").
		AddField("latency_ms", 1.5).
		AddField("errors", "").
		SetTime(now)
	bodies := srv.Bodies()
	if len(bodies) != 2 || bodies[0] != lineProtocol(p1) || bodies[1] != lineProtocol(p2) {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestInfluxSink_RecordStatusWithoutUrgency(t *testing.T) {
	srv := newLineServer(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	now := time.Now()
	if err := sink.RecordStatus(coremetrics.StatusEvent{RequestID: "req-2", From: model.StatusPending, To: model.StatusCancelled, Time: now}); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("request_status").
		AddTag("request_id", "req-2").
		AddField("from", "pending").
		AddField("to", "cancelled").
		SetTime(now)
	if bodies := srv.Bodies(); len(bodies) != 1 || bodies[0] != lineProtocol(p) {
		t.Errorf("unexpected bodies: %#v", bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
