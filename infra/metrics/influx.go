package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/crisistriage/core/metrics"
	"github.com/kilianp07/crisistriage/infra/logger"
)

// InfluxSink writes triage events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTriage writes a processed message.
func (s *InfluxSink) RecordTriage(ev coremetrics.TriageEvent) error {
	p := write.NewPointWithMeasurement("triage_event").
		AddTag("request_id", ev.RequestID).
		AddTag("urgency", string(ev.Urgency)).
		AddTag("match_source", ev.Source).
		AddTag("requires_confirmation", strconv.FormatBool(ev.RequiresConfirm)).
		AddField("urgency_score", round3(ev.UrgencyScore)).
		AddField("match_count", ev.MatchCount).
		AddField("top_score", round3(ev.TopScore)).
		AddField("processing_seconds", round3(ev.ProcessingSeconds)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordAllocation writes a capacity reservation attempt.
func (s *InfluxSink) RecordAllocation(ev coremetrics.AllocationEvent) error {
	p := write.NewPointWithMeasurement("resource_allocation").
		AddTag("request_id", ev.RequestID).
		AddTag("resource_id", ev.ResourceID).
		AddTag("result", ev.Result).
		AddField("people", ev.People).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordOverride writes a dispatcher override.
func (s *InfluxSink) RecordOverride(ev coremetrics.OverrideEvent) error {
	p := write.NewPointWithMeasurement("dispatch_override").
		AddTag("request_id", ev.RequestID).
		AddTag("dispatcher_id", ev.DispatcherID).
		AddTag("recommended_resource", ev.RecommendedResource).
		AddTag("selected_resource", ev.SelectedResource).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordStatus writes a request lifecycle transition.
func (s *InfluxSink) RecordStatus(ev coremetrics.StatusEvent) error {
	p := write.NewPointWithMeasurement("request_status").
		AddTag("request_id", ev.RequestID)
	if ev.Urgency != "" {
		p = p.AddTag("urgency", string(ev.Urgency))
	}
	p = p.AddField("from", string(ev.From)).
		AddField("to", string(ev.To)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordMatchingPath writes a matching strategy decision.
func (s *InfluxSink) RecordMatchingPath(ev coremetrics.MatchingPathEvent) error {
	p := write.NewPointWithMeasurement("matching_path").
		AddTag("action", ev.Action).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordResourceLevel writes a resource availability snapshot.
func (s *InfluxSink) RecordResourceLevel(ev coremetrics.ResourceLevelEvent) error {
	p := write.NewPointWithMeasurement("resource_level").
		AddTag("resource_id", ev.ResourceID).
		AddTag("status", string(ev.Status)).
		AddField("availability", ev.Availability).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordNotice writes a dispatch notice delivery.
func (s *InfluxSink) RecordNotice(ev coremetrics.NoticeEvent) error {
	p := write.NewPointWithMeasurement("dispatch_notice").
		AddTag("request_id", ev.RequestID).
		AddTag("resource_id", ev.ResourceID).
		AddTag("acknowledged", strconv.FormatBool(ev.Acknowledged)).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		AddField("errors", ev.Error).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
