package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/crisistriage/core/factory"
	coremetrics "github.com/kilianp07/crisistriage/core/metrics"
)

type promConf struct {
	Port string `json:"prometheus_port"`
}

type influxConf struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func (c influxConf) validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("influx: url is required")
	case c.Bucket == "":
		return fmt.Errorf("influx: bucket is required")
	}
	return nil
}

func newPromFromConf(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c promConf
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	// The port only matters to the exporter started by the app.
	sink, err := NewPromSinkWithRegistry(coremetrics.Config{PrometheusPort: c.Port}, prometheus.DefaultRegisterer)
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// An unreachable InfluxDB degrades to a NopSink rather than failing startup.
func newInfluxFromConf(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c influxConf
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}

func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink("prometheus", newPromFromConf)
	_ = coremetrics.RegisterMetricsSink("influx", newInfluxFromConf)
}
