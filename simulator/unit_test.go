package main

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/crisistriage/core/geo"
	"github.com/kilianp07/crisistriage/infra/logger"
	"github.com/kilianp07/crisistriage/infra/mqtt"
)

type stubToken struct{ err error }

func (t *stubToken) Wait() bool                     { return true }
func (t *stubToken) WaitTimeout(time.Duration) bool { return true }
func (t *stubToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (t *stubToken) Error() error                   { return t.err }

type published struct {
	topic   string
	payload []byte
}

type stubClient struct {
	mu           sync.Mutex
	subs         []string
	pubs         []published
	disconnected int
}

func (c *stubClient) IsConnected() bool      { return c.disconnected == 0 }
func (c *stubClient) IsConnectionOpen() bool { return c.disconnected == 0 }
func (c *stubClient) Connect() paho.Token    { return &stubToken{} }
func (c *stubClient) Disconnect(uint)        { c.mu.Lock(); c.disconnected++; c.mu.Unlock() }
func (c *stubClient) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	c.mu.Lock()
	c.pubs = append(c.pubs, published{topic: topic, payload: payload.([]byte)})
	c.mu.Unlock()
	return &stubToken{}
}
func (c *stubClient) Subscribe(topic string, _ byte, _ paho.MessageHandler) paho.Token {
	c.mu.Lock()
	c.subs = append(c.subs, topic)
	c.mu.Unlock()
	return &stubToken{}
}
func (c *stubClient) SubscribeMultiple(map[string]byte, paho.MessageHandler) paho.Token {
	return &stubToken{}
}
func (c *stubClient) Unsubscribe(...string) paho.Token        { return &stubToken{} }
func (c *stubClient) AddRoute(string, paho.MessageHandler)    {}
func (c *stubClient) OptionsReader() paho.ClientOptionsReader { return paho.ClientOptionsReader{} }

func (c *stubClient) published() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.pubs...)
}

type stubMessage struct {
	topic   string
	payload []byte
}

func (m stubMessage) Duplicate() bool   { return false }
func (m stubMessage) Qos() byte         { return 1 }
func (m stubMessage) Retained() bool    { return false }
func (m stubMessage) Topic() string     { return m.topic }
func (m stubMessage) MessageID() uint16 { return 0 }
func (m stubMessage) Payload() []byte   { return m.payload }
func (m stubMessage) Ack()              {}

func newTestUnit(cli *stubClient) *SimulatedUnit {
	return &SimulatedUnit{
		ID:           "ambulance-001",
		Address:      "123 Hospital Drive",
		NoticePrefix: "triage/resource",
		StatusPrefix: "triage/status",
		Strategy:     AutoAck{},
		Interval:     time.Hour,
		Position:     NewPosition(geo.Point{Lat: 40.7128, Lon: -74.0060}, 5),
		client:       cli,
		ackCh:        make(chan string, 1),
		log:          logger.NopLogger{},
	}
}

func TestTopics(t *testing.T) {
	u := newTestUnit(&stubClient{})
	if u.NoticeTopic() != "triage/resource/ambulance-001/dispatch" {
		t.Fatalf("notice topic %s", u.NoticeTopic())
	}
	if u.AckTopic() != "triage/resource/ambulance-001/ack" {
		t.Fatalf("ack topic %s", u.AckTopic())
	}
	if u.StatusTopic() != "triage/status/ambulance-001" {
		t.Fatalf("status topic %s", u.StatusTopic())
	}
}

func TestOnNoticeQueuesAck(t *testing.T) {
	u := newTestUnit(&stubClient{})
	u.onNotice(nil, stubMessage{topic: u.NoticeTopic(), payload: []byte(`{"notice_id":"n1","request_id":"r1","people":2}`)})
	select {
	case id := <-u.ackCh:
		if id != "n1" {
			t.Fatalf("queued %s", id)
		}
	default:
		t.Fatal("notice not queued")
	}

	u.onNotice(nil, stubMessage{payload: []byte(`{"request_id":"r2"}`)})
	u.onNotice(nil, stubMessage{payload: []byte(`garbage`)})
	if len(u.ackCh) != 0 {
		t.Fatal("invalid notices must not be queued")
	}
}

func TestWorkerPublishesAck(t *testing.T) {
	cli := &stubClient{}
	u := newTestUnit(cli)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go u.worker(ctx)
	u.ackCh <- "n1"

	deadline := time.After(time.Second)
	for len(cli.published()) == 0 {
		select {
		case <-deadline:
			t.Fatal("ack not published")
		case <-time.After(5 * time.Millisecond):
		}
	}
	p := cli.published()[0]
	if p.topic != u.AckTopic() {
		t.Fatalf("ack published on %s", p.topic)
	}
	var ack struct {
		NoticeID string `json:"notice_id"`
	}
	if err := json.Unmarshal(p.payload, &ack); err != nil || ack.NoticeID != "n1" {
		t.Fatalf("unexpected ack %s: %v", p.payload, err)
	}
}

func TestRandomAckDropsEverything(t *testing.T) {
	cli := &stubClient{}
	RandomAck{DropRate: 1}.Ack(context.Background(), cli, "t", "n1")
	if len(cli.published()) != 0 {
		t.Fatal("expected ack to be dropped")
	}
	RandomAck{}.Ack(context.Background(), cli, "t", "n2")
	if len(cli.published()) != 1 {
		t.Fatal("expected ack without drop rate")
	}
}

func TestAutoAckCanceled(t *testing.T) {
	cli := &stubClient{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	AutoAck{Delay: time.Minute}.Ack(ctx, cli, "t", "n1")
	if len(cli.published()) != 0 {
		t.Fatal("canceled ack must not be published")
	}
}

func TestReportPosition(t *testing.T) {
	cli := &stubClient{}
	u := newTestUnit(cli)
	u.DriftKM = 1
	u.reportPosition()

	pubs := cli.published()
	if len(pubs) != 1 || pubs[0].topic != u.StatusTopic() {
		t.Fatalf("unexpected publications %+v", pubs)
	}
	var rep mqtt.StatusReport
	if err := json.Unmarshal(pubs[0].payload, &rep); err != nil {
		t.Fatal(err)
	}
	if rep.ResourceID != u.ID || rep.Latitude == nil || rep.Longitude == nil {
		t.Fatalf("unexpected report %+v", rep)
	}
	if rep.Availability != nil || rep.Status != nil {
		t.Fatal("position reports must not touch availability or status")
	}
	patch, err := rep.Patch()
	if err != nil || patch.Location == nil {
		t.Fatalf("report should patch the location: %v", err)
	}
}

func TestRunSubscribesAndDisconnects(t *testing.T) {
	cli := &stubClient{}
	mqttClientFactory = func(string, string) (paho.Client, error) { return cli, nil }
	defer func() { mqttClientFactory = realMQTTClient }()

	u := newTestUnit(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx) }()

	deadline := time.After(time.Second)
	for {
		cli.mu.Lock()
		n := len(cli.subs)
		cli.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("no subscription")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if cli.subs[0] != u.NoticeTopic() {
		t.Fatalf("subscribed to %s", cli.subs[0])
	}
	if cli.disconnected != 1 {
		t.Fatal("expected disconnect")
	}
}

func TestConfigValidate(t *testing.T) {
	good := Config{Broker: "tcp://b:1883", FixtureFile: "f.yaml", Interval: time.Second}
	if err := good.Validate(); err != nil {
		t.Fatal(err)
	}
	bad := good
	bad.DropRate = 2
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "drop rate") {
		t.Fatalf("expected drop rate error, got %v", err)
	}
	bad = good
	bad.Interval = 0
	if err := bad.Validate(); err == nil {
		t.Fatal("expected interval error")
	}
}
