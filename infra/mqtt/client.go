package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremon "github.com/kilianp07/crisistriage/core/monitoring"
	"github.com/kilianp07/crisistriage/core/notify"
	"github.com/kilianp07/crisistriage/infra/logger"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// PahoClient sends dispatch notices to resource units and collects their
// acknowledgments. It implements notify.Notifier.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	acks    *pendingAcks
	log     logger.Logger
	retries int
	backoff time.Duration
}

// NewPahoClient connects to the broker. The ack subscription is renewed on
// every (re)connect.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	cfg.NoticeTopicPrefix = strings.TrimSuffix(cfg.NoticeTopicPrefix, "/")
	cfg.StatusTopicPrefix = strings.TrimSuffix(cfg.StatusTopicPrefix, "/")
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	pc := &PahoClient{cfg: cfg, acks: newPendingAcks(), log: logger.New("mqtt_client")}
	pc.retries, pc.backoff = cfg.retryPolicy()

	opts.OnConnect = func(c paho.Client) {
		pc.log.Infof("connected to %s", cfg.Broker)
		if tok := c.Subscribe(cfg.AckTopic, cfg.qos("ack"), pc.onAck); tok.Wait() && tok.Error() != nil {
			pc.log.Errorf("subscribe %s: %v", cfg.AckTopic, tok.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		pc.log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(paho.Client, *paho.ClientOptions) {
		pc.log.Warnf("reconnecting to %s", cfg.Broker)
	}
	c := newMQTTClient(opts)
	if tok := c.Connect(); tok.Wait() && tok.Error() != nil {
		return nil, tok.Error()
	}
	pc.cli = c
	return pc, nil
}

func (p *PahoClient) onAck(_ paho.Client, msg paho.Message) {
	var ack struct {
		NoticeID string `json:"notice_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &ack); err != nil {
		p.log.Errorf("decode ack on %s: %v", msg.Topic(), err)
		return
	}
	if p.acks.resolve(ack.NoticeID) {
		p.log.Infof("notice %s acknowledged", ack.NoticeID)
	}
}

// NoticeTopic is <notice_prefix>/<resource_id>/dispatch.
func (p *PahoClient) NoticeTopic(resourceID string) string {
	return fmt.Sprintf("%s/%s/dispatch", p.cfg.NoticeTopicPrefix, resourceID)
}

// SendNotice publishes n to its unit and returns the notice id to wait on.
// A missing id or timestamp is filled in.
func (p *PahoClient) SendNotice(ctx context.Context, n notify.Notice) (string, error) {
	if n.NoticeID == "" {
		n.NoticeID = uuid.NewString()
	}
	if n.Timestamp == 0 {
		n.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(n)
	if err != nil {
		return "", err
	}

	// registered first so an ack racing the publish is kept
	p.acks.add(n.NoticeID)
	topic := p.NoticeTopic(n.ResourceID)
	if err := p.publish(ctx, topic, p.cfg.qos("notice"), payload); err != nil {
		p.acks.drop(n.NoticeID)
		coremon.CaptureException(err, map[string]string{
			"module":      "mqtt",
			"request_id":  n.RequestID,
			"resource_id": n.ResourceID,
		})
		return "", err
	}
	p.log.Infof("notice %s sent to %s", n.NoticeID, topic)
	return n.NoticeID, nil
}

// publish retries with exponential backoff until the retries are exhausted
// or ctx ends.
func (p *PahoClient) publish(ctx context.Context, topic string, qos byte, payload []byte) error {
	delay := p.backoff
	for attempt := 0; ; attempt++ {
		tok := p.cli.Publish(topic, qos, false, payload)
		tok.Wait()
		err := tok.Error()
		if err == nil {
			return nil
		}
		p.log.Warnf("publish %s attempt %d: %v", topic, attempt+1, err)
		if attempt >= p.retries {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SubscribeStatus routes <status_prefix>/+ messages to handler.
func (p *PahoClient) SubscribeStatus(handler paho.MessageHandler) error {
	topic := p.cfg.StatusTopicPrefix + "/+"
	if tok := p.cli.Subscribe(topic, p.cfg.qos("status"), handler); tok.Wait() && tok.Error() != nil {
		return tok.Error()
	}
	p.log.Infof("subscribed to %s", topic)
	return nil
}

// WaitForAck blocks until the notice is acknowledged or timeout passes, in
// which case the error wraps notify.ErrAckTimeout.
func (p *PahoClient) WaitForAck(noticeID string, timeout time.Duration) (bool, error) {
	return p.acks.wait(noticeID, timeout)
}

func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
