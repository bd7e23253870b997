package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/core/notify"
	"github.com/kilianp07/crisistriage/infra/logger"
	"github.com/kilianp07/crisistriage/infra/mqtt"
)

// SimulatedUnit is a resource unit that acknowledges dispatch notices and
// periodically reports its position.
type SimulatedUnit struct {
	ID           string
	Address      string
	Broker       string
	NoticePrefix string
	StatusPrefix string
	Strategy     AckStrategy
	Interval     time.Duration
	DriftKM      float64
	Position     *Position

	client paho.Client
	ackCh  chan string
	log    logger.Logger
}

// NoticeTopic is where the server publishes dispatch notices for the unit.
func (u *SimulatedUnit) NoticeTopic() string {
	return fmt.Sprintf("%s/%s/dispatch", u.NoticePrefix, u.ID)
}

// AckTopic is where the unit acknowledges notices.
func (u *SimulatedUnit) AckTopic() string {
	return fmt.Sprintf("%s/%s/ack", u.NoticePrefix, u.ID)
}

// StatusTopic is where the unit reports its position.
func (u *SimulatedUnit) StatusTopic() string {
	return fmt.Sprintf("%s/%s", u.StatusPrefix, u.ID)
}

// Run connects to the broker, handles notices and reports the position every
// Interval until ctx is done.
func (u *SimulatedUnit) Run(ctx context.Context) error {
	if u.log == nil {
		u.log = logger.New("unit_" + u.ID)
	}
	if u.ackCh == nil {
		u.ackCh = make(chan string, 50)
	}
	cli, err := mqttClientFactory(u.Broker, "sim-"+u.ID)
	if err != nil {
		return err
	}
	u.client = cli
	defer cli.Disconnect(250)

	for i := 0; i < 3; i++ {
		go u.worker(ctx)
	}
	if token := cli.Subscribe(u.NoticeTopic(), 1, u.onNotice); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	u.log.Infof("listening on %s", u.NoticeTopic())

	ticker := time.NewTicker(u.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			u.reportPosition()
		}
	}
}

func (u *SimulatedUnit) onNotice(_ paho.Client, msg paho.Message) {
	var n notify.Notice
	if err := json.Unmarshal(msg.Payload(), &n); err != nil {
		u.log.Errorf("decode notice: %v", err)
		return
	}
	if n.NoticeID == "" {
		u.log.Warnf("notice without id on %s", msg.Topic())
		return
	}
	u.log.Infof("dispatched to request %s for %d people (%s)", n.RequestID, n.People, n.Urgency)
	select {
	case u.ackCh <- n.NoticeID:
	default:
		u.log.Warnf("ack queue full, dropping notice %s", n.NoticeID)
	}
}

func (u *SimulatedUnit) worker(ctx context.Context) {
	for {
		select {
		case id := <-u.ackCh:
			u.Strategy.Ack(ctx, u.client, u.AckTopic(), id)
		case <-ctx.Done():
			return
		}
	}
}

// StatusReport builds the report for the current position.
func (u *SimulatedUnit) StatusReport() mqtt.StatusReport {
	pt := u.Position.Current()
	lat, lon := pt.Lat, pt.Lon
	return mqtt.StatusReport{ResourceID: u.ID, Latitude: &lat, Longitude: &lon, Address: u.Address}
}

func (u *SimulatedUnit) reportPosition() {
	u.Position.Drift(u.DriftKM, randFloat)
	payload, err := json.Marshal(u.StatusReport())
	if err != nil {
		u.log.Errorf("marshal status: %v", err)
		return
	}
	token := u.client.Publish(u.StatusTopic(), 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		u.log.Warnf("status publish timeout")
		return
	}
	if err := token.Error(); err != nil {
		u.log.Errorf("publish status: %v", err)
	}
}

// unitFromResource derives a simulated unit from a registry resource.
func unitFromResource(r model.Resource, cfg Config, strat AckStrategy) SimulatedUnit {
	return SimulatedUnit{
		ID:           r.ID,
		Address:      r.Location.Address,
		Broker:       cfg.Broker,
		NoticePrefix: cfg.NoticePrefix,
		StatusPrefix: cfg.StatusPrefix,
		Strategy:     strat,
		Interval:     cfg.Interval,
		DriftKM:      cfg.DriftKM,
		Position:     NewPosition(basePoint(r), cfg.RadiusKM),
	}
}
