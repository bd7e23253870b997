package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/crisistriage/infra/logger"
)

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randFloat() float64 {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Float64()
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// AckStrategy defines how a unit acknowledges dispatch notices.
type AckStrategy interface {
	Ack(ctx context.Context, pub publisher, topic, noticeID string)
}

// AutoAck sends an ACK after an optional fixed delay.
type AutoAck struct {
	Delay time.Duration
}

// Ack implements AckStrategy.
func (a AutoAck) Ack(ctx context.Context, pub publisher, topic, noticeID string) {
	if !wait(ctx, a.Delay) {
		return
	}
	publishAck(pub, topic, noticeID)
}

// RandomAck drops acknowledgments with the configured probability and
// waits for the specified delay before sending.
type RandomAck struct {
	Delay    time.Duration
	DropRate float64
}

// Ack implements AckStrategy.
func (r RandomAck) Ack(ctx context.Context, pub publisher, topic, noticeID string) {
	if r.DropRate > 0 && randFloat() < r.DropRate {
		logger.New("simulator").Debugf("dropping ack for %s", noticeID)
		return
	}
	if !wait(ctx, r.Delay) {
		return
	}
	publishAck(pub, topic, noticeID)
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

func publishAck(pub publisher, topic, noticeID string) {
	log := logger.New("simulator")
	payload, err := json.Marshal(struct {
		NoticeID string `json:"notice_id"`
	}{NoticeID: noticeID})
	if err != nil {
		log.Errorf("marshal ack: %v", err)
		return
	}
	token := pub.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		log.Warnf("ack publish timeout on %s", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Errorf("publish ack on %s: %v", topic, err)
	}
}
