package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/crisistriage/core/model"
	"github.com/kilianp07/crisistriage/infra/logger"
)

// ResourceUpdater applies status reports to the resource registry.
type ResourceUpdater interface {
	UpdateResource(ctx context.Context, id string, p model.ResourcePatch) (model.Resource, error)
}

type statusSubscriber interface {
	SubscribeStatus(handler paho.MessageHandler) error
}

// FleetListener ingests availability reports pushed by resource units on
// <status_prefix>/<resource_id>.
type FleetListener struct {
	sub     statusSubscriber
	updater ResourceUpdater
	log     logger.Logger
	timeout time.Duration
}

// StatusReport is the payload a unit publishes on its status topic.
type StatusReport struct {
	ResourceID   string   `json:"resource_id"`
	Availability *int     `json:"current_availability"`
	Status       *string  `json:"status"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Address      string   `json:"address"`
}

// NewFleetListener creates a listener applying reports through updater.
func NewFleetListener(sub statusSubscriber, updater ResourceUpdater, log logger.Logger) *FleetListener {
	if log == nil {
		log = logger.New("fleet")
	}
	return &FleetListener{sub: sub, updater: updater, log: log, timeout: 5 * time.Second}
}

// Start subscribes to the status topics.
func (f *FleetListener) Start() error {
	return f.sub.SubscribeStatus(f.onStatus)
}

func (f *FleetListener) onStatus(_ paho.Client, msg paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()
	if _, err := f.Process(ctx, msg.Topic(), msg.Payload()); err != nil {
		f.log.Errorf("status report on %s: %v", msg.Topic(), err)
	}
}

// Process decodes a status report and applies it to the resource.
func (f *FleetListener) Process(ctx context.Context, topic string, payload []byte) (model.Resource, error) {
	var rep StatusReport
	if err := json.Unmarshal(payload, &rep); err != nil {
		return model.Resource{}, err
	}
	if rep.ResourceID == "" {
		rep.ResourceID = extractID(topic)
	}
	if rep.ResourceID == "" {
		return model.Resource{}, fmt.Errorf("status report without resource id")
	}
	patch, err := rep.Patch()
	if err != nil {
		return model.Resource{}, err
	}
	r, err := f.updater.UpdateResource(ctx, rep.ResourceID, patch)
	if err != nil {
		return model.Resource{}, err
	}
	f.log.Debugf("resource %s reported %d/%d (%s)", r.ID, r.Availability, r.Capacity, r.Status)
	return r, nil
}

// Patch converts the report into a registry patch.
func (r StatusReport) Patch() (model.ResourcePatch, error) {
	var p model.ResourcePatch
	if r.Availability != nil {
		if *r.Availability < 0 {
			return p, fmt.Errorf("negative availability %d", *r.Availability)
		}
		p.Availability = r.Availability
	}
	if r.Status != nil {
		st := model.ResourceStatus(strings.ToLower(strings.TrimSpace(*r.Status)))
		if !st.Valid() {
			return p, fmt.Errorf("unknown status %q", *r.Status)
		}
		p.Status = &st
	}
	if r.Latitude != nil && r.Longitude != nil {
		p.Location = &model.ResourceLocation{Address: r.Address, Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return p, nil
}

func extractID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}
	return ""
}
