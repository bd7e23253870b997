package monitoring

import (
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/crisistriage/config"
	coremon "github.com/kilianp07/crisistriage/core/monitoring"
)

// scrubbedKeys may carry caller identity or the free-text emergency message
// and are removed from every event.
var scrubbedKeys = []string{"message", "original_message", "phone_number", "dispatcher_notes"}

// NewSentryMonitor returns a NopMonitor when no DSN is configured.
func NewSentryMonitor(cfg config.SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	return newSentryMonitor(clientOptions(cfg))
}

func newSentryMonitor(opts sentry.ClientOptions) (*sentryMonitor, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func clientOptions(cfg config.SentryConfig) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		TracesSampleRate: cfg.TracesSampleRate,
		AttachStacktrace: true,
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return scrub(ev)
		},
	}
}

func scrub(ev *sentry.Event) *sentry.Event {
	if ev == nil {
		return nil
	}
	if ev.Request != nil {
		ev.Request.Data = ""
		ev.Request.Cookies = ""
	}
	for _, k := range scrubbedKeys {
		delete(ev.Extra, k)
		delete(ev.Tags, k)
	}
	return ev
}

type sentryMonitor struct {
	hub *sentry.Hub
}

// CaptureException groups events by pipeline stage when one is tagged.
func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if stage := tags["stage"]; stage != "" {
			scope.SetFingerprint([]string{"{{ default }}", stage})
		}
		s.hub.CaptureException(err)
	})
}

func (s *sentryMonitor) CapturePanic(v any) { s.hub.Recover(v) }

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
