// Package monitoring forwards unexpected failures to an error tracker. The
// tracker is process-wide and defaults to a no-op.
package monitoring

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/kilianp07/crisistriage/core/errs"
)

// Monitor reports errors and panics to a tracker.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	CapturePanic(v any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

type holder struct{ m Monitor }

var current atomic.Pointer[holder]

func init() { current.Store(&holder{m: NopMonitor{}}) }

func active() Monitor { return current.Load().m }

// Init installs m. A nil m is ignored.
func Init(m Monitor) {
	if m != nil {
		current.Store(&holder{m: m})
	}
}

func CaptureException(err error, tags map[string]string) {
	if err != nil {
		active().CaptureException(err, tags)
	}
}

// Capture reports err tagged with the request and stage of the first
// errs.StageError in its chain. extra tags win over derived ones.
func Capture(err error, extra map[string]string) {
	if err == nil {
		return
	}
	tags := make(map[string]string, len(extra)+2)
	var se *errs.StageError
	if errors.As(err, &se) {
		tags["request_id"] = se.RequestID
		tags["stage"] = se.Stage
	}
	for k, v := range extra {
		tags[k] = v
	}
	CaptureException(err, tags)
}

// Recover must be deferred directly. It reports a panic, flushes the tracker
// and panics again.
func Recover() {
	if r := recover(); r != nil {
		m := active()
		m.CapturePanic(r)
		m.Flush(2 * time.Second)
		panic(r)
	}
}

func Flush(d time.Duration) { active().Flush(d) }
