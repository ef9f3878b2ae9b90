package core

import (
	"fmt"
	"time"

	"github.com/autopeer-io/canbridge/internal/pkg/metrics"
	"github.com/autopeer-io/canbridge/pkg/log"
)

// DisplayMode is the head unit's day or night theme.
type DisplayMode string

const (
	DisplayDay   DisplayMode = "day"
	DisplayNight DisplayMode = "night"
)

// ActionSink performs the side effects decided by the decoders. The decoders
// only decide when to call it.
type ActionSink interface {
	PressKey(key Action) error
	RunSystemCommand(cmd Action) error
	SetSystemClock(utc time.Time) error
	SetDisplayMode(mode DisplayMode) error
	ShutdownNow() error
}

// Perform routes a to PressKey or RunSystemCommand. None does nothing.
func Perform(sink ActionSink, a Action) error {
	switch {
	case a == None || a == "":
		return nil
	case a.IsSystem():
		return sink.RunSystemCommand(a)
	case a.IsKey():
		return sink.PressKey(a)
	default:
		return fmt.Errorf("unknown action %q", a)
	}
}

// Fire performs a on behalf of module and counts it under tier. A failed
// action is logged and not retried.
func Fire(sink ActionSink, module, tier string, a Action) {
	if a == None || a == "" {
		return
	}
	log.Info("Firing action", "module", module, "tier", tier, "action", a)
	metrics.ActionsTotal.WithLabelValues(module, tier).Inc()
	if err := Perform(sink, a); err != nil {
		log.Error(err, "Action failed", "module", module, "action", a)
	}
}
