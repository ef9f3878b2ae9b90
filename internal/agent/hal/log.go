package hal

import (
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/pkg/log"
)

var _ core.ActionSink = (*LogSink)(nil)

// LogSink only logs. It backs dry runs and platforms without a head unit.
type LogSink struct {
	log log.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{log: log.WithName("hal")}
}

func (s *LogSink) PressKey(key core.Action) error {
	s.log.Info("[dry-run] press key", "action", key, "keysym", key.Keysym())
	return nil
}

func (s *LogSink) RunSystemCommand(cmd core.Action) error {
	s.log.Info("[dry-run] run system command", "action", cmd)
	return nil
}

func (s *LogSink) SetSystemClock(utc time.Time) error {
	s.log.Info("[dry-run] set system clock", "utc", utc.Format(time.RFC3339))
	return nil
}

func (s *LogSink) SetDisplayMode(mode core.DisplayMode) error {
	s.log.Info("[dry-run] set display mode", "mode", mode)
	return nil
}

func (s *LogSink) ShutdownNow() error {
	s.log.Warn("[dry-run] shutdown now")
	return nil
}
