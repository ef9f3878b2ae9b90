//go:build linux

package hal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/autopeer-io/canbridge/internal/agent/core"
	"github.com/autopeer-io/canbridge/internal/pkg/metrics"
	"github.com/autopeer-io/canbridge/pkg/log"
)

var _ core.ActionSink = (*LinuxSink)(nil)

// LinuxSink runs host commands: xdotool for keys, date for the clock and
// the head unit scripts for everything else.
type LinuxSink struct {
	opts *Options
}

func newPlatformSink(o *Options) core.ActionSink {
	return &LinuxSink{opts: o}
}

func (s *LinuxSink) PressKey(key core.Action) error {
	sym := key.Keysym()
	if sym == "" {
		return fmt.Errorf("%s is not a key action", key)
	}
	args := append(strings.Fields(s.opts.KeyCommand), sym)
	return s.run("key", args)
}

func (s *LinuxSink) RunSystemCommand(cmd core.Action) error {
	args, err := s.opts.command(cmd)
	if err != nil {
		return err
	}
	return s.run("system", args)
}

// SetSystemClock sets the clock with date -u MMDDhhmmYYYY.SS.
func (s *LinuxSink) SetSystemClock(utc time.Time) error {
	stamp := utc.UTC().Format("010215042006.05")
	return s.run("clock", []string{"sudo", "date", "-u", stamp})
}

func (s *LinuxSink) SetDisplayMode(mode core.DisplayMode) error {
	if s.opts.DayNightScript == "" {
		return errors.New("no day/night script configured")
	}
	return s.run("display", []string{s.opts.DayNightScript, "app", string(mode)})
}

func (s *LinuxSink) ShutdownNow() error {
	return s.run("shutdown", strings.Fields(s.opts.ShutdownCommand))
}

func (s *LinuxSink) run(kind string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.CommandTimeout)
	defer cancel()

	start := time.Now()
	out, err := exec.CommandContext(ctx, args[0], args[1:]...).CombinedOutput()
	metrics.ActionLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	log.Debug("Action command finished", "command", strings.Join(args, " "))
	return nil
}
