//go:build !linux

package hal

import "github.com/autopeer-io/canbridge/internal/agent/core"

// Development machines have no head unit; actions are logged.
func newPlatformSink(*Options) core.ActionSink {
	return NewLogSink()
}
