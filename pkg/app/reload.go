package app

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/autopeer-io/canbridge/pkg/log"
)

// Reloader raises a pending flag on SIGHUP or when the configuration file
// changes. The owning loop polls Pending at a safe point and calls Load.
type Reloader struct {
	app     *App
	pending atomic.Bool
	notify  chan struct{}
}

func newReloader(a *App) *Reloader {
	return &Reloader{app: a, notify: make(chan struct{}, 1)}
}

// Start installs the SIGHUP handler and the file watch. Both stop with ctx.
// The watch only raises the flag; the file is read by Load on the loop
// goroutine, so viper is never touched from two goroutines at once.
func (r *Reloader) Start(ctx context.Context) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP)

	go func() {
		defer signal.Stop(sigs)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				log.Info("Received SIGHUP, reload scheduled")
				r.Request()
			}
		}
	}()

	if r.app.configFile == "" {
		return
	}
	if err := r.watch(ctx, r.app.configFile); err != nil {
		log.Error(err, "Cannot watch the configuration file, reload on SIGHUP only", "file", r.app.configFile)
	}
}

// watch follows the file's directory so editors that replace the file by
// rename are seen too.
func (r *Reloader) watch(ctx context.Context, file string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	file = filepath.Clean(file)
	if err := w.Add(filepath.Dir(file)); err != nil {
		_ = w.Close()
		return err
	}

	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(e.Name) != file || !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
					continue
				}
				log.Info("Configuration file changed, reload scheduled", "file", e.Name)
				r.Request()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Error(err, "Configuration watch failed")
			}
		}
	}()
	return nil
}

// Request schedules a reload.
func (r *Reloader) Request() {
	r.pending.Store(true)
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Pending reports and clears a scheduled reload.
func (r *Reloader) Pending() bool {
	return r.pending.CompareAndSwap(true, false)
}

// Notify is signalled when a reload is requested. Loops that block on
// something else can include it in their select.
func (r *Reloader) Notify() <-chan struct{} {
	return r.notify
}

// Load decodes the current configuration into fresh options.
func (r *Reloader) Load(opts NamedFlagSetOptions) error {
	return r.app.Load(opts)
}
