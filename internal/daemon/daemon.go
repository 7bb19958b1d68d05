// Package daemon wires the status monitor, the link dispatcher, and the
// desktop side channels into the running tray process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/watchfire-io/tailray/internal/config"
	"github.com/watchfire-io/tailray/internal/daemon/link"
	"github.com/watchfire-io/tailray/internal/daemon/monitor"
	"github.com/watchfire-io/tailray/internal/daemon/watcher"
	"github.com/watchfire-io/tailray/internal/desktop"
	"github.com/watchfire-io/tailray/internal/logging"
	"github.com/watchfire-io/tailray/internal/models"
	"github.com/watchfire-io/tailray/internal/tailscale"
)

// Options overrides the collaborators of a Daemon. Zero fields use the
// system implementations.
type Options struct {
	Runner      tailscale.Runner
	Clipboard   desktop.Clipboard
	Notifier    *desktop.DesktopNotifier
	LookPath    func(file string) (string, error)
	CurrentUser func() (*user.User, error)
	// WatchDir is the directory watched for settings.yaml changes. Empty
	// means the global directory; "-" disables watching.
	WatchDir string
}

// Presenter displays what the monitor observes. ConnectionChanged is called
// only when the up/down state flips. PeersChanged is called after every
// successful refresh.
type Presenter interface {
	ConnectionChanged(up bool)
	PeersChanged()
}

// Daemon owns the long-lived state of the tray process.
type Daemon struct {
	settings  atomic.Pointer[models.Settings]
	client    *tailscale.Client
	monitor   *monitor.Monitor
	link      *link.Dispatcher
	notifier  *desktop.DesktopNotifier
	clipboard desktop.Clipboard
	watchDir  string
	shutdown  atomic.Pointer[context.CancelFunc]
	logger    *slog.Logger

	presentMu sync.RWMutex
	presenter Presenter

	// pinnedLevel is set when the log level came from the command line;
	// settings reloads then leave it alone.
	pinnedLevel atomic.Bool
}

// New creates a Daemon from settings.
func New(settings *models.Settings, opts Options) (*Daemon, error) {
	if opts.Runner == nil {
		opts.Runner = tailscale.ExecRunner{Timeout: settings.Provider.CommandTimeout}
	}
	if opts.Clipboard == nil {
		opts.Clipboard = desktop.SystemClipboard{}
	}
	if opts.Notifier == nil {
		opts.Notifier = desktop.NewNotifier(settings.Notifications.Enabled)
	}

	client := tailscale.NewClient(opts.Runner, settings.Provider.Binary)
	mon := monitor.New(client, settings.Monitor.PollInterval)

	dispatcher, err := link.New(link.Options{
		Runner:      opts.Runner,
		Operator:    client,
		Refresher:   mon,
		Notifier:    opts.Notifier,
		Provider:    client.Binary(),
		Helper:      settings.Provider.EscalationHelper,
		LookPath:    opts.LookPath,
		CurrentUser: opts.CurrentUser,
	})
	if err != nil {
		return nil, err
	}

	d := &Daemon{
		client:    client,
		monitor:   mon,
		link:      dispatcher,
		notifier:  opts.Notifier,
		clipboard: opts.Clipboard,
		watchDir:  opts.WatchDir,
		logger:    slog.With("component", "daemon"),
	}
	d.settings.Store(settings)
	mon.OnChange(func(st *tailscale.Status) {
		if p := d.currentPresenter(); p != nil {
			p.ConnectionChanged(st.IsUp())
		}
	})
	mon.OnSnapshot(func(*tailscale.Status) {
		if p := d.currentPresenter(); p != nil {
			p.PeersChanged()
		}
	})
	return d, nil
}

// SetPresenter sets where connection and peer updates are shown.
func (d *Daemon) SetPresenter(p Presenter) {
	d.presentMu.Lock()
	defer d.presentMu.Unlock()
	d.presenter = p
}

func (d *Daemon) currentPresenter() Presenter {
	d.presentMu.RLock()
	defer d.presentMu.RUnlock()
	return d.presenter
}

// PinLogLevel keeps the current log level across settings reloads.
func (d *Daemon) PinLogLevel() {
	d.pinnedLevel.Store(true)
}

// Monitor returns the status monitor.
func (d *Daemon) Monitor() *monitor.Monitor {
	return d.monitor
}

// Settings returns the settings currently in effect.
func (d *Daemon) Settings() *models.Settings {
	return d.settings.Load()
}

// Current returns the latest status snapshot and whether it is up.
func (d *Daemon) Current() (*tailscale.Status, bool) {
	return d.monitor.Current()
}

// Link brings the connection up or down.
func (d *Daemon) Link(ctx context.Context, verb link.Verb) error {
	return d.link.Do(ctx, verb)
}

// CopyIP copies ip to the clipboard and confirms with a notification.
func (d *Daemon) CopyIP(ip, body string, host bool) error {
	return desktop.CopyIP(d.clipboard, d.notifier, ip, body, host)
}

// AdminURL returns the admin console URL.
func (d *Daemon) AdminURL() string {
	return config.AdminURL(d.settings.Load())
}

// RequestShutdown stops a running Run. It is a no-op before Run starts.
func (d *Daemon) RequestShutdown() {
	if cancel := d.shutdown.Load(); cancel != nil {
		d.logger.Info("shutdown requested")
		(*cancel)()
	}
}

// Run seeds the status, then polls and watches settings until ctx is done or
// RequestShutdown is called.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.shutdown.Store(&cancel)
	defer d.shutdown.Store(nil)

	var w *watcher.Watcher
	if d.watchDir != "-" {
		var err error
		if w, err = watcher.New(d.watchDir); err != nil {
			return fmt.Errorf("failed to create settings watcher: %w", err)
		}
		defer w.Stop()
		if err := w.Start(); err != nil {
			// Live reload is optional; keep running without it.
			d.logger.Warn("settings watcher disabled", "err", err)
			w = nil
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := d.monitor.Seed(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		return d.monitor.Run(ctx)
	})

	if w != nil {
		g.Go(func() error {
			return d.watchSettings(ctx, w.Events())
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (d *Daemon) watchSettings(ctx context.Context, events <-chan watcher.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-events:
			switch e.Type {
			case watcher.EventSettingsChanged:
				s, err := config.LoadSettingsFile(e.Path)
				if err != nil {
					d.logger.Warn("ignoring invalid settings", "path", e.Path, "err", err)
					continue
				}
				d.ApplySettings(s)
			case watcher.EventSettingsRemoved:
				d.ApplySettings(models.NewSettings())
			}
		}
	}
}

// ApplySettings makes s the settings in effect. Poll interval, admin URL,
// notifications and log level apply immediately; provider changes need a
// restart.
func (d *Daemon) ApplySettings(s *models.Settings) {
	prev := d.settings.Swap(s)

	d.monitor.SetInterval(s.Monitor.PollInterval)
	d.notifier.SetEnabled(s.Notifications.Enabled)
	if !d.pinnedLevel.Load() {
		if err := logging.SetLevel(s.Log.Level); err != nil {
			d.logger.Warn("ignoring log level", "err", err)
		}
	}
	if prev != nil && prev.Provider != s.Provider {
		d.logger.Info("provider settings changed, restart tailray to apply them")
	}
	d.logger.Info("settings applied",
		"poll_interval", s.Monitor.PollInterval,
		"notifications", s.Notifications.Enabled,
		"admin_url", config.AdminURL(s),
	)
}
