package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/watchfire-io/tailray/internal/config"
	"github.com/watchfire-io/tailray/internal/daemon/tray"
	"github.com/watchfire-io/tailray/internal/models"
)

// AlreadyRunningError is returned when another tray process holds instance.yaml.
type AlreadyRunningError struct {
	PID int
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("tailray already running (PID %d)", e.PID)
}

// claimInstance records this process in instance.yaml.
func claimInstance() error {
	if err := config.EnsureGlobalDir(); err != nil {
		return fmt.Errorf("failed to create global directory: %w", err)
	}
	running, info, err := config.IsInstanceRunning()
	if err != nil {
		return fmt.Errorf("failed to check instance status: %w", err)
	}
	if running && info.PID != os.Getpid() {
		return &AlreadyRunningError{PID: info.PID}
	}
	return config.SaveInstanceInfo(models.NewInstanceInfo(os.Getpid()))
}

func releaseInstance(d *Daemon) {
	if err := config.RemoveInstanceInfo(); err != nil {
		d.logger.Warn("failed to remove instance info", "err", err)
	}
}

// RunForeground runs without a tray icon until SIGINT or SIGTERM.
func RunForeground(d *Daemon) error {
	if err := claimInstance(); err != nil {
		return err
	}
	defer releaseInstance(d)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d.logger.Info("tailray started", "pid", os.Getpid(), "tray", false)
	err := d.Run(ctx)
	d.logger.Info("tailray stopped")
	return err
}

// RunWithTray runs with the tray icon on the calling goroutine.
// systray.Run must occupy the main goroutine on macOS (Cocoa requirement).
func RunWithTray(d *Daemon) error {
	if err := claimInstance(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d.SetPresenter(tray.Presenter{})

	var started atomic.Bool
	runErr := make(chan error, 1)
	onStart := func() {
		started.Store(true)
		d.logger.Info("tailray started", "pid", os.Getpid(), "tray", true)
		go func() {
			err := d.Run(ctx)
			if err != nil {
				d.logger.Error("daemon stopped", "err", err)
			}
			runErr <- err
			tray.Quit()
		}()
	}

	onExit := func() {
		stop()
		releaseInstance(d)
		d.logger.Info("tailray stopped")
	}

	// Blocks until the tray exits.
	tray.Run(ctx, d, onStart, onExit)

	if !started.Load() {
		return nil
	}
	// Let the in-flight tick finish.
	return <-runErr
}
