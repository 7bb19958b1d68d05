// Package link brings the Tailscale connection up or down, elevating
// privileges through a helper such as pkexec when required.
package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"os/user"
	"strings"

	"github.com/google/uuid"

	"github.com/watchfire-io/tailray/internal/desktop"
	"github.com/watchfire-io/tailray/internal/tailscale"
)

// DefaultHelper is the privilege escalation helper looked up on PATH.
const DefaultHelper = "pkexec"

// ErrHelperNotFound means the escalation helper is not on PATH.
var ErrHelperNotFound = errors.New("privilege escalation helper not found in PATH")

// Verb is a link state command understood by `tailscale`.
type Verb string

const (
	Up   Verb = "up"
	Down Verb = "down"
)

// Operator reports the user allowed to control tailscaled without root.
type Operator interface {
	OperatorUser(ctx context.Context) string
}

// Refresher re-reads the status outside the polling cadence.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// LinkError describes a failed link state command. ActionID matches the
// action_id attribute of the dispatcher's log lines for the same attempt.
type LinkError struct {
	ActionID string
	Verb     Verb
	Command  string
	ExitCode int
	Output   string
	Err      error
}

func (e *LinkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("link %s: %s: %v", e.Verb, e.Command, e.Err)
	}
	msg := fmt.Sprintf("link %s: %s: exit status %d", e.Verb, e.Command, e.ExitCode)
	if e.Output != "" {
		msg += ": " + e.Output
	}
	return msg
}

func (e *LinkError) Unwrap() error {
	return e.Err
}

// Options configures a Dispatcher.
type Options struct {
	Runner   tailscale.Runner
	Operator Operator
	// Refresher and Notifier are optional.
	Refresher Refresher
	Notifier  desktop.Notifier

	Provider string // tailscale binary, defaults to tailscale.DefaultBinary
	Helper   string // escalation helper name, defaults to DefaultHelper

	LookPath    func(file string) (string, error)
	CurrentUser func() (*user.User, error)
}

// Dispatcher runs link state commands.
type Dispatcher struct {
	runner      tailscale.Runner
	operator    Operator
	refresher   Refresher
	notifier    desktop.Notifier
	provider    string
	helper      string
	currentUser func() (*user.User, error)
	logger      *slog.Logger
}

// New creates a Dispatcher. It fails with ErrHelperNotFound when the
// escalation helper can't be resolved.
func New(opts Options) (*Dispatcher, error) {
	if opts.Provider == "" {
		opts.Provider = tailscale.DefaultBinary
	}
	if opts.Helper == "" {
		opts.Helper = DefaultHelper
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	if opts.CurrentUser == nil {
		opts.CurrentUser = user.Current
	}

	helper, err := opts.LookPath(opts.Helper)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrHelperNotFound, opts.Helper, err)
	}

	return &Dispatcher{
		runner:      opts.Runner,
		operator:    opts.Operator,
		refresher:   opts.Refresher,
		notifier:    opts.Notifier,
		provider:    opts.Provider,
		helper:      helper,
		currentUser: opts.CurrentUser,
		logger:      slog.With("component", "link"),
	}, nil
}

// ShouldElevate reports whether a link command needs the escalation helper.
// Root and the configured operator user run tailscale directly.
func ShouldElevate(current string, superuser bool, operator string) bool {
	if superuser {
		return false
	}
	return operator == "" || operator != current
}

// Up connects.
func (d *Dispatcher) Up(ctx context.Context) error {
	return d.Do(ctx, Up)
}

// Down disconnects.
func (d *Dispatcher) Down(ctx context.Context) error {
	return d.Do(ctx, Down)
}

// Do runs `tailscale <verb>`, through the helper when needed. On success it
// sends a notification and refreshes the status. A failure is returned as a
// *LinkError and leaves the status untouched.
func (d *Dispatcher) Do(ctx context.Context, verb Verb) error {
	id := uuid.NewString()
	if verb != Up && verb != Down {
		return &LinkError{ActionID: id, Verb: verb, Err: fmt.Errorf("unknown verb %q", verb)}
	}
	logger := d.logger.With("action_id", id, "verb", verb)

	cmd := tailscale.Command{Path: d.provider, Args: []string{string(verb)}, Combined: true}
	if d.shouldElevate(ctx) {
		logger.Info("elevating permissions", "helper", d.helper)
		cmd = tailscale.Command{Path: d.helper, Args: []string{d.provider, string(verb)}, Combined: true}
	}

	res, err := d.runner.Run(ctx, cmd)
	if err != nil {
		logger.Error("link command could not run", "err", err)
		return &LinkError{ActionID: id, Verb: verb, Command: cmd.String(), Err: err}
	}

	output := strings.TrimSpace(string(res.Output))
	logger.Info("link command finished", "exit_code", res.ExitCode, "output", output)
	if res.ExitCode != 0 {
		return &LinkError{ActionID: id, Verb: verb, Command: cmd.String(), ExitCode: res.ExitCode, Output: output}
	}

	if d.notifier != nil {
		state := "offline"
		if verb == Up {
			state = "online"
		}
		if err := d.notifier.Notify("Connection "+string(verb), "Tailscale service "+state, "info"); err != nil {
			logger.Warn("notification failed", "err", err)
		}
	}

	if d.refresher != nil {
		if err := d.refresher.Refresh(ctx); err != nil {
			logger.Warn("status refresh after link change failed", "err", err)
		}
	}
	return nil
}

func (d *Dispatcher) shouldElevate(ctx context.Context) bool {
	u, err := d.currentUser()
	if err != nil {
		d.logger.Warn("failed to look up current user", "err", err)
		return true
	}
	if u.Uid == "0" || u.Username == "root" {
		return false
	}

	var operator string
	if d.operator != nil {
		operator = d.operator.OperatorUser(ctx)
	}
	return ShouldElevate(u.Username, false, operator)
}
