package tailscale

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Command describes one external process invocation.
type Command struct {
	Path string
	Args []string
	// Combined captures stderr together with stdout.
	Combined bool
}

func (c Command) String() string {
	s := c.Path
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	Output   []byte
	ExitCode int
}

// Runner runs external processes. Run returns an error only when the process
// could not be started or waited on; a nonzero exit is reported in Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec, bounding each one by Timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if c.Combined {
		cmd.Stderr = &out
	}

	return runResult(c, out.Bytes(), cmd.Run(), ctx.Err())
}

// runResult maps the outcome of cmd.Run to a Result. A context error only
// counts when the process itself failed.
func runResult(c Command, out []byte, err, ctxErr error) (Result, error) {
	if err == nil {
		return Result{Output: out}, nil
	}
	if ctxErr != nil {
		return Result{}, fmt.Errorf("%s: %w", c, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return Result{Output: out, ExitCode: exitErr.ExitCode()}, nil
	}
	return Result{}, fmt.Errorf("%s: %w", c, err)
}
