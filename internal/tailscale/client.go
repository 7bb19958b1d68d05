package tailscale

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// DefaultBinary is the tailscale CLI looked up on PATH.
const DefaultBinary = "tailscale"

// Client queries the local daemon through the tailscale CLI.
type Client struct {
	runner Runner
	binary string
}

// NewClient creates a Client running binary through runner. An empty binary
// means DefaultBinary.
func NewClient(runner Runner, binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{runner: runner, binary: binary}
}

// Binary returns the tailscale executable the client invokes.
func (c *Client) Binary() string {
	return c.binary
}

// StatusJSON runs `tailscale status --json` and returns its stdout.
func (c *Client) StatusJSON(ctx context.Context) (string, error) {
	res, err := c.runner.Run(ctx, Command{Path: c.binary, Args: []string{"status", "--json"}})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCommand, err)
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("%w: exit status %d", ErrFetchFailed, res.ExitCode)
	}
	if !utf8.Valid(res.Output) {
		return "", ErrDecode
	}
	return string(res.Output), nil
}

// Status fetches and decodes a fresh status snapshot.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	raw, err := c.StatusJSON(ctx)
	if err != nil {
		return nil, err
	}
	return ParseStatus([]byte(raw))
}

// OperatorUser returns the OperatorUser preference, or "" when none is
// configured or the preferences can't be read.
func (c *Client) OperatorUser(ctx context.Context) string {
	res, err := c.runner.Run(ctx, Command{Path: c.binary, Args: []string{"debug", "prefs"}})
	if err != nil || res.ExitCode != 0 {
		return ""
	}

	var prefs struct {
		OperatorUser string `json:"OperatorUser"`
	}
	if err := json.Unmarshal(res.Output, &prefs); err != nil {
		slog.Warn("failed to parse tailscale prefs", "err", err)
		return ""
	}
	return prefs.OperatorUser
}
