package tailscale

import "errors"

// Status fetch failures. Callers match them with errors.Is.
var (
	// ErrCommand means the tailscale process could not be started or its
	// output could not be read.
	ErrCommand = errors.New("tailscale command failed")

	// ErrDecode means the command output is not valid UTF-8.
	ErrDecode = errors.New("failed to decode tailscale command response")

	// ErrFetchFailed means tailscale ran but exited nonzero.
	ErrFetchFailed = errors.New("failed to fetch tailscale status")

	// ErrDeserialize means the output is well-formed text that doesn't match
	// the status schema.
	ErrDeserialize = errors.New("failed to parse tailscale status")
)
