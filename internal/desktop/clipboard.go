package desktop

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/atotto/clipboard"
)

// ErrNoIP is returned when asked to copy an empty address.
var ErrNoIP = errors.New("no peer IP")

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
	ReadAll() (string, error)
}

// SystemClipboard is the OS clipboard.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }
func (SystemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }

// CopyIP puts ip on the clipboard, reads it back, and announces it with a
// notification carrying body. host selects the "host" wording over "peer".
func CopyIP(cb Clipboard, n Notifier, ip, body string, host bool) error {
	if ip == "" {
		slog.Error("no peer IP to copy")
		return ErrNoIP
	}
	slog.Info("copying IP", "ip", ip)

	if err := cb.WriteAll(ip); err != nil {
		return fmt.Errorf("clipboard operation failed: %w", err)
	}
	copied, err := cb.ReadAll()
	if err != nil {
		return fmt.Errorf("clipboard operation failed: %w", err)
	}

	kind := "peer"
	if host {
		kind = "host"
	}
	summary := fmt.Sprintf("Copied %s IP address", kind)
	slog.Info(summary+" to the clipboard", "ip", copied)

	if err := n.Notify(summary, body, "tailscale"); err != nil {
		return fmt.Errorf("notification failed: %w", err)
	}
	return nil
}
