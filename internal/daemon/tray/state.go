// Package tray implements the system tray icon and menu.
package tray

import (
	"context"

	"github.com/watchfire-io/tailray/internal/daemon/link"
	"github.com/watchfire-io/tailray/internal/tailscale"
)

// Controller provides the daemon operations driven from the tray menu.
type Controller interface {
	Current() (*tailscale.Status, bool)
	Link(ctx context.Context, verb link.Verb) error
	CopyIP(ip, body string, host bool) error
	AdminURL() string
	RequestShutdown()
}

// PeerEntry is one peer row in the Network Devices submenu.
type PeerEntry struct {
	Label string // "<ip>\t(<name>)"
	Title string // "<name> (<ip>)", used as notification body
	IP    string
}

// Menu is the tray content derived from a status snapshot.
type Menu struct {
	Online            bool
	Tooltip           string
	ConnectEnabled    bool
	DisconnectEnabled bool
	ThisDevice        string
	SelfIP            string
	ExitNode          string // empty when no exit node is in use
	MyDevices         []PeerEntry
	Services          []PeerEntry
}
