// Package tailscale models the status report of the local Tailscale daemon
// and runs the tailscale CLI to obtain it.
package tailscale

import (
	"fmt"
	"net/netip"
	"sort"
)

// BackendState is the connectivity lifecycle phase reported by tailscaled.
type BackendState string

const (
	NoState          BackendState = "NoState"
	NeedsLogin       BackendState = "NeedsLogin"
	NeedsMachineAuth BackendState = "NeedsMachineAuth"
	Stopped          BackendState = "Stopped"
	Starting         BackendState = "Starting"
	Running          BackendState = "Running"
)

// UnmarshalText rejects states outside the known set.
func (s *BackendState) UnmarshalText(text []byte) error {
	switch v := BackendState(text); v {
	case NoState, NeedsLogin, NeedsMachineAuth, Stopped, Starting, Running:
		*s = v
		return nil
	default:
		return fmt.Errorf("unknown backend state %q", string(text))
	}
}

// DisplayNameKind tells which rule produced a DisplayName.
type DisplayNameKind int

const (
	// ShortLabel is the DNS name with the tailnet suffix trimmed.
	ShortLabel DisplayNameKind = iota + 1
	// SanitizedHostName is the OS host name made DNS-safe. Used when the
	// DNS name trims down to nothing.
	SanitizedHostName
)

func (k DisplayNameKind) String() string {
	switch k {
	case ShortLabel:
		return "short_label"
	case SanitizedHostName:
		return "sanitized_host_name"
	default:
		return "unresolved"
	}
}

// MarshalText encodes the kind by name.
func (k DisplayNameKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// DisplayName is the human readable label of a machine. The zero value is
// unresolved and never leaves ParseStatus.
type DisplayName struct {
	Kind  DisplayNameKind
	Value string
}

func (d DisplayName) String() string {
	return d.Value
}

// Resolved reports whether the name was derived by ResolveDisplayName.
func (d DisplayName) Resolved() bool {
	return d.Kind != 0
}

// TailnetInfo describes the tailnet this machine belongs to.
type TailnetInfo struct {
	Name            string `json:"Name"`
	MagicDNSSuffix  string `json:"MagicDNSSuffix"`
	MagicDNSEnabled bool   `json:"MagicDNSEnabled"`
}

// User is a tailnet user as listed in the status report.
type User struct {
	ID            int64    `json:"ID"`
	LoginName     string   `json:"LoginName"`
	DisplayName   string   `json:"DisplayName"`
	ProfilePicURL string   `json:"ProfilePicURL"`
	Roles         []string `json:"Roles"`
}

// ExitNodeStatus describes the exit node currently in use.
type ExitNodeStatus struct {
	ID           string   `json:"ID"`
	Online       bool     `json:"Online"`
	TailscaleIPs []string `json:"TailscaleIPs"`
}

// Machine is a node of the tailnet, either this device or a peer.
type Machine struct {
	ID             string
	DNSName        string
	HostName       string
	OS             string
	UserID         int64
	TailscaleIPs   []netip.Addr
	Online         bool
	ExitNode       bool
	ExitNodeOption bool
	DisplayName    DisplayName
}

// PrimaryIP returns the first Tailscale address of the machine.
func (m *Machine) PrimaryIP() (netip.Addr, bool) {
	if len(m.TailscaleIPs) == 0 {
		return netip.Addr{}, false
	}
	return m.TailscaleIPs[0], true
}

// Status is an immutable snapshot of `tailscale status --json`.
type Status struct {
	Version        string
	TUN            bool
	BackendState   BackendState
	Self           *Machine
	ExitNodeStatus *ExitNodeStatus
	MagicDNSSuffix string
	CurrentTailnet TailnetInfo
	Peers          map[string]*Machine
	Users          map[string]User
}

// IsUp reports whether the backend is Running.
func (s *Status) IsUp() bool {
	return s.BackendState == Running
}

// SelfIP returns the primary address of this machine as a string, or ""
// when the daemon reports none.
func (s *Status) SelfIP() string {
	if ip, ok := s.Self.PrimaryIP(); ok {
		return ip.String()
	}
	return ""
}

// SortedPeers returns the peers ordered by display name, then ID.
func (s *Status) SortedPeers() []*Machine {
	peers := make([]*Machine, 0, len(s.Peers))
	for _, p := range s.Peers {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool {
		if peers[i].DisplayName.Value != peers[j].DisplayName.Value {
			return peers[i].DisplayName.Value < peers[j].DisplayName.Value
		}
		return peers[i].ID < peers[j].ID
	})
	return peers
}

// ExitNode returns the peer currently used as exit node, if any.
func (s *Status) ExitNode() (*Machine, bool) {
	if s.ExitNodeStatus == nil {
		return nil, false
	}
	for _, p := range s.Peers {
		if p.ID == s.ExitNodeStatus.ID {
			return p, true
		}
	}
	for _, p := range s.Peers {
		if p.ExitNode {
			return p, true
		}
	}
	return nil, false
}

// Owner returns the user that owns m, if listed.
func (s *Status) Owner(m *Machine) (User, bool) {
	u, ok := s.Users[fmt.Sprint(m.UserID)]
	return u, ok
}
