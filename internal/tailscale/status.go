package tailscale

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/netip"
)

var statusRequiredFields = []string{
	"Version",
	"TUN",
	"BackendState",
	"Self",
	"MagicDNSSuffix",
	"CurrentTailnet",
	"Peer",
	"User",
}

// statusNullableFields may be null; the rest of the required fields may not.
var statusNullableFields = map[string]bool{"Peer": true, "User": true}

var machineRequiredFields = []string{"DNSName", "HostName", "TailscaleIPs"}

// Logged-out daemons report null addresses.
var machineNullableFields = map[string]bool{"TailscaleIPs": true}

type statusJSON struct {
	Version        string                     `json:"Version"`
	TUN            bool                       `json:"TUN"`
	BackendState   BackendState               `json:"BackendState"`
	Self           json.RawMessage            `json:"Self"`
	ExitNodeStatus *ExitNodeStatus            `json:"ExitNodeStatus"`
	MagicDNSSuffix string                     `json:"MagicDNSSuffix"`
	CurrentTailnet *TailnetInfo               `json:"CurrentTailnet"`
	Peer           map[string]json.RawMessage `json:"Peer"`
	User           map[string]User            `json:"User"`
}

type machineJSON struct {
	ID             string       `json:"ID"`
	DNSName        string       `json:"DNSName"`
	HostName       string       `json:"HostName"`
	OS             string       `json:"OS"`
	UserID         int64        `json:"UserID"`
	TailscaleIPs   []netip.Addr `json:"TailscaleIPs"`
	Online         bool         `json:"Online"`
	ExitNode       bool         `json:"ExitNode"`
	ExitNodeOption bool         `json:"ExitNodeOption"`
}

// ParseStatus decodes the output of `tailscale status --json` into a Status
// and resolves the display name of every machine against the tailnet's
// MagicDNS suffix. Schema violations are reported as ErrDeserialize.
func ParseStatus(data []byte) (*Status, error) {
	if err := requireFields(data, "status", statusRequiredFields, statusNullableFields); err != nil {
		return nil, err
	}

	var raw statusJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeserialize, err)
	}
	if raw.BackendState == "" {
		return nil, fmt.Errorf("%w: BackendState is empty", ErrDeserialize)
	}

	self, err := parseMachine(raw.Self, "Self")
	if err != nil {
		return nil, err
	}
	if raw.BackendState == Running && len(self.TailscaleIPs) == 0 {
		return nil, fmt.Errorf("%w: Self has no TailscaleIPs while Running", ErrDeserialize)
	}

	peers := make(map[string]*Machine, len(raw.Peer))
	for id, peerData := range raw.Peer {
		peer, err := parseMachine(peerData, "Peer["+id+"]")
		if err != nil {
			return nil, err
		}
		if len(peer.TailscaleIPs) == 0 {
			return nil, fmt.Errorf("%w: Peer[%s] has no TailscaleIPs", ErrDeserialize, id)
		}
		peers[id] = peer
	}

	users := raw.User
	if users == nil {
		users = map[string]User{}
	}

	suffix := raw.CurrentTailnet.MagicDNSSuffix
	self.DisplayName = ResolveDisplayName(self.DNSName, self.HostName, suffix)
	for _, peer := range peers {
		peer.DisplayName = ResolveDisplayName(peer.DNSName, peer.HostName, suffix)
	}

	return &Status{
		Version:        raw.Version,
		TUN:            raw.TUN,
		BackendState:   raw.BackendState,
		Self:           self,
		ExitNodeStatus: raw.ExitNodeStatus,
		MagicDNSSuffix: raw.MagicDNSSuffix,
		CurrentTailnet: *raw.CurrentTailnet,
		Peers:          peers,
		Users:          users,
	}, nil
}

func parseMachine(data json.RawMessage, where string) (*Machine, error) {
	if err := requireFields(data, where, machineRequiredFields, machineNullableFields); err != nil {
		return nil, err
	}

	var m machineJSON
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeserialize, where, err)
	}

	return &Machine{
		ID:             m.ID,
		DNSName:        m.DNSName,
		HostName:       m.HostName,
		OS:             m.OS,
		UserID:         m.UserID,
		TailscaleIPs:   m.TailscaleIPs,
		Online:         m.Online,
		ExitNode:       m.ExitNode,
		ExitNodeOption: m.ExitNodeOption,
	}, nil
}

// requireFields checks that data is a JSON object carrying every key, and
// that none of them is null unless listed in nullable.
func requireFields(data []byte, where string, keys []string, nullable map[string]bool) error {
	if len(bytes.TrimSpace(data)) == 0 || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: %s is missing", ErrDeserialize, where)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeserialize, where, err)
	}
	for _, key := range keys {
		value, ok := fields[key]
		if !ok {
			return fmt.Errorf("%w: %s: missing field %q", ErrDeserialize, where, key)
		}
		if !nullable[key] && bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
			return fmt.Errorf("%w: %s: field %q is null", ErrDeserialize, where, key)
		}
	}
	return nil
}
