package tray

import (
	"fmt"

	"github.com/watchfire-io/tailray/internal/tailscale"
)

// BuildMenu derives the menu content from a snapshot. A nil snapshot renders
// the disconnected menu.
func BuildMenu(st *tailscale.Status, up bool) Menu {
	m := Menu{
		Online:            up,
		Tooltip:           formatTooltip(up),
		ConnectEnabled:    !up,
		DisconnectEnabled: up,
		ThisDevice:        "This device: unknown",
	}
	if st == nil {
		return m
	}

	if st.Self != nil {
		m.SelfIP = st.SelfIP()
		m.ThisDevice = fmt.Sprintf("This device: %s (%s)", st.Self.DisplayName, m.SelfIP)
	}

	if node, ok := st.ExitNode(); ok {
		state := "offline"
		if st.ExitNodeStatus.Online {
			state = "online"
		}
		m.ExitNode = fmt.Sprintf("Exit node: %s (%s)", node.DisplayName, state)
	}

	for _, peer := range st.SortedPeers() {
		addr, ok := peer.PrimaryIP()
		if !ok {
			continue
		}
		ip := addr.String()
		entry := PeerEntry{
			Label: fmt.Sprintf("%s\t(%s)", ip, peer.DisplayName),
			Title: fmt.Sprintf("%s (%s)", peer.DisplayName, ip),
			IP:    ip,
		}
		switch peer.DisplayName.Kind {
		case tailscale.ShortLabel:
			m.MyDevices = append(m.MyDevices, entry)
		case tailscale.SanitizedHostName:
			m.Services = append(m.Services, entry)
		}
	}
	return m
}

func formatTooltip(up bool) string {
	if up {
		return "Tailscale: Connected"
	}
	return "Tailscale: Disconnected"
}
