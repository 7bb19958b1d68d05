package tray

import (
	"bytes"
	"context"
	"image/png"
	"net/netip"
	"testing"

	"github.com/watchfire-io/tailray/internal/tailscale"
)

func machine(id, name string, kind tailscale.DisplayNameKind, ips ...string) *tailscale.Machine {
	m := &tailscale.Machine{ID: id, DisplayName: tailscale.DisplayName{Kind: kind, Value: name}}
	for _, ip := range ips {
		m.TailscaleIPs = append(m.TailscaleIPs, netip.MustParseAddr(ip))
	}
	return m
}

func sampleStatus() *tailscale.Status {
	return &tailscale.Status{
		BackendState: tailscale.Running,
		Self:         machine("self", "laptop", tailscale.ShortLabel, "100.64.0.1", "fd7a::1"),
		ExitNodeStatus: &tailscale.ExitNodeStatus{
			ID:     "n2",
			Online: true,
		},
		Peers: map[string]*tailscale.Machine{
			"k1": machine("n1", "phone", tailscale.ShortLabel, "100.64.0.3"),
			"k2": machine("n2", "exit", tailscale.ShortLabel, "100.64.0.2"),
			"k3": machine("n3", "funnel-svc", tailscale.SanitizedHostName, "100.64.0.9"),
			"k4": machine("n4", "no-ip", tailscale.ShortLabel),
		},
	}
}

func TestBuildMenu(t *testing.T) {
	m := BuildMenu(sampleStatus(), true)

	if !m.Online || m.Tooltip != "Tailscale: Connected" {
		t.Errorf("Online, Tooltip = %v, %q; want true, connected", m.Online, m.Tooltip)
	}
	if m.ConnectEnabled || !m.DisconnectEnabled {
		t.Errorf("Connect/Disconnect enabled = %v/%v, want false/true", m.ConnectEnabled, m.DisconnectEnabled)
	}
	if m.ThisDevice != "This device: laptop (100.64.0.1)" || m.SelfIP != "100.64.0.1" {
		t.Errorf("ThisDevice = %q, SelfIP = %q", m.ThisDevice, m.SelfIP)
	}
	if m.ExitNode != "Exit node: exit (online)" {
		t.Errorf("ExitNode = %q", m.ExitNode)
	}

	wantMine := []PeerEntry{
		{Label: "100.64.0.2\t(exit)", Title: "exit (100.64.0.2)", IP: "100.64.0.2"},
		{Label: "100.64.0.3\t(phone)", Title: "phone (100.64.0.3)", IP: "100.64.0.3"},
	}
	if len(m.MyDevices) != len(wantMine) {
		t.Fatalf("MyDevices = %+v, want %+v", m.MyDevices, wantMine)
	}
	for i := range wantMine {
		if m.MyDevices[i] != wantMine[i] {
			t.Errorf("MyDevices[%d] = %+v, want %+v", i, m.MyDevices[i], wantMine[i])
		}
	}
	if len(m.Services) != 1 || m.Services[0].IP != "100.64.0.9" {
		t.Errorf("Services = %+v, want funnel-svc only", m.Services)
	}
}

func TestBuildMenuDisconnected(t *testing.T) {
	tests := []struct {
		name   string
		status *tailscale.Status
	}{
		{name: "no snapshot"},
		{name: "stopped", status: &tailscale.Status{BackendState: tailscale.Stopped, Self: machine("self", "laptop", tailscale.ShortLabel)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := BuildMenu(tt.status, false)
			if m.Online || m.Tooltip != "Tailscale: Disconnected" {
				t.Errorf("Online, Tooltip = %v, %q", m.Online, m.Tooltip)
			}
			if !m.ConnectEnabled || m.DisconnectEnabled {
				t.Errorf("Connect/Disconnect enabled = %v/%v, want true/false", m.ConnectEnabled, m.DisconnectEnabled)
			}
			if m.ExitNode != "" || len(m.MyDevices) != 0 || len(m.Services) != 0 {
				t.Errorf("unexpected content: %+v", m)
			}
		})
	}
}

func TestIcons(t *testing.T) {
	for _, data := range [][]byte{iconOnline, iconOffline} {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("png.Decode() error = %v", err)
		}
		if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
			t.Errorf("icon size = %v, want %dx%d", b, iconSize, iconSize)
		}
	}
	if bytes.Equal(iconOnline, iconOffline) {
		t.Error("online and offline icons are identical")
	}
	if !bytes.Equal(iconFor(true), iconOnline) || !bytes.Equal(iconFor(false), iconOffline) {
		t.Error("iconFor() picked the wrong icon")
	}
}

func TestOpener(t *testing.T) {
	tests := []struct {
		goos     string
		expected string
	}{
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
		{"darwin", "open"},
		{"windows", "rundll32"},
	}
	for _, tt := range tests {
		if got, _ := opener(tt.goos); got != tt.expected {
			t.Errorf("opener(%q) = %q, want %q", tt.goos, got, tt.expected)
		}
	}
}

func TestOpenURLRejectsNonHTTP(t *testing.T) {
	if err := OpenURL(context.Background(), "file:///etc/passwd"); err == nil {
		t.Error("OpenURL(file://) error = nil, want error")
	}
}

func TestPresenterQueuesRenders(t *testing.T) {
	drain := func(ch chan struct{}) bool {
		select {
		case <-ch:
			return true
		default:
			return false
		}
	}
	drain(stateDirty)
	drain(peersDirty)
	t.Cleanup(func() { connected.Store(false) })

	var p Presenter
	p.ConnectionChanged(true)
	p.ConnectionChanged(true)
	if !connected.Load() {
		t.Error("connected = false after ConnectionChanged(true)")
	}
	if !drain(stateDirty) {
		t.Error("ConnectionChanged did not queue a state render")
	}
	if drain(stateDirty) {
		t.Error("state renders were not coalesced")
	}
	if drain(peersDirty) {
		t.Error("ConnectionChanged queued a peer render")
	}

	p.PeersChanged()
	if !drain(peersDirty) {
		t.Error("PeersChanged did not queue a peer render")
	}
	if drain(stateDirty) {
		t.Error("PeersChanged queued a state render")
	}
}
