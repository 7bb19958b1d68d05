package tray

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/getlantern/systray"

	"github.com/watchfire-io/tailray/internal/daemon/link"
)

const maxPeerSlots = 32

// peerGroup is a submenu with pre-allocated peer slots. systray can't remove
// items, so slots are hidden and re-titled instead.
type peerGroup struct {
	parent *systray.MenuItem
	slots  [maxPeerSlots]*systray.MenuItem
	more   *systray.MenuItem
	empty  *systray.MenuItem

	mu      sync.RWMutex
	entries [maxPeerSlots]PeerEntry
}

var (
	ctrl    Controller
	baseCtx context.Context
	onStart func()
	onExit  func()
	logger  = slog.Default()

	connectItem    *systray.MenuItem
	disconnectItem *systray.MenuItem
	deviceItem     *systray.MenuItem
	exitNodeItem   *systray.MenuItem
	devicesItem    *systray.MenuItem
	myDevices      peerGroup
	services       peerGroup
	adminItem      *systray.MenuItem
	quitItem       *systray.MenuItem

	ready      atomic.Bool
	busy       atomic.Bool
	connected  atomic.Bool
	stateDirty = make(chan struct{}, 1)
	peersDirty = make(chan struct{}, 1)
	selfMu     sync.RWMutex
	selfRow    PeerEntry
)

// Run starts the system tray. This blocks the calling goroutine (must be main).
// onStartFn is called when the tray is ready (start polling here).
// onExitFn is called when the tray exits (cleanup here).
func Run(ctx context.Context, c Controller, onStartFn, onExitFn func()) {
	ctrl = c
	baseCtx = ctx
	logger = slog.With("component", "tray")
	onStart = onStartFn
	onExit = onExitFn
	systray.Run(onReady, onQuit)
}

// Quit signals the tray to exit.
func Quit() {
	systray.Quit()
}

// Presenter routes daemon updates to the tray.
type Presenter struct{}

// ConnectionChanged implements daemon.Presenter.
func (Presenter) ConnectionChanged(up bool) { SetConnected(up) }

// PeersChanged implements daemon.Presenter.
func (Presenter) PeersChanged() { Refresh() }

// SetConnected switches the icon, tooltip and Connect/Disconnect items to
// the given state. It never blocks.
func SetConnected(up bool) {
	connected.Store(up)
	signal(stateDirty)
}

// Refresh asks the tray to re-render the device rows from the controller's
// current snapshot. It never blocks.
func Refresh() {
	signal(peersDirty)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func onReady() {
	systray.SetTitle("Tailray")
	systray.SetTemplateIcon(iconOffline, iconOffline)
	systray.SetTooltip(formatTooltip(false))

	connectItem = systray.AddMenuItem("Connect", "Bring the Tailscale connection up")
	disconnectItem = systray.AddMenuItem("Disconnect", "Bring the Tailscale connection down")

	systray.AddSeparator()

	deviceItem = systray.AddMenuItem("This device: unknown", "Copy this device's IP address")
	exitNodeItem = systray.AddMenuItem("", "")
	exitNodeItem.Disable()
	exitNodeItem.Hide()

	devicesItem = systray.AddMenuItem("Network Devices", "")
	myDevices.build(devicesItem, "My Devices")
	services.build(devicesItem, "Tailscale Services")

	adminItem = systray.AddMenuItem("Admin Console", "Open the Tailscale admin console")

	systray.AddSeparator()

	quitItem = systray.AddMenuItem("Exit Tailray", "")

	handleClicks()
	ready.Store(true)
	go renderLoop()

	if onStart != nil {
		onStart()
	}
	signal(stateDirty)
	Refresh()
}

func onQuit() {
	if onExit != nil {
		onExit()
	}
}

func (g *peerGroup) build(parent *systray.MenuItem, title string) {
	g.parent = parent.AddSubMenuItem(title, "")
	for i := 0; i < maxPeerSlots; i++ {
		g.slots[i] = g.parent.AddSubMenuItem("", "Copy IP address")
		g.slots[i].Hide()
	}
	g.more = g.parent.AddSubMenuItem("", "")
	g.more.Disable()
	g.more.Hide()
	g.empty = g.parent.AddSubMenuItem("No devices", "")
	g.empty.Disable()
}

func (g *peerGroup) update(entries []PeerEntry) {
	g.mu.Lock()
	for i := range g.entries {
		g.entries[i] = PeerEntry{}
	}
	for i, e := range entries {
		if i >= maxPeerSlots {
			break
		}
		g.entries[i] = e
	}
	g.mu.Unlock()

	for i := 0; i < maxPeerSlots; i++ {
		if i < len(entries) {
			g.slots[i].SetTitle(entries[i].Label)
			g.slots[i].Show()
		} else {
			g.slots[i].Hide()
		}
	}

	if extra := len(entries) - maxPeerSlots; extra > 0 {
		g.more.SetTitle(fmt.Sprintf("%d more…", extra))
		g.more.Show()
	} else {
		g.more.Hide()
	}

	if len(entries) == 0 {
		g.empty.Show()
	} else {
		g.empty.Hide()
	}
}

func (g *peerGroup) entry(slot int) PeerEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.entries[slot]
}

// handleClicks starts one goroutine per clickable item. Handlers that run
// subprocesses do so off the systray event loop.
func handleClicks() {
	onClick(connectItem, func() { doLink(link.Up) })
	onClick(disconnectItem, func() { doLink(link.Down) })
	onClick(deviceItem, func() {
		selfMu.RLock()
		row := selfRow
		selfMu.RUnlock()
		copyIP(row, true)
	})
	onClick(adminItem, openAdminConsole)
	onClick(quitItem, func() {
		if ctrl != nil {
			ctrl.RequestShutdown()
		}
	})

	for _, g := range []*peerGroup{&myDevices, &services} {
		for i := 0; i < maxPeerSlots; i++ {
			g, slot := g, i
			onClick(g.slots[slot], func() { copyIP(g.entry(slot), false) })
		}
	}
}

func onClick(item *systray.MenuItem, fn func()) {
	go func() {
		for range item.ClickedCh {
			fn()
		}
	}()
}

func doLink(verb link.Verb) {
	if ctrl == nil || !busy.CompareAndSwap(false, true) {
		return
	}
	connectItem.Disable()
	disconnectItem.Disable()
	defer func() {
		busy.Store(false)
		signal(stateDirty)
	}()

	if err := ctrl.Link(baseCtx, verb); err != nil {
		var linkErr *link.LinkError
		if errors.As(err, &linkErr) {
			logger.Error("link command failed", "verb", verb, "action_id", linkErr.ActionID, "err", err)
			return
		}
		logger.Error("link command failed", "verb", verb, "err", err)
	}
}

func copyIP(row PeerEntry, host bool) {
	if ctrl == nil {
		return
	}
	if err := ctrl.CopyIP(row.IP, row.Title, host); err != nil {
		logger.Error("failed to copy ip", "host", host, "err", err)
	}
}

func openAdminConsole() {
	if ctrl == nil {
		return
	}
	url := ctrl.AdminURL()
	if err := OpenURL(baseCtx, url); err != nil {
		logger.Error("failed to open admin console", "url", url, "err", err)
	}
}

func renderLoop() {
	for {
		select {
		case <-stateDirty:
			renderState()
		case <-peersDirty:
			renderPeers()
		}
	}
}

// renderState shows the last reported connection state.
func renderState() {
	if !ready.Load() {
		return
	}
	up := connected.Load()
	systray.SetTemplateIcon(iconFor(up), iconFor(up))
	systray.SetTooltip(formatTooltip(up))

	if busy.Load() {
		connectItem.Disable()
		disconnectItem.Disable()
		return
	}
	setEnabled(connectItem, !up)
	setEnabled(disconnectItem, up)
}

func renderPeers() {
	if !ready.Load() || ctrl == nil {
		return
	}
	st, _ := ctrl.Current()
	m := BuildMenu(st, connected.Load())

	selfMu.Lock()
	selfRow = PeerEntry{IP: m.SelfIP, Title: m.ThisDevice}
	selfMu.Unlock()
	deviceItem.SetTitle(m.ThisDevice)

	if m.ExitNode != "" {
		exitNodeItem.SetTitle(m.ExitNode)
		exitNodeItem.Show()
	} else {
		exitNodeItem.Hide()
	}

	myDevices.update(m.MyDevices)
	services.update(m.Services)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}
