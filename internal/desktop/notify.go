// Package desktop wraps the desktop side channels: notifications and the
// clipboard.
package desktop

import (
	"sync/atomic"

	"github.com/gen2brain/beeep"
)

// Notifier shows a desktop notification.
type Notifier interface {
	Notify(summary, body, icon string) error
}

// DesktopNotifier sends notifications through the platform notification
// service. It can be muted at runtime.
type DesktopNotifier struct {
	enabled atomic.Bool
}

// NewNotifier creates a DesktopNotifier.
func NewNotifier(enabled bool) *DesktopNotifier {
	n := &DesktopNotifier{}
	n.enabled.Store(enabled)
	return n
}

// SetEnabled mutes or unmutes notifications.
func (n *DesktopNotifier) SetEnabled(enabled bool) {
	n.enabled.Store(enabled)
}

// Notify implements Notifier. Muted notifiers drop the message.
func (n *DesktopNotifier) Notify(summary, body, icon string) error {
	if !n.enabled.Load() {
		return nil
	}
	return beeep.Notify(summary, body, icon)
}
