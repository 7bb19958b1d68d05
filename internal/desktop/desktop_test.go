package desktop

import (
	"errors"
	"testing"
)

type memClipboard struct {
	text     string
	writeErr error
}

func (c *memClipboard) WriteAll(text string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.text = text
	return nil
}

func (c *memClipboard) ReadAll() (string, error) { return c.text, nil }

type notification struct {
	summary, body, icon string
}

type recordingNotifier struct {
	sent []notification
	err  error
}

func (r *recordingNotifier) Notify(summary, body, icon string) error {
	r.sent = append(r.sent, notification{summary, body, icon})
	return r.err
}

func TestCopyIP(t *testing.T) {
	tests := []struct {
		name          string
		ip            string
		host          bool
		writeErr      error
		notifyErr     error
		expectErr     bool
		expectSummary string
	}{
		{name: "peer", ip: "100.64.0.2", expectSummary: "Copied peer IP address"},
		{name: "host", ip: "100.64.0.1", host: true, expectSummary: "Copied host IP address"},
		{name: "empty ip", ip: "", expectErr: true},
		{name: "clipboard failure", ip: "100.64.0.2", writeErr: errors.New("no display"), expectErr: true},
		{name: "notification failure", ip: "100.64.0.2", notifyErr: errors.New("no dbus"), expectErr: true, expectSummary: "Copied peer IP address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := &memClipboard{writeErr: tt.writeErr}
			n := &recordingNotifier{err: tt.notifyErr}

			err := CopyIP(cb, n, tt.ip, "alice-phone (100.64.0.2)", tt.host)
			if (err != nil) != tt.expectErr {
				t.Fatalf("CopyIP() error = %v, expectErr %v", err, tt.expectErr)
			}

			if tt.expectSummary == "" {
				if len(n.sent) != 0 {
					t.Errorf("sent %d notifications, want none", len(n.sent))
				}
				return
			}
			if cb.text != tt.ip {
				t.Errorf("clipboard = %q, want %q", cb.text, tt.ip)
			}
			if len(n.sent) != 1 || n.sent[0].summary != tt.expectSummary {
				t.Errorf("notifications = %+v, want one with summary %q", n.sent, tt.expectSummary)
			}
		})
	}
}

func TestCopyIPEmptyReturnsErrNoIP(t *testing.T) {
	err := CopyIP(&memClipboard{}, &recordingNotifier{}, "", "", false)
	if !errors.Is(err, ErrNoIP) {
		t.Errorf("CopyIP(\"\") error = %v, want ErrNoIP", err)
	}
}

func TestDesktopNotifierMuted(t *testing.T) {
	n := NewNotifier(false)
	if err := n.Notify("summary", "body", "info"); err != nil {
		t.Errorf("muted Notify() error = %v, want nil", err)
	}
}
