package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// opener returns the command that hands a URL to the desktop.
func opener(goos string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		return "xdg-open", nil
	}
}

// OpenURL opens url in the user's browser.
func OpenURL(ctx context.Context, url string) error {
	if !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "http://") {
		return fmt.Errorf("refusing to open non-http url %q", url)
	}
	name, args := opener(runtime.GOOS)
	cmd := exec.CommandContext(ctx, name, append(args, url)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	// The opener usually forks the browser and exits; reap it in the background.
	go func() { _ = cmd.Wait() }()
	return nil
}
