package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/tailray/internal/config"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running tray",
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	p := newPrinter(cmd.OutOrStdout())

	running, info, err := config.IsInstanceRunning()
	if err != nil {
		return fmt.Errorf("failed to check instance status: %w", err)
	}
	if !running || info == nil {
		fmt.Fprintln(p.w, p.render(styleHint, "Tailray is not running."))
		return nil
	}

	process, err := os.FindProcess(info.PID)
	if err != nil {
		return fmt.Errorf("failed to find tailray process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send stop signal: %w", err)
	}

	// Poll for shutdown (max 5 seconds)
	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		stillRunning, _, err := config.IsInstanceRunning()
		if err == nil && !stillRunning {
			fmt.Fprintf(p.w, "%s Tailray stopped (PID %d, up %s).\n", p.render(styleSuccess, "✓"), info.PID, time.Since(info.StartedAt).Truncate(time.Second))
			return nil
		}
	}

	return fmt.Errorf("tailray did not stop within timeout")
}
