// Package cli implements the tailray commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/watchfire-io/tailray/internal/config"
	"github.com/watchfire-io/tailray/internal/daemon"
	"github.com/watchfire-io/tailray/internal/logging"
	"github.com/watchfire-io/tailray/internal/models"
)

var (
	flagLogLevel string
	flagNoTray   bool

	// settings is loaded once per invocation by the root pre-run hook.
	settings *models.Settings
)

var rootCmd = &cobra.Command{
	Use:   "tailray",
	Short: "System tray indicator for Tailscale",
	Long: `Tailray shows the Tailscale connection state in the system tray.
It polls the local tailscale daemon, lists the devices of your tailnet, and
connects or disconnects on request, elevating through pkexec when needed.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadSettings,
	RunE:              runTray,
}

// Execute runs the CLI.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		p := newPrinter(os.Stderr)
		fmt.Fprintf(p.w, "%s %v\n", p.render(styleError, "Error:"), err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (default from settings)")
	rootCmd.Flags().BoolVar(&flagNoTray, "no-tray", false, "Run without a tray icon (for development)")

	// Add subcommands (alphabetical)
	rootCmd.AddCommand(downCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(upCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadSettings(cmd *cobra.Command, args []string) error {
	s, err := config.LoadSettings()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	settings = s

	level := settings.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	return logging.Configure(level)
}

func runTray(cmd *cobra.Command, args []string) error {
	d, err := daemon.New(settings, daemon.Options{})
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		d.PinLogLevel()
	}
	if flagNoTray {
		return daemon.RunForeground(d)
	}
	return daemon.RunWithTray(d)
}
