package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/watchfire-io/tailray/internal/config"
	"github.com/watchfire-io/tailray/internal/models"
)

var flagSettingsForce bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the effective settings",
	Long: `Show the settings file path and the settings in effect.

Changes to settings.yaml are picked up by a running tray: poll interval,
admin console URL, notifications and log level apply immediately.`,
	RunE: runSettings,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings file",
	RunE:  runSettingsInit,
}

func init() {
	settingsInitCmd.Flags().BoolVar(&flagSettingsForce, "force", false, "Overwrite an existing settings file")
	settingsCmd.AddCommand(settingsInitCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	path, err := config.GlobalSettingsFile()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	p := newPrinter(cmd.OutOrStdout())
	source := "defaults"
	if config.FileExists(path) {
		source = "file"
	}
	fmt.Fprintf(p.w, "%s %s %s\n", p.render(styleLabel, "Settings:"), p.render(styleValue, path), p.render(styleHint, "("+source+")"))
	fmt.Fprintf(p.w, "%s %s\n\n", p.render(styleLabel, "Admin URL:"), p.render(styleValue, config.AdminURL(settings)))
	fmt.Fprint(p.w, string(data))
	return nil
}

func runSettingsInit(cmd *cobra.Command, args []string) error {
	path, err := config.GlobalSettingsFile()
	if err != nil {
		return err
	}

	p := newPrinter(cmd.OutOrStdout())
	if config.FileExists(path) && !flagSettingsForce {
		fmt.Fprintf(p.w, "%s %s\n", p.render(styleWarning, "!"), "Settings file already exists: "+path)
		fmt.Fprintf(p.w, "  %s\n", p.render(styleHint, "Use --force to overwrite it."))
		return nil
	}

	if err := config.SaveSettings(models.NewSettings()); err != nil {
		return err
	}
	fmt.Fprintf(p.w, "%s %s\n", p.render(styleSuccess, "✓"), "Wrote "+path)
	return nil
}
