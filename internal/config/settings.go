package config

import (
	"os"

	"github.com/watchfire-io/tailray/internal/models"
)

// AdminURLEnv overrides the admin console URL from settings.
const AdminURLEnv = "TAILRAY_ADMIN_URL"

// LoadSettings loads the global settings from ~/.tailray/settings.yaml.
// If the file doesn't exist, returns default settings. Missing keys take
// their default values.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	return LoadSettingsFile(path)
}

// LoadSettingsFile loads settings from an explicit path.
func LoadSettingsFile(path string) (*models.Settings, error) {
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}
	settings.ApplyDefaults()
	return settings, nil
}

// SaveSettings saves the global settings to ~/.tailray/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}

// AdminURL returns the admin console URL, preferring the environment.
func AdminURL(settings *models.Settings) string {
	if u := os.Getenv(AdminURLEnv); u != "" {
		return u
	}
	if settings == nil || settings.AdminURL == "" {
		return models.DefaultAdminURL
	}
	return settings.AdminURL
}
