// Package models contains shared data structures used across the application.
package models

import "time"

// DefaultAdminURL is the Tailscale admin console.
const DefaultAdminURL = "https://login.tailscale.com/admin/machines"

// ProviderConfig holds settings for invoking the tailscale CLI.
type ProviderConfig struct {
	Binary           string        `yaml:"binary"`            // "" = lookup "tailscale" in PATH
	EscalationHelper string        `yaml:"escalation_helper"` // run via PATH lookup, e.g. "pkexec"
	CommandTimeout   time.Duration `yaml:"command_timeout"`
}

// MonitorConfig holds status polling settings.
type MonitorConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
}

// NotificationsConfig holds desktop notification settings.
type NotificationsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
}

// Settings represents global application settings.
// This corresponds to ~/.tailray/settings.yaml.
type Settings struct {
	Version       int                 `yaml:"version"`
	Provider      ProviderConfig      `yaml:"provider"`
	Monitor       MonitorConfig       `yaml:"monitor"`
	Notifications NotificationsConfig `yaml:"notifications"`
	AdminURL      string              `yaml:"admin_url"`
	Log           LogConfig           `yaml:"log"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Provider: ProviderConfig{
			Binary:           "tailscale",
			EscalationHelper: "pkexec",
			CommandTimeout:   15 * time.Second,
		},
		Monitor: MonitorConfig{
			PollInterval: 5 * time.Second,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
		AdminURL: DefaultAdminURL,
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ApplyDefaults replaces empty or non-positive values with their defaults.
func (s *Settings) ApplyDefaults() {
	def := NewSettings()
	if s.Version == 0 {
		s.Version = def.Version
	}
	if s.Provider.Binary == "" {
		s.Provider.Binary = def.Provider.Binary
	}
	if s.Provider.EscalationHelper == "" {
		s.Provider.EscalationHelper = def.Provider.EscalationHelper
	}
	if s.Provider.CommandTimeout <= 0 {
		s.Provider.CommandTimeout = def.Provider.CommandTimeout
	}
	if s.Monitor.PollInterval <= 0 {
		s.Monitor.PollInterval = def.Monitor.PollInterval
	}
	if s.AdminURL == "" {
		s.AdminURL = def.AdminURL
	}
	if s.Log.Level == "" {
		s.Log.Level = def.Log.Level
	}
}
