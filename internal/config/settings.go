package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SettingsFile is the name of the user-settings file inside the data dir.
const SettingsFile = "settings.yaml"

// Settings are the preferences the user changes from inside the app. They
// live next to the database rather than in config.yaml so the app never
// rewrites a hand-edited config file.
type Settings struct {
	StyleMode string `yaml:"style_mode"`
	UseRemote bool   `yaml:"use_remote"`
}

// SettingsPath returns where Settings are stored for a data directory.
func SettingsPath(dataDir string) string {
	return filepath.Join(dataDir, SettingsFile)
}

// ApplySettings overlays the saved settings in cfg.DataDir, if any, onto
// cfg.Insight. A missing file is not an error.
func ApplySettings(cfg *Config) error {
	data, err := os.ReadFile(SettingsPath(cfg.DataDir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("config: read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("config: parse settings: %w", err)
	}
	if s.StyleMode != "" {
		if err := oneOf("style_mode", s.StyleMode, styleModes); err != nil {
			return fmt.Errorf("config: settings: %w", err)
		}
		cfg.Insight.StyleMode = s.StyleMode
	}
	cfg.Insight.UseRemote = s.UseRemote
	return nil
}

// SaveSettings writes s to dataDir, replacing any previous settings.
func SaveSettings(dataDir string, s Settings) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("config: create data dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("config: marshal settings: %w", err)
	}
	if err := os.WriteFile(SettingsPath(dataDir), data, 0644); err != nil {
		return fmt.Errorf("config: write settings: %w", err)
	}
	return nil
}
