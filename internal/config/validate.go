package config

import (
	"fmt"
	"slices"
	"strings"
)

var (
	logLevels       = []string{"debug", "info", "warn", "error"}
	logFormats      = []string{"console", "json"}
	styleModes      = []string{"auto", "reframing", "emotional_exploration", "action_oriented"}
	resurfacePolicy = []string{"keep_resolved", "reactivate"}
	classifierKinds = []string{"service", "llm"}
	remoteProviders = []string{"anthropic", "gemini"}
)

// Validate performs rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if err := oneOf("log.level", strings.ToLower(c.Log.Level), logLevels); err != nil {
		return err
	}
	if err := oneOf("log.format", c.Log.Format, logFormats); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range (got %d)", c.Server.Port)
	}
	if c.Store.MaxEntryLength < 0 {
		return fmt.Errorf("store.max_entry_length must be >= 0 (got %d)", c.Store.MaxEntryLength)
	}
	if err := c.Insight.validate(); err != nil {
		return fmt.Errorf("insight: %w", err)
	}
	if err := c.Classifier.validate(); err != nil {
		return fmt.Errorf("classifier: %w", err)
	}
	return nil
}

func (i *InsightConfig) validate() error {
	if i.StalenessWindow <= 0 {
		return fmt.Errorf("staleness_window must be > 0 (got %s)", i.StalenessWindow)
	}
	if i.RecentWindow <= 0 {
		return fmt.Errorf("recent_window must be > 0 (got %d)", i.RecentWindow)
	}
	if i.MinEntries <= 0 {
		return fmt.Errorf("min_entries must be > 0 (got %d)", i.MinEntries)
	}
	if i.ClassifierTimeout <= 0 {
		return fmt.Errorf("classifier_timeout must be > 0 (got %s)", i.ClassifierTimeout)
	}
	if err := oneOf("resurface_policy", i.ResurfacePolicy, resurfacePolicy); err != nil {
		return err
	}
	return oneOf("style_mode", i.StyleMode, styleModes)
}

func (c *ClassifierConfig) validate() error {
	if err := oneOf("backend", c.Backend, classifierKinds); err != nil {
		return err
	}
	if c.Backend == "service" && c.ServiceURL == "" {
		return fmt.Errorf("service_url is required for the service backend")
	}
	if c.Backend == "llm" && c.LocalBaseURL == "" {
		return fmt.Errorf("local_base_url is required for the llm backend")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be > 0 (got %d)", c.MaxTokens)
	}
	return oneOf("remote_provider", c.RemoteProvider, remoteProviders)
}

func oneOf(field, value string, allowed []string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of %s (got %q)", field, strings.Join(allowed, ", "), value)
}
