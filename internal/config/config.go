// Package config loads AIPJC settings from a YAML file and the environment.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the root application configuration.
type Config struct {
	DataDir    string           `yaml:"data_dir" env:"AIPJC_DATA_DIR"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Store      StoreConfig      `yaml:"store"`
	Insight    InsightConfig    `yaml:"insight"`
	Classifier ClassifierConfig `yaml:"classifier"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"AIPJC_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"AIPJC_LOG_FORMAT" env-default:"console"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"AIPJC_SERVER_HOST"             env-default:"127.0.0.1"`
	Port            int           `yaml:"port"             env:"AIPJC_SERVER_PORT"             env-default:"7438"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"AIPJC_SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"AIPJC_SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"AIPJC_SERVER_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type StoreConfig struct {
	MaxEntryLength int `yaml:"max_entry_length" env:"AIPJC_MAX_ENTRY_LENGTH" env-default:"100000"`
}

// InsightConfig tunes the analysis cycle.
type InsightConfig struct {
	StalenessWindow   time.Duration `yaml:"staleness_window"   env:"AIPJC_STALENESS_WINDOW"   env-default:"168h"`
	RecentWindow      int           `yaml:"recent_window"      env:"AIPJC_RECENT_WINDOW"      env-default:"10"`
	MinEntries        int           `yaml:"min_entries"        env:"AIPJC_MIN_ENTRIES"        env-default:"3"`
	ClassifierTimeout time.Duration `yaml:"classifier_timeout" env:"AIPJC_CLASSIFIER_TIMEOUT" env-default:"30s"`
	// ResurfacePolicy is keep_resolved or reactivate.
	ResurfacePolicy string `yaml:"resurface_policy" env:"AIPJC_RESURFACE_POLICY" env-default:"keep_resolved"`
	StyleMode       string `yaml:"style_mode"       env:"AIPJC_STYLE_MODE"       env-default:"auto"`
	UseRemote       bool   `yaml:"use_remote"       env:"AIPJC_USE_REMOTE"       env-default:"false"`
}

// ClassifierConfig selects and configures the topic classifier.
type ClassifierConfig struct {
	// Backend is "service" (an external /api/analyze endpoint) or "llm".
	Backend    string `yaml:"backend"     env:"AIPJC_CLASSIFIER_BACKEND" env-default:"service"`
	ServiceURL string `yaml:"service_url" env:"AIPJC_CLASSIFIER_URL"     env-default:"http://localhost:5001"`

	LocalBaseURL string `yaml:"local_base_url" env:"AIPJC_LOCAL_BASE_URL" env-default:"http://localhost:11434/v1"`
	LocalModel   string `yaml:"local_model"    env:"AIPJC_LOCAL_MODEL"    env-default:"llama3.1"`
	LocalAPIKey  string `yaml:"local_api_key"  env:"AIPJC_LOCAL_API_KEY"`

	// RemoteProvider is "anthropic" or "gemini".
	RemoteProvider string `yaml:"remote_provider" env:"AIPJC_REMOTE_PROVIDER" env-default:"anthropic"`
	RemoteModel    string `yaml:"remote_model"    env:"AIPJC_REMOTE_MODEL"`
	RemoteAPIKey   string `yaml:"remote_api_key"  env:"AIPJC_REMOTE_API_KEY"`
	MaxTokens      int    `yaml:"max_tokens"      env:"AIPJC_MAX_TOKENS"      env-default:"1024"`
}

// DefaultDataDir is ~/.aipjc.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".aipjc")
}
