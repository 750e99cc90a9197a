package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ilyakaznacheev/cleanenv"
)

// ConfigPathEnv names the env var that points at the YAML config file.
const ConfigPathEnv = "AIPJC_CONFIG"

// Load reads configuration from a YAML file and environment variables.
// Priority: ENV > YAML > defaults (via env-default tags).
//
// The file is path when non-empty, else $AIPJC_CONFIG, else config.yaml in
// the default data directory. An explicitly named file must exist; the
// fallback is optional.
func Load(path string) (*Config, error) {
	var cfg Config

	explicitPath := path != ""
	if !explicitPath {
		path = os.Getenv(ConfigPathEnv)
		explicitPath = path != ""
	}
	if !explicitPath {
		path = filepath.Join(DefaultDataDir(), "config.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}

	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration built from env-default tags and the
// environment, without reading any file.
func Default() *Config {
	var cfg Config
	// ReadEnv on an empty struct only fails on malformed defaults, which
	// would be a programming error caught by the tests.
	_ = cleanenv.ReadEnv(&cfg)
	cfg.DataDir = DefaultDataDir()
	return &cfg
}
