package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultUserID is the local single-user session.
const DefaultUserID = "local"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{UserID: DefaultUserID},
		Time:    TimeConfig{Zone: "Local"},
		Notifications: NotificationsConfig{
			TaskSummary:     "18:00",
			JournalReminder: "21:00",
		},
		Log: LogConfig{
			Mode:  "production",
			Level: "warn",
		},
		Store: StoreConfig{RetryMaxTries: 4},
	}
}

const defaultHeader = `# Arise configuration
# Values here are overridden by ./.arise/config.yaml, ARISE_* environment
# variables (e.g. ARISE_SESSION_USER_ID) and command line flags.
`

// WriteDefault writes cfg as YAML to path, creating parent directories.
// An existing file is left alone unless force is set.
func WriteDefault(path string, cfg *Config, force bool) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, append([]byte(defaultHeader), data...), 0o644)
}
