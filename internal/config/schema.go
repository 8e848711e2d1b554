package config

// Config is the merged configuration of the arise CLI.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database" yaml:"database"`
	Session       SessionConfig       `mapstructure:"session" yaml:"session"`
	Time          TimeConfig          `mapstructure:"time" yaml:"time"`
	Notifications NotificationsConfig `mapstructure:"notifications" yaml:"notifications"`
	Log           LogConfig           `mapstructure:"log" yaml:"log"`
	Store         StoreConfig         `mapstructure:"store" yaml:"store"`
}

type DatabaseConfig struct {
	// Path of the SQLite file; empty means $ARISE_DB or ~/.arise.db.
	Path string `mapstructure:"path" yaml:"path"`
}

type SessionConfig struct {
	// UserID is the signed-in user. Empty disables every operation.
	UserID string `mapstructure:"user_id" yaml:"user_id"`
}

type TimeConfig struct {
	// Zone is an IANA name; "Local" uses the system zone.
	Zone string `mapstructure:"zone" yaml:"zone"`
}

type NotificationsConfig struct {
	TaskSummary     string `mapstructure:"task_summary" yaml:"task_summary"`
	JournalReminder string `mapstructure:"journal_reminder" yaml:"journal_reminder"`
}

type LogConfig struct {
	Mode  string `mapstructure:"mode" yaml:"mode"`
	Level string `mapstructure:"level" yaml:"level"`
}

type StoreConfig struct {
	RetryMaxTries uint `mapstructure:"retry_max_tries" yaml:"retry_max_tries"`
}
