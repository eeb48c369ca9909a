// Package config loads and validates the Switchboard configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration object. It is loaded once at startup and
// passed by reference; nothing mutates it afterwards.
type Config struct {
	Telegram  Telegram        `yaml:"telegram"`
	Storage   Storage         `yaml:"storage"`
	Session   Session         `yaml:"session"`
	Log       Log             `yaml:"log"`
	Operators []OperatorEntry `yaml:"operators"`
}

// Telegram configures the relay adapter.
type Telegram struct {
	// Token is the bot token from @BotFather (required).
	Token string `yaml:"token"`

	// RateLimit is outbound sends per second.
	RateLimit float64 `yaml:"rate_limit"`

	// RateBurst is the burst capacity for outbound sends.
	RateBurst int `yaml:"rate_burst"`
}

// Storage configures the session store.
type Storage struct {
	// Path is the SQLite database file. ":memory:" keeps everything
	// in-process, useful for local runs.
	Path string `yaml:"path"`
}

// Session configures lifecycle policy.
type Session struct {
	// IdleTimeout is how long a session may sit without traffic before the
	// sweeper closes it.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// SweepInterval is how often the idle sweep runs.
	SweepInterval Duration `yaml:"sweep_interval"`

	// ReplyPrefixLen bounds the replied-to text prefix used for reply
	// correlation, in runes.
	ReplyPrefixLen int `yaml:"reply_prefix_len"`
}

// Log configures the process logger.
type Log struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
}

// OperatorEntry is one configured operator. ID stays a string here so a
// malformed entry can be skipped with a warning instead of failing the
// whole directory load.
type OperatorEntry struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

// Duration wraps time.Duration so YAML values can be written as "30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Load reads the configuration file at path, expanding environment
// variables before parsing, and applies defaults.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes configuration bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required fields and applies defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token is required")
	}

	if len(c.Operators) == 0 {
		return fmt.Errorf("at least one operator is required")
	}

	if c.Telegram.RateLimit == 0 {
		c.Telegram.RateLimit = 30 // Telegram's limit is ~30 messages per second
	}
	if c.Telegram.RateBurst == 0 {
		c.Telegram.RateBurst = 20
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "switchboard.db"
	}

	if c.Session.IdleTimeout == 0 {
		c.Session.IdleTimeout = Duration(30 * time.Minute)
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = Duration(5 * time.Minute)
	}
	if c.Session.ReplyPrefixLen == 0 {
		c.Session.ReplyPrefixLen = 50
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	return nil
}

// LogLevel maps the configured level string to a slog level name understood
// by the bootstrap. Unknown values fall back to info.
func (c *Config) LogLevel() string {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "error":
		return strings.ToLower(strings.TrimSpace(c.Log.Level))
	default:
		return "info"
	}
}
