package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/ternarybob/xmedia/internal/models"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig       `toml:"server"`
	Twitter  TwitterConfig      `toml:"twitter"`
	Timeouts TimeoutConfig      `toml:"timeouts"`
	Storage  StorageConfig      `toml:"storage"`
	Session  SessionProbeConfig `toml:"session"`
	Download DownloadConfig     `toml:"download"`
	Logging  LoggingConfig      `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gt=0,lte=65535"`
	Host string `toml:"host"`
}

// TwitterConfig carries the login credentials and optional proxy.
type TwitterConfig struct {
	Credentials models.Credentials `toml:"credentials"`
}

// Duration is a time.Duration that decodes from TOML strings such as
// "30s" or "500ms". go-toml cannot decode a TOML string into a bare
// time.Duration, so duration-valued settings use this type.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// TimeoutConfig holds the two bounds every blocking step runs under:
// Network for navigations, API calls and downloads; Interaction for
// UI-element waits and fills.
type TimeoutConfig struct {
	Network     Duration `toml:"network"`
	Interaction Duration `toml:"interaction"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// SessionProbeConfig controls the optional scheduled re-validation of the
// persisted session. Empty schedule disables the probe.
type SessionProbeConfig struct {
	ProbeSchedule string `toml:"probe_schedule"` // cron format, e.g. "0 0 */6 * * *"
	Key           string `toml:"key"`            // object-store key of the session blob
}

// DownloadConfig tunes the media downloader.
type DownloadConfig struct {
	UserAgent string   `toml:"user_agent"`
	Pace      Duration `toml:"pace"` // minimum spacing between item fetches
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability; only
// user-facing settings should be exposed in xmedia.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Timeouts: TimeoutConfig{
			Network:     Duration(30 * time.Second),
			Interaction: Duration(5 * time.Second),
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Session: SessionProbeConfig{
			ProbeSchedule: "", // disabled unless configured
			Key:           "session-data/x-session.json",
		},
		Download: DownloadConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Pace:      Duration(500 * time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 ->
// file2 -> ... -> env -> CLI flags. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// The names match the original container deployment (PORT, LOG_LEVEL,
// X_USERNAME, NETWORK_TIMEOUT in milliseconds, ...).
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Server.Host = host
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if username := os.Getenv("X_USERNAME"); username != "" {
		config.Twitter.Credentials.Username = username
	}
	if password := os.Getenv("X_PASSWORD"); password != "" {
		config.Twitter.Credentials.Password = password
	}
	if email := os.Getenv("X_EMAIL"); email != "" {
		config.Twitter.Credentials.Email = email
	}

	// Timeouts are plain millisecond values, not duration strings
	if network := os.Getenv("NETWORK_TIMEOUT"); network != "" {
		if ms, err := strconv.Atoi(network); err == nil && ms > 0 {
			config.Timeouts.Network = Duration(time.Duration(ms) * time.Millisecond)
		}
	}
	if interaction := os.Getenv("INTERACTION_TIMEOUT"); interaction != "" {
		if ms, err := strconv.Atoi(interaction); err == nil && ms > 0 {
			config.Timeouts.Interaction = Duration(time.Duration(ms) * time.Millisecond)
		}
	}

	if path := os.Getenv("XMEDIA_DATA_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if key := os.Getenv("XMEDIA_SESSION_KEY"); key != "" {
		config.Session.Key = key
	}
	if schedule := os.Getenv("XMEDIA_PROBE_SCHEDULE"); schedule != "" {
		config.Session.ProbeSchedule = schedule
	}

	// PROXY accepts host:port or user:pass@host:port
	if proxy := os.Getenv("PROXY"); proxy != "" {
		if parsed, err := models.ParseProxy(proxy); err == nil {
			config.Twitter.Credentials.Proxy = parsed
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority)
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port != 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
