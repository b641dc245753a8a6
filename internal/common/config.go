package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Service     ServiceConfig   `toml:"service"`
	Generator   GeneratorConfig `toml:"generator"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// ServiceConfig controls the job scheduler behavior.
type ServiceConfig struct {
	OperateQueueInterval string `toml:"operate_queue_interval"` // e.g., "1s" - wait when the queue is empty
	MaxRetainTime        string `toml:"max_retain_time"`        // e.g., "5m" - how long terminal jobs and their images are retained
}

// GeneratorConfig controls the glyph renderer.
type GeneratorConfig struct {
	CharInterval string  `toml:"char_interval"` // e.g., "100ms" - pacing between rendered characters
	ImageSize    int     `toml:"image_size"`    // square canvas edge in pixels
	FontSize     float64 `toml:"font_size"`     // point size of the rendered glyph
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings are exposed in scribo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Service: ServiceConfig{
			OperateQueueInterval: "1s",
			MaxRetainTime:        "5m",
		},
		Generator: GeneratorConfig{
			CharInterval: "100ms",
			ImageSize:    256,
			FontSize:     192,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration by layering files over the defaults.
// Later files override earlier ones; environment variables apply last.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies SCRIBO_* environment variables on top of file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCRIBO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SCRIBO_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SCRIBO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SCRIBO_DATA_DIR"); v != "" {
		cfg.Storage.Badger.Path = v
	}
}

// ApplyFlagOverrides applies command-line flag values (highest priority).
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}

// Validate checks the configuration for invalid values. The scheduler
// intervals must be strictly positive: a zero interval would spin the
// queue-drain loop, and a zero retain time would delete jobs as they finish.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if _, err := parsePositiveDuration(c.Service.OperateQueueInterval); err != nil {
		return fmt.Errorf("service.operate_queue_interval: %w", err)
	}
	if _, err := parsePositiveDuration(c.Service.MaxRetainTime); err != nil {
		return fmt.Errorf("service.max_retain_time: %w", err)
	}
	if _, err := parsePositiveDuration(c.Generator.CharInterval); err != nil {
		return fmt.Errorf("generator.char_interval: %w", err)
	}
	if c.Generator.ImageSize <= 0 {
		return fmt.Errorf("generator.image_size must be positive, got %d", c.Generator.ImageSize)
	}
	if c.Generator.FontSize <= 0 {
		return fmt.Errorf("generator.font_size must be positive, got %v", c.Generator.FontSize)
	}

	return nil
}

func parsePositiveDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %q", value)
	}
	return d, nil
}

// QueueInterval returns the parsed operate_queue_interval. Validate must
// have accepted the config first; an unparsable value falls back to 1s.
func (c *ServiceConfig) QueueInterval() time.Duration {
	d, err := time.ParseDuration(c.OperateQueueInterval)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// RetainTime returns the parsed max_retain_time, falling back to 5m.
func (c *ServiceConfig) RetainTime() time.Duration {
	d, err := time.ParseDuration(c.MaxRetainTime)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// Interval returns the parsed char_interval, falling back to 100ms.
func (c *GeneratorConfig) Interval() time.Duration {
	d, err := time.ParseDuration(c.CharInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}
