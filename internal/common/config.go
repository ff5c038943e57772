package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	AI          AIConfig        `toml:"ai"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Queue       QueueConfig     `toml:"queue"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=0,max=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	Images string `toml:"images"` // Directory for fetched image assets
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
}

// AIConfig contains the generation provider configuration. The provider is
// any OpenAI-compatible HTTPS endpoint; model request shaping comes from the
// model registry, not from per-call-site switches.
type AIConfig struct {
	BaseURL    string `toml:"base_url" validate:"omitempty,url"` // Provider API base URL
	APIKey     string `toml:"api_key"`                           // Bearer token (or SCRIBE_AI_API_KEY)
	Model      string `toml:"model"`                             // Default text model
	ImageModel string `toml:"image_model"`                       // Default image model
	MaxTokens  int    `toml:"max_tokens"`                        // Default completion token limit
	Timeout    string `toml:"timeout"`                           // Per-request timeout as duration string
	MaxRetries int    `toml:"max_retries" validate:"min=1,max=10"`
	RateLimit  string `toml:"rate_limit"` // Minimum interval between requests
}

// PipelineConfig contains generation pipeline tunables.
type PipelineConfig struct {
	JobTTL            string `toml:"job_ttl"`            // Job state time-to-live as duration string
	HumanizeThreshold int    `toml:"humanize_threshold"` // Humanize level below which the step is skipped
}

// QueueConfig contains topic queue tunables.
type QueueConfig struct {
	StalenessWindow string `toml:"staleness_window"` // Age past which a processing claim is reclaimed
	MaxAttempts     int    `toml:"max_attempts" validate:"min=1,max=10"`
}

// SchedulerConfig contains scheduler mechanics. The schedule itself
// (frequency, time-of-day, enabled) lives in settings so it can change at
// runtime; these are the fixed windows around it.
type SchedulerConfig struct {
	CooldownWindow    string `toml:"cooldown_window"`     // Post-settings-change cooldown
	TimeTolerance     string `toml:"time_tolerance"`      // Window around configured time-of-day
	MissedRunGrace    string `toml:"missed_run_grace"`    // Grace window for missed-trigger recovery
	GenerationLockTTL string `toml:"generation_lock_ttl"` // Durable generation lock expiry
	PlanningLockTTL   string `toml:"planning_lock_ttl"`   // Next-trigger planning lock expiry
}

// NewDefaultConfig creates a configuration with default values.
// Only user-facing settings should be exposed in scribe.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Filesystem: FilesystemConfig{
				Images: "./data/images",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		AI: AIConfig{
			BaseURL:    "https://api.openai.com/v1",
			APIKey:     "", // User must provide API key (SCRIBE_AI_API_KEY or config)
			Model:      "gpt-4o-mini",
			ImageModel: "dall-e-3",
			MaxTokens:  4096,
			Timeout:    DefaultRequestTimeout.String(),
			MaxRetries: DefaultMaxRetries,
			RateLimit:  "1s",
		},
		Pipeline: PipelineConfig{
			JobTTL:            DefaultJobTTL.String(),
			HumanizeThreshold: 3,
		},
		Queue: QueueConfig{
			StalenessWindow: DefaultStalenessWindow.String(),
			MaxAttempts:     DefaultTopicMaxAttempts,
		},
		Scheduler: SchedulerConfig{
			CooldownWindow:    DefaultCooldownWindow.String(),
			TimeTolerance:     DefaultTimeTolerance.String(),
			MissedRunGrace:    DefaultMissedRunGrace.String(),
			GenerationLockTTL: DefaultGenerationLockTTL.String(),
			PlanningLockTTL:   DefaultPlanningLockTTL.String(),
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files; later files
// override earlier files, environment variables override all files.
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

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SCRIBE_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("SCRIBE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SCRIBE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if path := os.Getenv("SCRIBE_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}

	if level := os.Getenv("SCRIBE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if key := os.Getenv("SCRIBE_AI_API_KEY"); key != "" {
		config.AI.APIKey = key
	}
	if url := os.Getenv("SCRIBE_AI_BASE_URL"); url != "" {
		config.AI.BaseURL = url
	}
	if model := os.Getenv("SCRIBE_AI_MODEL"); model != "" {
		config.AI.Model = model
	}
}

// ParseDuration parses a config duration string, falling back to the given
// default when the value is empty or malformed.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
