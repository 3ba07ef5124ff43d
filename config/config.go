// Package config loads assetflowd configuration from an optional YAML file,
// an optional .env file and ASSETFLOW_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/assetflow/artifact/redis"
	"github.com/hupe1980/assetflow/telemetry"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ASSETFLOW_"

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Log           LogConfig          `yaml:"log"`
	Model         ModelConfig        `yaml:"model"`
	Chat          ChatConfig         `yaml:"chat"`
	Engine        EngineConfig       `yaml:"engine"`
	Repository    RepositoryConfig   `yaml:"repository"`
	Mailbox       MailboxConfig      `yaml:"mailbox"`
	Notifications NotificationConfig `yaml:"notifications"`
	Telemetry     telemetry.Config   `yaml:"telemetry"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // json or text
	AddSource bool   `yaml:"add_source"`
}

// ModelConfig selects the language model behind the chat service.
type ModelConfig struct {
	Provider    string  `yaml:"provider"` // mock, openai or anthropic
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens"`
}

// ChatConfig tunes the model-backed chat service.
type ChatConfig struct {
	MaxHistory int  `yaml:"max_history"`
	MaxAssets  int  `yaml:"max_assets"`
	Stream     bool `yaml:"stream"`
}

// EngineConfig tunes the orchestration controller and built-in executors.
type EngineConfig struct {
	StrictValidation bool `yaml:"strict_validation"`
	MaxResults       int  `yaml:"max_results"`
	SummaryBodyLimit int  `yaml:"summary_body_limit"`
}

// RepositoryConfig selects the asset repository backend.
type RepositoryConfig struct {
	Driver     string       `yaml:"driver"` // memory, sqlite or redis
	SQLitePath string       `yaml:"sqlite_path"`
	Redis      redis.Config `yaml:"redis"`
}

// MailboxConfig seeds the in-memory mailbox.
type MailboxConfig struct {
	// Path is a JSON file holding an array of email records. Empty starts
	// with an empty mailbox.
	Path string `yaml:"path"`
}

// NotificationConfig sizes the notification buffer exposed over HTTP.
type NotificationConfig struct {
	Capacity int `yaml:"capacity"`
}

// Default returns the baseline configuration: in-memory everything, mock
// model, JSON info logging, telemetry off.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Log:           LogConfig{Level: "info", Format: "json"},
		Model:         ModelConfig{Provider: "mock", Temperature: 0.2, MaxTokens: 4096},
		Chat:          ChatConfig{MaxHistory: 20, MaxAssets: 50},
		Engine:        EngineConfig{MaxResults: 10, SummaryBodyLimit: 200},
		Repository:    RepositoryConfig{Driver: "memory", SQLitePath: "./data/assetflow.db", Redis: redis.Config{Prefix: redis.DefaultPrefix}},
		Notifications: NotificationConfig{Capacity: 100},
		Telemetry:     telemetry.Config{Exporter: "otlp-http", ServiceName: "assetflow", SampleRate: 1.0},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is
// not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return errors.New("server.address cannot be empty")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	switch c.Model.Provider {
	case "mock", "openai", "anthropic":
	default:
		return fmt.Errorf("model.provider must be mock, openai or anthropic, got %q", c.Model.Provider)
	}
	switch c.Repository.Driver {
	case "memory":
	case "sqlite":
		if c.Repository.SQLitePath == "" {
			return errors.New("repository.sqlite_path is required for the sqlite driver")
		}
	case "redis":
		if c.Repository.Redis.Address == "" {
			return errors.New("repository.redis.address is required for the redis driver")
		}
	default:
		return fmt.Errorf("repository.driver must be memory, sqlite or redis, got %q", c.Repository.Driver)
	}
	if c.Engine.MaxResults <= 0 {
		return errors.New("engine.max_results must be > 0")
	}
	if c.Notifications.Capacity <= 0 {
		return errors.New("notifications.capacity must be > 0")
	}
	return nil
}

func (c *Config) normalize() {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	c.Model.Provider = strings.ToLower(strings.TrimSpace(c.Model.Provider))
	c.Repository.Driver = strings.ToLower(strings.TrimSpace(c.Repository.Driver))
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "mock"
	}
	if c.Repository.Driver == "" {
		c.Repository.Driver = "memory"
	}
	if c.Repository.Redis.Prefix == "" {
		c.Repository.Redis.Prefix = redis.DefaultPrefix
	}
}

func applyEnvOverrides(c *Config) {
	setString(&c.Server.Address, "ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.Model.Provider, "MODEL_PROVIDER")
	setString(&c.Model.Name, "MODEL_NAME")
	setString(&c.Model.APIKey, "MODEL_API_KEY")
	setBool(&c.Chat.Stream, "CHAT_STREAM")
	setBool(&c.Engine.StrictValidation, "STRICT_VALIDATION")
	setString(&c.Repository.Driver, "REPOSITORY_DRIVER")
	setString(&c.Repository.SQLitePath, "SQLITE_PATH")
	setString(&c.Repository.Redis.Address, "REDIS_ADDR")
	setString(&c.Repository.Redis.Password, "REDIS_PASSWORD")
	setInt(&c.Repository.Redis.DB, "REDIS_DB")
	setString(&c.Mailbox.Path, "MAILBOX_PATH")
	setBool(&c.Telemetry.Enabled, "TELEMETRY_ENABLED")
	setString(&c.Telemetry.Exporter, "TELEMETRY_EXPORTER")
	setString(&c.Telemetry.Endpoint, "TELEMETRY_ENDPOINT")
}

func setString(dst *string, key string) {
	if value, ok := os.LookupEnv(EnvPrefix + key); ok {
		*dst = value
	}
}

// setBool ignores values that are not recognizable booleans.
func setBool(dst *bool, key string) {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	}
}

// setInt ignores values that do not parse.
func setInt(dst *int, key string) {
	value, ok := os.LookupEnv(EnvPrefix + key)
	if !ok {
		return
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		*dst = n
	}
}
