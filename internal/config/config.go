// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Port               string                `yaml:"port"`
	FrontendURL        string                `yaml:"frontend_url"`
	LogLevel           string                `yaml:"log_level"`
	MaxRequestBodySize int64                 `yaml:"max_request_body_bytes"`
	GRPCHealthAddr     string                `yaml:"grpc_health_addr"` // empty disables the gRPC health listener
	OpenAI             OpenAIConfig          `yaml:"openai"`
	Poll               PollConfig            `yaml:"poll"`
	Database           DatabaseConfig        `yaml:"database"`
	RateLimit          RateLimitConfig       `yaml:"rate_limit"`
	ConversationLog    ConversationLogConfig `yaml:"conversation_log"`
}

// OpenAIConfig identifies the assistant used for every conversation.
type OpenAIConfig struct {
	APIKey      string `yaml:"api_key"`
	AssistantID string `yaml:"assistant_id"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"` // empty uses the SDK default
}

// PollConfig bounds how long a run is awaited.
type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Budget is the longest a request can spend polling.
func (p PollConfig) Budget() time.Duration {
	return p.Interval * time.Duration(p.MaxAttempts)
}

// DatabaseConfig selects the business data store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "mysql" | "postgres" | "sqlite"
	URL    string `yaml:"url"`    // MySQL/PostgreSQL DSN
	Path   string `yaml:"path"`   // SQLite path
	Policy string `yaml:"policy"` // "unrestricted" | "read-only"
}

// RateLimitConfig throttles chat requests per client.
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests"`
	WindowDuration    time.Duration `yaml:"window"`
	RedisURL          string        `yaml:"redis_url"` // empty keeps counters in memory
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Dir           string `yaml:"dir"`
	GlobalEnabled bool   `yaml:"global_enabled"`
	GlobalPath    string `yaml:"global_path"`
	QueueSize     int    `yaml:"queue_size"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Port:               "3001",
		FrontendURL:        "http://localhost:5173",
		LogLevel:           "info",
		MaxRequestBodySize: 1 << 20,
		OpenAI: OpenAIConfig{
			Model: "gpt-4o",
		},
		Poll: PollConfig{
			Interval:    time.Second,
			MaxAttempts: 30,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "./data/partnerdesk.db",
			Policy: "unrestricted",
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 10,
			WindowDuration:    time.Minute,
		},
		ConversationLog: ConversationLogConfig{
			Enabled:       true,
			Dir:           "./data/logs/conversations",
			GlobalEnabled: false,
			GlobalPath:    "./data/logs/conversations/all.ndjson",
			QueueSize:     1000,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or $CONFIG_FILE when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.FrontendURL = getEnv("FRONTEND_URL", c.FrontendURL)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.MaxRequestBodySize = int64(getEnvInt("MAX_REQUEST_BODY_BYTES", int(c.MaxRequestBodySize)))
	c.GRPCHealthAddr = getEnv("GRPC_HEALTH_ADDR", c.GRPCHealthAddr)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.AssistantID = getEnv("OPENAI_ASSISTANT_ID", c.OpenAI.AssistantID)
	c.OpenAI.Model = getEnv("OPENAI_MODEL", c.OpenAI.Model)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)

	c.Poll.Interval = time.Duration(getEnvInt("POLL_INTERVAL_MS", int(c.Poll.Interval.Milliseconds()))) * time.Millisecond
	c.Poll.MaxAttempts = getEnvInt("POLL_MAX_ATTEMPTS", c.Poll.MaxAttempts)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.Path = getEnv("DB_PATH", c.Database.Path)
	c.Database.Policy = getEnv("SQL_POLICY", c.Database.Policy)

	c.RateLimit.RequestsPerWindow = getEnvInt("RATE_LIMIT_REQUESTS", c.RateLimit.RequestsPerWindow)
	c.RateLimit.WindowDuration = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimit.WindowDuration)
	c.RateLimit.RedisURL = getEnv("REDIS_URL", c.RateLimit.RedisURL)

	c.ConversationLog.Enabled = getEnvBool("CONVERSATION_LOG_ENABLED", c.ConversationLog.Enabled)
	c.ConversationLog.Dir = getEnv("CONVERSATION_LOG_DIR", c.ConversationLog.Dir)
	c.ConversationLog.GlobalEnabled = getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", c.ConversationLog.GlobalEnabled)
	c.ConversationLog.GlobalPath = getEnv("CONVERSATION_LOG_GLOBAL_PATH", c.ConversationLog.GlobalPath)
	c.ConversationLog.QueueSize = getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", c.ConversationLog.QueueSize)
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.OpenAI.AssistantID == "" {
		return fmt.Errorf("OPENAI_ASSISTANT_ID is required")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("POLL_INTERVAL_MS must be > 0")
	}
	if c.Poll.MaxAttempts <= 0 {
		return fmt.Errorf("POLL_MAX_ATTEMPTS must be > 0")
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for %s driver", c.Database.Driver)
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported", c.Database.Driver)
	}
	switch c.Database.Policy {
	case "", "unrestricted", "read-only":
	default:
		return fmt.Errorf("SQL_POLICY %q is not supported", c.Database.Policy)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_BYTES must be > 0")
	}
	if c.RateLimit.RequestsPerWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty")
	}
	if c.ConversationLog.GlobalPath == "" {
		return fmt.Errorf("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
