// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the terminal client configuration.
type Config struct {
	BackendURL    string
	DBPath        string
	AgentID       string
	HTTPTimeout   time.Duration
	LogLevel      slog.Level
	AdminUser     string
	AdminPassword string
	ChatLog       ChatLogConfig
}

// ChatLogConfig controls NDJSON transcript logging.
type ChatLogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// SignerConfig holds the upload signer service configuration.
type SignerConfig struct {
	Port          string
	PublicBaseURL string
	BucketDir     string
	SigningKey    string
	URLTTL        time.Duration
	MaxUploadSize int64
	LogLevel      slog.Level

	// AllowedOrigins are the CORS origins; "*" allows any.
	AllowedOrigins []string
	// APITokens restricts which bearer tokens may request upload URLs. Empty accepts any.
	APITokens []string
}

// Load reads the client configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("SRMA_CHATLOG_QUEUE_SIZE", 256)
	if queueSize <= 0 {
		queueSize = 256
	}

	cfg := &Config{
		BackendURL:    strings.TrimRight(getEnv("SRMA_BACKEND_URL", "http://localhost:8000"), "/"),
		DBPath:        getEnv("SRMA_DB_PATH", defaultDBPath()),
		AgentID:       getEnv("SRMA_AGENT_ID", "0"),
		HTTPTimeout:   getEnvDuration("SRMA_HTTP_TIMEOUT", 30*time.Second),
		LogLevel:      getEnvLevel("LOG_LEVEL", slog.LevelWarn),
		AdminUser:     getEnv("SRMA_ADMIN_USER", ""),
		AdminPassword: getEnv("SRMA_ADMIN_PASSWORD", ""),
		ChatLog: ChatLogConfig{
			Enabled:   getEnvBool("SRMA_CHATLOG_ENABLED", false),
			Dir:       getEnv("SRMA_CHATLOG_DIR", "./data/chatlog"),
			QueueSize: queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("SRMA_BACKEND_URL cannot be empty")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("SRMA_BACKEND_URL must be an http(s) URL, got %q", c.BackendURL)
	}
	if c.DBPath == "" {
		return fmt.Errorf("SRMA_DB_PATH cannot be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("SRMA_HTTP_TIMEOUT must be > 0")
	}
	if c.ChatLog.Enabled && c.ChatLog.Dir == "" {
		return fmt.Errorf("SRMA_CHATLOG_DIR cannot be empty when chat logging is enabled")
	}
	return nil
}

// AdminEnabled reports whether admin credentials are configured.
func (c *Config) AdminEnabled() bool {
	return c.AdminUser != "" && c.AdminPassword != ""
}

// LoadSigner reads the upload signer configuration from environment variables.
func LoadSigner() (*SignerConfig, error) {
	port := getEnv("PORT", "8080")
	cfg := &SignerConfig{
		Port:          port,
		PublicBaseURL: strings.TrimRight(getEnv("SIGNER_PUBLIC_URL", "http://localhost:"+port), "/"),
		BucketDir:     getEnv("SIGNER_BUCKET_DIR", "./data/bucket"),
		SigningKey:    getEnv("SIGNER_SIGNING_KEY", ""),
		URLTTL:        getEnvDuration("SIGNER_URL_TTL", 15*time.Minute),
		MaxUploadSize: int64(getEnvInt("SIGNER_MAX_UPLOAD_MB", 25)) << 20,
		LogLevel:      getEnvLevel("LOG_LEVEL", slog.LevelInfo),

		AllowedOrigins: getEnvList("SIGNER_ALLOWED_ORIGINS", []string{"*"}),
		APITokens:      getEnvList("SIGNER_API_TOKENS", nil),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required signer fields are set.
func (c *SignerConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.BucketDir == "" {
		return fmt.Errorf("SIGNER_BUCKET_DIR cannot be empty")
	}
	if len(c.SigningKey) < 32 {
		return fmt.Errorf("SIGNER_SIGNING_KEY must be at least 32 bytes")
	}
	if c.URLTTL <= 0 {
		return fmt.Errorf("SIGNER_URL_TTL must be > 0")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("SIGNER_MAX_UPLOAD_MB must be > 0")
	}
	return nil
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./data/srma.db"
	}
	return dir + "/srma/session.db"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
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

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
