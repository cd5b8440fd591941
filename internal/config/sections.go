package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/aretw0/techtrends/internal/adapters/file"
	"github.com/aretw0/techtrends/internal/adapters/redis"
	"github.com/aretw0/techtrends/internal/logging"
	"github.com/aretw0/techtrends/pkg/adapters/openai"
	"github.com/aretw0/techtrends/pkg/adapters/search"
	"github.com/aretw0/techtrends/pkg/persistence/middleware"
)

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`

	level  slog.Level
	format logging.Format
}

func (c *LogConfig) Merge(o *LogConfig) {
	if o.Level != "" {
		c.Level = o.Level
	}
	if o.Format != "" {
		c.Format = o.Format
	}
}

func (c *LogConfig) loadEnv() {
	setFromEnv(&c.Level, EnvLogLevel)
	setFromEnv(&c.Format, EnvLogFormat)
}

func (c *LogConfig) Finalize() error {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(c.Format)
	if err != nil {
		return err
	}
	c.level, c.format = level, format
	return nil
}

// Logger builds a stderr logger at the configured level.
func (c *LogConfig) Logger() *slog.Logger {
	return logging.NewWithOptions(logging.Options{Level: c.level, Format: c.format})
}

// OpenAIConfig configures the generation collaborator.
type OpenAIConfig struct {
	APIKey         string   `json:"api_key" yaml:"api_key" toml:"api_key"`
	BaseURL        string   `json:"base_url" yaml:"base_url" toml:"base_url"`
	Model          string   `json:"model" yaml:"model" toml:"model"`
	EmbeddingModel string   `json:"embedding_model" yaml:"embedding_model" toml:"embedding_model"`
	Temperature    *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	MaxTokens      int      `json:"max_tokens" yaml:"max_tokens" toml:"max_tokens"`
	TopP           *float64 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	// Embeddings selects the OpenAI embedder for RAG instead of the local hashing one.
	Embeddings bool `json:"embeddings" yaml:"embeddings" toml:"embeddings"`
}

func (c *OpenAIConfig) Merge(o *OpenAIConfig) {
	if o.APIKey != "" {
		c.APIKey = o.APIKey
	}
	if o.BaseURL != "" {
		c.BaseURL = o.BaseURL
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.EmbeddingModel != "" {
		c.EmbeddingModel = o.EmbeddingModel
	}
	if o.Temperature != nil {
		c.Temperature = o.Temperature
	}
	if o.MaxTokens != 0 {
		c.MaxTokens = o.MaxTokens
	}
	if o.TopP != nil {
		c.TopP = o.TopP
	}
	if o.Embeddings {
		c.Embeddings = true
	}
}

func (c *OpenAIConfig) loadEnv() {
	setFromEnv(&c.APIKey, openai.APIKeyEnv)
	setFromEnv(&c.BaseURL, "OPENAI_BASE_URL")
	setFromEnv(&c.Model, "TECHTRENDS_OPENAI_MODEL")
}

// Options converts the section into client options. Unset values keep the client defaults.
func (c *OpenAIConfig) Options() []openai.Option {
	var opts []openai.Option
	if c.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(c.BaseURL))
	}
	if c.Model != "" {
		opts = append(opts, openai.WithModel(c.Model))
	}
	if c.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(c.EmbeddingModel))
	}
	if c.Temperature != nil {
		opts = append(opts, openai.WithTemperature(*c.Temperature))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, openai.WithMaxTokens(c.MaxTokens))
	}
	if c.TopP != nil {
		opts = append(opts, openai.WithTopP(*c.TopP))
	}
	return opts
}

// SearchConfig configures the search collaborator.
type SearchConfig struct {
	BraveAPIKey string `json:"brave_api_key" yaml:"brave_api_key" toml:"brave_api_key"`
	Endpoint    string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	// Interval is the minimum spacing between two search calls.
	Interval string `json:"interval" yaml:"interval" toml:"interval"`
	// Strict surfaces search failures instead of degrading to placeholder results.
	Strict bool `json:"strict" yaml:"strict" toml:"strict"`

	interval time.Duration
}

func (c *SearchConfig) Merge(o *SearchConfig) {
	if o.BraveAPIKey != "" {
		c.BraveAPIKey = o.BraveAPIKey
	}
	if o.Endpoint != "" {
		c.Endpoint = o.Endpoint
	}
	if o.Interval != "" {
		c.Interval = o.Interval
	}
	if o.Strict {
		c.Strict = true
	}
}

func (c *SearchConfig) loadEnv() {
	setFromEnv(&c.BraveAPIKey, search.APIKeyEnv)
	setFromEnv(&c.Interval, "TECHTRENDS_SEARCH_INTERVAL")
}

func (c *SearchConfig) Finalize() error {
	if c.Interval == "" {
		c.Interval = search.DefaultInterval.String()
	}
	d, err := time.ParseDuration(c.Interval)
	if err != nil {
		return fmt.Errorf("invalid interval: %w", err)
	}
	if d < search.DefaultInterval {
		return fmt.Errorf("interval %s is below the %s minimum", d, search.DefaultInterval)
	}
	c.interval = d
	return nil
}

// IntervalDuration returns the parsed Interval.
func (c *SearchConfig) IntervalDuration() time.Duration {
	if c.interval == 0 {
		return search.DefaultInterval
	}
	return c.interval
}

// Checkpoint backends.
const (
	BackendNone     = "none"
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// CheckpointConfig selects where run snapshots are stored.
type CheckpointConfig struct {
	Backend string `json:"backend" yaml:"backend" toml:"backend"`
	Dir     string `json:"dir" yaml:"dir" toml:"dir"`

	RedisAddr     string `json:"redis_addr" yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password" toml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" toml:"redis_db"`
	RedisPrefix   string `json:"redis_prefix" yaml:"redis_prefix" toml:"redis_prefix"`
	TTL           string `json:"ttl" yaml:"ttl" toml:"ttl"`
	// DistributedLock guards resumes across processes sharing the redis backend.
	DistributedLock bool `json:"distributed_lock" yaml:"distributed_lock" toml:"distributed_lock"`

	PostgresDSN string `json:"postgres_dsn" yaml:"postgres_dsn" toml:"postgres_dsn"`

	// EncryptionKey is a base64 encoded 32 byte key. FallbackKeys decrypt older runs.
	EncryptionKey string   `json:"encryption_key" yaml:"encryption_key" toml:"encryption_key"`
	FallbackKeys  []string `json:"fallback_keys" yaml:"fallback_keys" toml:"fallback_keys"`
	Redact        bool     `json:"redact" yaml:"redact" toml:"redact"`

	ttl time.Duration
}

func (c *CheckpointConfig) Merge(o *CheckpointConfig) {
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.Dir != "" {
		c.Dir = o.Dir
	}
	if o.RedisAddr != "" {
		c.RedisAddr = o.RedisAddr
	}
	if o.RedisPassword != "" {
		c.RedisPassword = o.RedisPassword
	}
	if o.RedisDB != 0 {
		c.RedisDB = o.RedisDB
	}
	if o.RedisPrefix != "" {
		c.RedisPrefix = o.RedisPrefix
	}
	if o.TTL != "" {
		c.TTL = o.TTL
	}
	if o.DistributedLock {
		c.DistributedLock = true
	}
	if o.PostgresDSN != "" {
		c.PostgresDSN = o.PostgresDSN
	}
	if o.EncryptionKey != "" {
		c.EncryptionKey = o.EncryptionKey
	}
	if len(o.FallbackKeys) > 0 {
		c.FallbackKeys = o.FallbackKeys
	}
	if o.Redact {
		c.Redact = true
	}
}

func (c *CheckpointConfig) loadEnv() {
	setFromEnv(&c.Backend, "TECHTRENDS_CHECKPOINT_BACKEND")
	setFromEnv(&c.Dir, "TECHTRENDS_CHECKPOINT_DIR")
	setFromEnv(&c.RedisAddr, "TECHTRENDS_REDIS_ADDR")
	setFromEnv(&c.RedisPassword, "TECHTRENDS_REDIS_PASSWORD")
	if v := os.Getenv("TECHTRENDS_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}
	setFromEnv(&c.PostgresDSN, "TECHTRENDS_POSTGRES_DSN")
	setFromEnv(&c.EncryptionKey, "TECHTRENDS_ENCRYPTION_KEY")
}

func (c *CheckpointConfig) Finalize() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.Dir == "" {
		c.Dir = file.DefaultDir
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = redis.DefaultPrefix
	}

	switch c.Backend {
	case BackendNone, BackendMemory, BackendFile:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis backend requires redis_addr")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("postgres backend requires postgres_dsn")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}

	if c.TTL != "" {
		d, err := time.ParseDuration(c.TTL)
		if err != nil {
			return fmt.Errorf("invalid ttl: %w", err)
		}
		c.ttl = d
	}

	if c.EncryptionKey != "" {
		if _, err := c.Encryption(); err != nil {
			return err
		}
	}
	return nil
}

// TTLDuration returns the parsed TTL, zero when runs never expire.
func (c *CheckpointConfig) TTLDuration() time.Duration { return c.ttl }

// Encryption decodes the configured keys.
func (c *CheckpointConfig) Encryption() (middleware.EncryptionConfig, error) {
	active, err := middleware.DecodeKey(c.EncryptionKey)
	if err != nil {
		return middleware.EncryptionConfig{}, fmt.Errorf("encryption_key: %w", err)
	}
	cfg := middleware.EncryptionConfig{ActiveKey: active}
	for i, k := range c.FallbackKeys {
		key, err := middleware.DecodeKey(k)
		if err != nil {
			return middleware.EncryptionConfig{}, fmt.Errorf("fallback_keys[%d]: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return cfg, nil
}
