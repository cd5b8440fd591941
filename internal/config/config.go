// Package config loads the techtrends configuration.
//
// Values come from, in increasing precedence: built-in defaults, the base file
// (techtrends.yaml, techtrends.yml, techtrends.json or techtrends.toml), an
// environment overlay file (techtrends.<env>.<ext>) and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/techtrends/pkg/adapters/blob"
	"github.com/aretw0/techtrends/pkg/domain"
)

const (
	// BaseName is the config file name without extension.
	BaseName = "techtrends"

	EnvName      = "TECHTRENDS_ENV"
	EnvLogLevel  = "TECHTRENDS_LOG_LEVEL"
	EnvLogFormat = "TECHTRENDS_LOG_FORMAT"
	EnvOutputDir = "TECHTRENDS_OUTPUT_DIR"
	EnvDataDir   = "TECHTRENDS_DATA_DIR"
	EnvPromptDir = "TECHTRENDS_PROMPT_DIR"
	EnvPDFFont   = "TECHTRENDS_PDF_FONT"
	EnvLanguage  = "TECHTRENDS_LANGUAGE"
	EnvDepth     = "TECHTRENDS_DEPTH"
	EnvFormat    = "TECHTRENDS_FORMAT"
	EnvAddr      = "TECHTRENDS_ADDR"
)

// Extensions lists the accepted config file types, in lookup order.
var Extensions = []string{".yaml", ".yml", ".json", ".toml"}

// Config is the root configuration.
type Config struct {
	Log        LogConfig        `json:"log" yaml:"log" toml:"log"`
	OpenAI     OpenAIConfig     `json:"openai" yaml:"openai" toml:"openai"`
	Search     SearchConfig     `json:"search" yaml:"search" toml:"search"`
	Defaults   RunDefaults      `json:"defaults" yaml:"defaults" toml:"defaults"`
	Checkpoint CheckpointConfig `json:"checkpoint" yaml:"checkpoint" toml:"checkpoint"`
	Publish    blob.Config      `json:"publish" yaml:"publish" toml:"publish"`
	Server     ServerConfig     `json:"server" yaml:"server" toml:"server"`

	OutputDir string `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	DataDir   string `json:"data_dir" yaml:"data_dir" toml:"data_dir"`
	PromptDir string `json:"prompt_dir" yaml:"prompt_dir" toml:"prompt_dir"`
	PDFFont   string `json:"pdf_font" yaml:"pdf_font" toml:"pdf_font"`

	// Source is the base file that was read, empty when running on defaults.
	Source string `json:"-" yaml:"-" toml:"-"`
}

// RunDefaults are used when a run does not state its own values.
type RunDefaults struct {
	Language string `json:"language" yaml:"language" toml:"language"`
	Depth    string `json:"depth" yaml:"depth" toml:"depth"`
	Format   string `json:"format" yaml:"format" toml:"format"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
}

// Load reads path, or discovers the base file in the working directory when
// path is empty. A missing base file means defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		path = discover(".")
	}
	if path != "" {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		cfg.Source = path
	}

	if overlay := overlayPath(cfg.Source); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Default returns a finalized configuration without reading any file.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(o *Config) {
	c.Log.Merge(&o.Log)
	c.OpenAI.Merge(&o.OpenAI)
	c.Search.Merge(&o.Search)
	c.Checkpoint.Merge(&o.Checkpoint)

	if o.Defaults.Language != "" {
		c.Defaults.Language = o.Defaults.Language
	}
	if o.Defaults.Depth != "" {
		c.Defaults.Depth = o.Defaults.Depth
	}
	if o.Defaults.Format != "" {
		c.Defaults.Format = o.Defaults.Format
	}
	if o.Publish.ConnectionString != "" {
		c.Publish.ConnectionString = o.Publish.ConnectionString
	}
	if o.Publish.AccountURL != "" {
		c.Publish.AccountURL = o.Publish.AccountURL
	}
	if o.Publish.Container != "" {
		c.Publish.Container = o.Publish.Container
	}
	if o.Publish.Prefix != "" {
		c.Publish.Prefix = o.Publish.Prefix
	}
	if o.Server.Addr != "" {
		c.Server.Addr = o.Server.Addr
	}
	if o.OutputDir != "" {
		c.OutputDir = o.OutputDir
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.PromptDir != "" {
		c.PromptDir = o.PromptDir
	}
	if o.PDFFont != "" {
		c.PDFFont = o.PDFFont
	}
}

// Finalize applies environment variables and defaults, then validates.
func (c *Config) Finalize() error {
	c.loadEnv()
	c.loadDefaults()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Log.Finalize(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Search.Finalize(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Checkpoint.Finalize(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
	if c.DataDir == "" {
		c.DataDir = filepath.Join("data", "rag")
	}
	if c.PromptDir == "" {
		c.PromptDir = "prompts"
	}
	if c.Defaults.Language == "" {
		c.Defaults.Language = string(domain.LanguageKorean)
	}
	if c.Defaults.Depth == "" {
		c.Defaults.Depth = string(domain.DepthStandard)
	}
	if c.Defaults.Format == "" {
		c.Defaults.Format = string(domain.FormatMarkdown)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Publish.Enabled() && c.Publish.Container == "" {
		c.Publish.Container = blob.DefaultContainer
	}
}

func (c *Config) loadEnv() {
	c.Log.loadEnv()
	c.OpenAI.loadEnv()
	c.Search.loadEnv()
	c.Checkpoint.loadEnv()

	setFromEnv(&c.OutputDir, EnvOutputDir)
	setFromEnv(&c.DataDir, EnvDataDir)
	setFromEnv(&c.PromptDir, EnvPromptDir)
	setFromEnv(&c.PDFFont, EnvPDFFont)
	setFromEnv(&c.Defaults.Language, EnvLanguage)
	setFromEnv(&c.Defaults.Depth, EnvDepth)
	setFromEnv(&c.Defaults.Format, EnvFormat)
	setFromEnv(&c.Server.Addr, EnvAddr)
	setFromEnv(&c.Publish.ConnectionString, "TECHTRENDS_PUBLISH_CONNECTION_STRING")
	setFromEnv(&c.Publish.AccountURL, "TECHTRENDS_PUBLISH_ACCOUNT_URL")
	setFromEnv(&c.Publish.Container, "TECHTRENDS_PUBLISH_CONTAINER")
}

func (c *Config) validate() error {
	var errs []error
	if !domain.Language(c.Defaults.Language).Valid() {
		errs = append(errs, fmt.Errorf("unknown default language %q", c.Defaults.Language))
	}
	if !domain.Depth(c.Defaults.Depth).Valid() {
		errs = append(errs, fmt.Errorf("unknown default depth %q", c.Defaults.Depth))
	}
	if _, err := domain.ParseFormat(c.Defaults.Format); err != nil {
		errs = append(errs, fmt.Errorf("default format: %w", err))
	}
	return errors.Join(errs...)
}

// EnsureDirs creates the directories the pipeline writes to.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.OutputDir, c.DataDir}
	if c.Checkpoint.Backend == BackendFile {
		dirs = append(dirs, c.Checkpoint.Dir)
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create %s: %w", d, err)
		}
	}
	return nil
}

// Logger builds the application logger from the log section.
func (c *Config) Logger() *slog.Logger {
	return c.Log.Logger()
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	default:
		return nil, fmt.Errorf("unsupported config file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

func discover(dir string) string {
	for _, ext := range Extensions {
		path := filepath.Join(dir, BaseName+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// overlayPath finds techtrends.<env>.<ext> next to the base file.
func overlayPath(base string) string {
	env := os.Getenv(EnvName)
	if env == "" {
		return ""
	}
	dir := "."
	if base != "" {
		dir = filepath.Dir(base)
	}
	for _, ext := range Extensions {
		path := filepath.Join(dir, BaseName+"."+env+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
