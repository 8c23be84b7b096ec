// Package config provides configuration loading and structs for docqa.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Document  string          `yaml:"document"`
	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Server    ServerConfig    `yaml:"server"`
}

// ModelConfig holds generation model settings.
type ModelConfig struct {
	Path           string        `yaml:"path"`
	ServerBinary   string        `yaml:"server_binary"`
	ContextWindow  int           `yaml:"context_window"`
	BatchSize      int           `yaml:"batch_size"`
	Threads        int           `yaml:"threads"`
	GPULayers      int           `yaml:"gpu_layers"`
	Verbose        bool          `yaml:"verbose"`
	Temperature    *float64      `yaml:"temperature"`
	MaxTokens      int           `yaml:"max_tokens"`
	QueuePolicy    string        `yaml:"queue_policy"`
	StartupTimeout time.Duration `yaml:"startup_timeout"`
	LockDir        string        `yaml:"lock_dir"`
}

// TemperatureOrDefault returns the configured temperature, 0.7 when unset.
func (m *ModelConfig) TemperatureOrDefault() float64 {
	if m.Temperature != nil {
		return *m.Temperature
	}
	return DefaultTemperature
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Backend    string `yaml:"backend"`
	ModelPath  string `yaml:"model_path"`
	VocabPath  string `yaml:"vocab_path"` // vocab.txt or tokenizer.json; defaults to the model's directory
	Cased      bool   `yaml:"cased"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// ChunkingConfig holds splitter settings, in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig holds query settings.
type RetrievalConfig struct {
	TopK int `yaml:"top_k"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	AccessToken string `yaml:"access_token"`
}

// Load reads and parses the config file at path, applies environment
// overrides and defaults, and expands relative paths against the config
// file's directory. An empty path skips the file and uses defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir, _ := os.Getwd()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	cfg.Document = expandPath(cfg.Document, configDir)
	cfg.Model.Path = expandPath(cfg.Model.Path, configDir)
	cfg.Model.LockDir = expandPath(cfg.Model.LockDir, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Embedding.VocabPath = expandPath(cfg.Embedding.VocabPath, configDir)
	if strings.ContainsRune(cfg.Model.ServerBinary, filepath.Separator) {
		cfg.Model.ServerBinary = expandPath(cfg.Model.ServerBinary, configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotEnv loads variables from the given files (default ".env") into the
// process environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("invalid config: chunk_overlap %d must be smaller than chunk_size %d",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	switch c.Model.QueuePolicy {
	case QueueReject, QueueWait:
	default:
		return fmt.Errorf("invalid config: queue_policy %q (want %q or %q)", c.Model.QueuePolicy, QueueReject, QueueWait)
	}
	if t := c.Model.Temperature; t != nil && *t < 0 {
		return fmt.Errorf("invalid config: temperature %g must not be negative", *t)
	}
	if c.Retrieval.TopK < 1 {
		return fmt.Errorf("invalid config: top_k %d must be at least 1", c.Retrieval.TopK)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("DOCQA_DOCUMENT"); v != "" {
		cfg.Document = v
	}
	if v := os.Getenv("DOCQA_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("DOCQA_LLAMA_SERVER"); v != "" {
		cfg.Model.ServerBinary = v
	}
	if v := os.Getenv("DOCQA_ACCESS_TOKEN"); v != "" {
		cfg.Server.AccessToken = v
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"DOCQA_THREADS", &cfg.Model.Threads},
		{"DOCQA_GPU_LAYERS", &cfg.Model.GPULayers},
		{"DOCQA_CONTEXT_WINDOW", &cfg.Model.ContextWindow},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", e.name, v, err)
		}
		*e.dst = n
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir, "~/" to the home directory. Other relative paths are
// left to the working directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
