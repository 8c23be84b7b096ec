package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Queue policies for concurrent generation requests.
const (
	QueueReject = "reject"
	QueueWait   = "wait"
)

// DefaultTemperature is the sampling temperature when none is configured.
const DefaultTemperature = 0.7

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Model.ServerBinary == "" {
		cfg.Model.ServerBinary = "llama-server"
	}
	if cfg.Model.ContextWindow == 0 {
		cfg.Model.ContextWindow = 4096
	}
	if cfg.Model.BatchSize == 0 {
		cfg.Model.BatchSize = 512
	}
	if cfg.Model.Threads == 0 {
		cfg.Model.Threads = runtime.NumCPU()
	}
	if cfg.Model.QueuePolicy == "" {
		cfg.Model.QueuePolicy = QueueReject
	}
	if cfg.Model.StartupTimeout == 0 {
		cfg.Model.StartupTimeout = 2 * time.Minute
	}
	if cfg.Model.LockDir == "" {
		cfg.Model.LockDir = filepath.Join(os.TempDir(), "docqa")
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = "hashing"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}
