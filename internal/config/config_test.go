package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
model:
  path: "./models/llama-2-7b-chat.Q4_K_M.gguf"
  context_window: 2048
  temperature: 0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	want := filepath.Join(filepath.Dir(path), "models", "llama-2-7b-chat.Q4_K_M.gguf")
	if cfg.Model.Path != want {
		t.Errorf("model path = %s, want %s", cfg.Model.Path, want)
	}
	if cfg.Model.ContextWindow != 2048 {
		t.Errorf("context_window = %d", cfg.Model.ContextWindow)
	}
	if got := cfg.Model.TemperatureOrDefault(); got != 0 {
		t.Errorf("explicit temperature 0 should be kept, got %f", got)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "model:\n  threads: 2\n")
	t.Setenv("DOCQA_THREADS", "6")
	t.Setenv("DOCQA_MODEL_PATH", "/models/m.gguf")
	t.Setenv("DOCQA_ACCESS_TOKEN", "secret")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model.Threads != 6 {
		t.Errorf("threads = %d, want 6", cfg.Model.Threads)
	}
	if cfg.Model.Path != "/models/m.gguf" {
		t.Errorf("model path = %s", cfg.Model.Path)
	}
	if cfg.Server.AccessToken != "secret" {
		t.Errorf("access token = %q", cfg.Server.AccessToken)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("DOCQA_GPU_LAYERS", "lots")
	if _, err := Load(""); err == nil {
		t.Error("expected error for non-numeric DOCQA_GPU_LAYERS")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"overlap too large", "chunking:\n  chunk_size: 100\n  chunk_overlap: 100\n"},
		{"bad queue policy", "model:\n  queue_policy: drop\n"},
		{"negative temperature", "model:\n  temperature: -0.5\n"},
		{"bad yaml", "model: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("DOCQA_DOCUMENT=/docs/beumer.pdf\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCQA_DOCUMENT", "")
	os.Unsetenv("DOCQA_DOCUMENT")
	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Document != "/docs/beumer.pdf" {
		t.Errorf("document = %q", cfg.Document)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Chunking.ChunkSize != 1000 || cfg.Chunking.ChunkOverlap != 200 {
		t.Errorf("chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 4 {
		t.Errorf("top_k default: %d", cfg.Retrieval.TopK)
	}
	if cfg.Model.ContextWindow != 4096 || cfg.Model.BatchSize != 512 {
		t.Errorf("model defaults: %+v", cfg.Model)
	}
	if cfg.Model.Threads != runtime.NumCPU() {
		t.Errorf("threads default: %d", cfg.Model.Threads)
	}
	if cfg.Model.QueuePolicy != QueueReject {
		t.Errorf("queue policy default: %s", cfg.Model.QueuePolicy)
	}
	if cfg.Model.TemperatureOrDefault() != DefaultTemperature {
		t.Errorf("temperature default: %f", cfg.Model.TemperatureOrDefault())
	}
	if cfg.Embedding.Backend != "hashing" || cfg.Embedding.Dimensions != 384 {
		t.Errorf("embedding defaults: %+v", cfg.Embedding)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"./rel", filepath.Join("/cfg", "rel")},
		{"~/models/m.gguf", filepath.Join(home, "models", "m.gguf")},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in, "/cfg"); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
