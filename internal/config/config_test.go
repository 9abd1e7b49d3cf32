package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
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
  request_timeout: 15s
embedding:
  provider: mock
  dimensions: 16
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 15*time.Second {
		t.Errorf("request_timeout = %v, want 15s", cfg.Server.RequestTimeout)
	}
	if cfg.Embedding.Provider != ProviderMock || cfg.Embedding.Dimensions != 16 {
		t.Errorf("unexpected embedding config: %+v", cfg.Embedding)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, `
debug: true
embedding:
  provider: mock
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
embedding:
  model_path: "./models/model.onnx"
  vocab_path: "./models/vocab.txt"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Dir(path)
	if want := filepath.Join(dir, "models", "model.onnx"); cfg.Embedding.ModelPath != want {
		t.Errorf("model_path = %s, want %s", cfg.Embedding.ModelPath, want)
	}
	if want := filepath.Join(dir, "models", "vocab.txt"); cfg.Embedding.VocabPath != want {
		t.Errorf("vocab_path = %s, want %s", cfg.Embedding.VocabPath, want)
	}
	if cfg.Embedding.LibraryPath != "" {
		t.Errorf("empty library_path should stay empty, got %s", cfg.Embedding.LibraryPath)
	}
}

func TestLoad_invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "embedding:\n  provider: bert\n"},
		{"unknown pooling", "embedding:\n  pooling: max\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"bad exporter", "tracing:\n  exporter: jaeger\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv(EnvHost, "0.0.0.0")
	t.Setenv(EnvPort, "7001")
	t.Setenv(EnvProvider, "OLLAMA")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load(writeConfig(t, "server:\n  port: 9000\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 7001 {
		t.Errorf("server not overridden: %+v", cfg.Server)
	}
	if cfg.Embedding.Provider != ProviderOllama {
		t.Errorf("provider = %s, want ollama", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("model should follow the overridden provider, got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.BaseURL != "http://localhost:11434" {
		t.Errorf("base_url = %s", cfg.Embedding.BaseURL)
	}
	if !cfg.Debug {
		t.Error("debug should be overridden")
	}
}

func TestApplyEnv_invalid(t *testing.T) {
	t.Setenv(EnvPort, "eighty")
	if err := ApplyEnv(&Config{}); err == nil {
		t.Error("expected error for non-numeric port")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(dir); err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}

	const key = "SENTEMBED_TEST_DOTENV"
	t.Setenv(key, "")
	os.Unsetenv(key)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(key+"=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := LoadDotEnv(dir); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(key); got != "from-file" {
		t.Errorf("%s = %q, want from-file", key, got)
	}

	t.Setenv(key, "from-env")
	if err := LoadDotEnv(dir); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv(key); got != "from-env" {
		t.Errorf(".env must not override existing env, got %q", got)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 5000 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Embedding.Provider != ProviderONNX || cfg.Embedding.Dimensions != 384 {
		t.Errorf("default embedding: %+v", cfg.Embedding)
	}
	if cfg.Embedding.Model != "all-MiniLM-L6-v2" {
		t.Errorf("default model: got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.MaxTokens != 256 || cfg.Embedding.CacheSize != 10000 {
		t.Errorf("default tokens/cache: %d/%d", cfg.Embedding.MaxTokens, cfg.Embedding.CacheSize)
	}
	if cfg.Embedding.Breaker.MaxFailures != 5 || cfg.Embedding.Breaker.Timeout != 30*time.Second {
		t.Errorf("default breaker: %+v", cfg.Embedding.Breaker)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("default cors origins: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.RateLimit.RequestsPerMin != 0 {
		t.Error("rate limiting should be off by default")
	}
	if cfg.Tracing.Exporter != "noop" {
		t.Errorf("default exporter: got %s", cfg.Tracing.Exporter)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestApplyDefaults_providerSpecific(t *testing.T) {
	cfg := &Config{Embedding: EmbeddingConfig{Provider: ProviderOpenAI}}
	ApplyDefaults(cfg)
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("openai model: got %s", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 0 {
		t.Errorf("openai dimensions come from the model, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Embedding.ModelPath != "" {
		t.Errorf("model_path is only defaulted for onnx, got %s", cfg.Embedding.ModelPath)
	}

	cfg = &Config{Server: ServerConfig{RateLimit: RateLimitConfig{RequestsPerMin: 120}}}
	ApplyDefaults(cfg)
	if cfg.Server.RateLimit.Burst != 120 {
		t.Errorf("burst should default to requests_per_min, got %d", cfg.Server.RateLimit.Burst)
	}

	cfg = &Config{Tracing: TracingConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Tracing.Exporter != "stdout" {
		t.Errorf("enabled tracing should default to stdout, got %s", cfg.Tracing.Exporter)
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := Default()
	cfg.Server.Port = 9090
	cfg.Server.RequestTimeout = 5 * time.Second
	cfg.Embedding.Provider = ProviderMock
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Server.RequestTimeout != 5*time.Second {
		t.Errorf("loaded request_timeout: got %v", loaded.Server.RequestTimeout)
	}
	if loaded.Embedding.Provider != ProviderMock {
		t.Errorf("loaded provider: got %s", loaded.Embedding.Provider)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvProvider, "mock")
	t.Setenv(EnvPort, "6001")
	cfg, err := FromEnv(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Embedding.Provider != ProviderMock || cfg.Server.Port != 6001 {
		t.Errorf("env not applied: %+v %+v", cfg.Embedding, cfg.Server)
	}
	if cfg.Embedding.Dimensions != 384 || cfg.Server.Host != "localhost" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "localhost", Port: 5000}
	if s.Addr() != "localhost:5000" {
		t.Errorf("Addr() = %s", s.Addr())
	}
}
