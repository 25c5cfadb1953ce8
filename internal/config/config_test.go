package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points the config directory and working directory at fresh temp
// dirs so no real config or .env leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, e := range envKeys {
		t.Setenv(e.env, "")
	}
	t.Chdir(t.TempDir())
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Provider != "anthropic" {
		t.Errorf("Default provider = %q, want %q", cfg.Provider, "anthropic")
	}
	if cfg.Format != "text" {
		t.Errorf("Default format = %q, want %q", cfg.Format, "text")
	}
	if cfg.Threshold != 10 || cfg.MaxChunks != 5 || cfg.Concurrency != 10 || cfg.MaxAttempts != 3 || cfg.RetrievalK != 5 {
		t.Errorf("Default limits = %+v", cfg)
	}
	if cfg.RPS != 0 {
		t.Errorf("Default RPS = %v, want 0", cfg.RPS)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL() != 24*time.Hour {
		t.Errorf("Default cache = %+v", cfg.Cache)
	}
	if !cfg.Privacy.RedactSecrets {
		t.Error("Default redactSecrets should be true")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestMergeEnv(t *testing.T) {
	isolate(t)
	t.Setenv("FUNNEL_PROVIDER", "openai")
	t.Setenv("FUNNEL_MODEL", "gpt-4o")
	t.Setenv("FUNNEL_SUMMARY_MODEL", "gpt-4o-mini")
	t.Setenv("FUNNEL_FORMAT", "json")
	t.Setenv("FUNNEL_THRESHOLD", "7")
	t.Setenv("FUNNEL_CONCURRENCY", "4")
	t.Setenv("FUNNEL_MAX_CHUNKS", "3")
	t.Setenv("FUNNEL_RPS", "2.5")
	t.Setenv("FUNNEL_INDEX", ":memory:")

	cfg := Default()
	if err := mergeEnv(&cfg); err != nil {
		t.Fatalf("mergeEnv error: %v", err)
	}

	if cfg.Provider != "openai" || cfg.Model != "gpt-4o" {
		t.Errorf("Provider/Model = %q/%q", cfg.Provider, cfg.Model)
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want json", cfg.Format)
	}
	if cfg.Threshold != 7 || cfg.Concurrency != 4 || cfg.MaxChunks != 3 {
		t.Errorf("limits = %d/%d/%d", cfg.Threshold, cfg.Concurrency, cfg.MaxChunks)
	}
	if cfg.RPS != 2.5 {
		t.Errorf("RPS = %v, want 2.5", cfg.RPS)
	}
	if cfg.Index != ":memory:" {
		t.Errorf("Index = %q", cfg.Index)
	}
	if p, m := cfg.SummaryClient(); p != "openai" || m != "gpt-4o-mini" {
		t.Errorf("SummaryClient() = %q, %q", p, m)
	}
}

func TestMergeEnv_InvalidNumber(t *testing.T) {
	isolate(t)
	t.Setenv("FUNNEL_THRESHOLD", "high")

	cfg := Default()
	err := mergeEnv(&cfg)
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("mergeEnv error = %v, want ErrInvalid", err)
	}
}

func TestMergeOverrides(t *testing.T) {
	cfg := Default()
	err := mergeOverrides(&cfg, map[string]string{
		"provider":  "gemini",
		"model":     "gemini-2.0-flash",
		"format":    "markdown",
		"threshold": "12",
		"branch":    "",
	})
	if err != nil {
		t.Fatalf("mergeOverrides error: %v", err)
	}
	if cfg.Provider != "gemini" || cfg.Model != "gemini-2.0-flash" {
		t.Errorf("Provider/Model = %q/%q", cfg.Provider, cfg.Model)
	}
	if cfg.Format != "markdown" || cfg.Threshold != 12 {
		t.Errorf("Format/Threshold = %q/%d", cfg.Format, cfg.Threshold)
	}
	if cfg.Branch != "" {
		t.Errorf("empty override should be ignored, Branch = %q", cfg.Branch)
	}

	if err := mergeOverrides(&cfg, nil); err != nil {
		t.Errorf("nil overrides: %v", err)
	}
}

func TestSetField(t *testing.T) {
	cfg := Default()
	tests := []struct {
		key   string
		value string
	}{
		{"provider", "openai"},
		{"summaryProvider", "ollama"},
		{"maxAttempts", "4"},
		{"maxTokens", "2048"},
		{"retrievalK", "8"},
		{"requestsPerSecond", "1"},
		{"rulesFile", "rules.yaml"},
		{"cache.enabled", "false"},
		{"cache.dir", "/tmp/funnel-cache"},
		{"cache.ttlSeconds", "60"},
		{"privacy.redactSecrets", "false"},
		{"privacy.redactPaths", "**/.env, **/*.key ,"},
	}
	for _, tt := range tests {
		if err := SetField(&cfg, tt.key, tt.value); err != nil {
			t.Errorf("SetField(%q, %q) error: %v", tt.key, tt.value, err)
		}
	}

	if cfg.MaxAttempts != 4 || cfg.MaxTokens != 2048 || cfg.RetrievalK != 8 {
		t.Errorf("numeric fields = %+v", cfg)
	}
	if cfg.Cache.Enabled || cfg.Privacy.RedactSecrets {
		t.Error("boolean fields not applied")
	}
	if cfg.Cache.TTL() != time.Minute {
		t.Errorf("TTL = %v, want 1m", cfg.Cache.TTL())
	}
	if len(cfg.Privacy.RedactPaths) != 2 || cfg.Privacy.RedactPaths[1] != "**/*.key" {
		t.Errorf("RedactPaths = %q", cfg.Privacy.RedactPaths)
	}
}

func TestSetField_Errors(t *testing.T) {
	cfg := Default()
	if err := SetField(&cfg, "nonexistent", "v"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("unknown key error = %v", err)
	}
	if err := SetField(&cfg, "concurrency", "many"); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad int error = %v", err)
	}
	if err := SetField(&cfg, "cache.enabled", "sometimes"); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad bool error = %v", err)
	}
}

func TestKeysAreSettable(t *testing.T) {
	values := map[string]string{
		"threshold": "1", "maxChunksPerFile": "1", "concurrency": "1", "maxAttempts": "1",
		"maxTokens": "1", "retrievalK": "1", "requestsPerSecond": "1", "cache.ttlSeconds": "1",
		"cache.enabled": "true", "privacy.redactSecrets": "true",
	}
	for _, key := range Keys() {
		cfg := Default()
		v, ok := values[key]
		if !ok {
			v = "x"
		}
		if err := SetField(&cfg, key, v); err != nil {
			t.Errorf("SetField(%q) = %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad format", func(c *Config) { c.Format = "sarif" }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"zero threshold", func(c *Config) { c.Threshold = 0 }},
		{"negative rps", func(c *Config) { c.RPS = -1 }},
		{"empty model", func(c *Config) { c.Model = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath error: %v", err)
	}
	if path != filepath.Join("/tmp/xdg-test", "funnel", "config.yaml") {
		t.Errorf("ConfigPath = %q", path)
	}
}

func TestSaveAndLoad(t *testing.T) {
	isolate(t)

	cfg := Default()
	cfg.Provider = "openai"
	cfg.Model = "gpt-4o"
	cfg.Threshold = 15
	cfg.Cache.Enabled = false
	if err := Save(cfg); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Provider != "openai" || loaded.Model != "gpt-4o" || loaded.Threshold != 15 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Cache.Enabled {
		t.Error("Cache.Enabled = true, want false from file")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "funnel", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("model: claude-haiku\ncache:\n  enabled: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model != "claude-haiku" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should be false from file")
	}
	if cfg.Cache.TTLSeconds != 86400 {
		t.Errorf("TTLSeconds = %d, want default", cfg.Cache.TTLSeconds)
	}
	if !cfg.Privacy.RedactSecrets {
		t.Error("RedactSecrets should keep its default")
	}
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	cfg := Default()
	cfg.Provider = "gemini"
	if err := Save(cfg); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(".env", []byte("FUNNEL_PROVIDER=openai\nFUNNEL_MODEL=gpt-4o\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("FUNNEL_PROVIDER")
		os.Unsetenv("FUNNEL_MODEL")
	})
	// godotenv never overrides variables that are already set, including
	// empty ones set by isolate.
	os.Unsetenv("FUNNEL_PROVIDER")
	os.Unsetenv("FUNNEL_MODEL")

	got, err := Load(nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Provider != "openai" || got.Model != "gpt-4o" {
		t.Errorf("env should beat file: %q/%q", got.Provider, got.Model)
	}

	got, err = Load(map[string]string{"provider": "ollama"})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Provider != "ollama" {
		t.Errorf("override should beat env: %q", got.Provider)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "funnel", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("threshold: [oops\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(nil); err == nil {
		t.Error("expected parse error")
	}
}
