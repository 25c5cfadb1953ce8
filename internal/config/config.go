package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownKey is returned by SetField for a key Config does not have.
	ErrUnknownKey = errors.New("unknown config key")
	// ErrInvalid is returned when a value fails validation.
	ErrInvalid = errors.New("invalid configuration")
)

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "markdown"}

// Config is the funnel configuration.
type Config struct {
	Provider        string  `yaml:"provider" json:"provider"`
	Model           string  `yaml:"model" json:"model"`
	SummaryProvider string  `yaml:"summaryProvider,omitempty" json:"summaryProvider,omitempty"`
	SummaryModel    string  `yaml:"summaryModel,omitempty" json:"summaryModel,omitempty"`
	Format          string  `yaml:"format" json:"format"`
	Branch          string  `yaml:"branch,omitempty" json:"branch,omitempty"`
	Threshold       int     `yaml:"threshold" json:"threshold"`
	MaxChunks       int     `yaml:"maxChunksPerFile" json:"maxChunksPerFile"`
	Concurrency     int     `yaml:"concurrency" json:"concurrency"`
	MaxAttempts     int     `yaml:"maxAttempts" json:"maxAttempts"`
	MaxTokens       int     `yaml:"maxTokens" json:"maxTokens"`
	RetrievalK      int     `yaml:"retrievalK" json:"retrievalK"`
	RPS             float64 `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Index           string  `yaml:"index,omitempty" json:"index,omitempty"`
	RulesFile       string  `yaml:"rulesFile,omitempty" json:"rulesFile,omitempty"`

	Cache   CacheConfig   `yaml:"cache" json:"cache"`
	Privacy PrivacyConfig `yaml:"privacy" json:"privacy"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	Dir        string `yaml:"dir,omitempty" json:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds" json:"ttlSeconds"`
}

// TTL returns the cache lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// PrivacyConfig controls redaction of prompt content.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets" json:"redactSecrets"`
	RedactPaths   []string `yaml:"redactPaths,omitempty" json:"redactPaths,omitempty"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Provider:    "anthropic",
		Model:       "claude-sonnet-4-20250514",
		Format:      "text",
		Threshold:   10,
		MaxChunks:   5,
		Concurrency: 10,
		MaxAttempts: 3,
		MaxTokens:   4096,
		RetrievalK:  5,
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*", "**/*.pem"},
		},
	}
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var problems []string
	if c.Provider == "" {
		problems = append(problems, "provider is empty")
	}
	if c.Model == "" {
		problems = append(problems, "model is empty")
	}
	if !validFormat(c.Format) {
		problems = append(problems, fmt.Sprintf("format %q is not one of %s", c.Format, strings.Join(Formats, ", ")))
	}
	for name, v := range map[string]int{
		"threshold":        c.Threshold,
		"maxChunksPerFile": c.MaxChunks,
		"concurrency":      c.Concurrency,
		"maxAttempts":      c.MaxAttempts,
		"retrievalK":       c.RetrievalK,
	} {
		if v < 1 {
			problems = append(problems, fmt.Sprintf("%s must be at least 1", name))
		}
	}
	if c.RPS < 0 {
		problems = append(problems, "requestsPerSecond must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func validFormat(f string) bool {
	for _, ok := range Formats {
		if f == ok {
			return true
		}
	}
	return false
}

// SummaryClient returns the provider and model used for L2 summaries,
// falling back to the review model.
func (c Config) SummaryClient() (provider, model string) {
	provider, model = c.Provider, c.Model
	if c.SummaryProvider != "" {
		provider = c.SummaryProvider
	}
	if c.SummaryModel != "" {
		model = c.SummaryModel
	}
	return provider, model
}

// ConfigDir returns the platform-appropriate config directory for funnel.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "funnel"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "funnel"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "funnel"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "funnel"), nil
	default:
		return filepath.Join(home, ".config", "funnel"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadFile decodes the config file over cfg. A missing file leaves cfg
// untouched. Keys absent from the file keep their current value, so a file
// may set a boolean to false without losing unrelated defaults.
func LoadFile(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return loadFrom(path, cfg)
}

func loadFrom(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging:
// defaults <- file <- .env and environment <- overrides.
// The overrides map comes from CLI flags and uses SetField keys; empty
// values are ignored.
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	if err := LoadFile(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadDotEnv exports the variables in path without overriding the real
// environment. A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// envKeys maps environment variables to SetField keys.
var envKeys = []struct {
	env string
	key string
}{
	{"FUNNEL_PROVIDER", "provider"},
	{"FUNNEL_MODEL", "model"},
	{"FUNNEL_SUMMARY_PROVIDER", "summaryProvider"},
	{"FUNNEL_SUMMARY_MODEL", "summaryModel"},
	{"FUNNEL_FORMAT", "format"},
	{"FUNNEL_BRANCH", "branch"},
	{"FUNNEL_THRESHOLD", "threshold"},
	{"FUNNEL_MAX_CHUNKS", "maxChunksPerFile"},
	{"FUNNEL_CONCURRENCY", "concurrency"},
	{"FUNNEL_MAX_ATTEMPTS", "maxAttempts"},
	{"FUNNEL_MAX_TOKENS", "maxTokens"},
	{"FUNNEL_RETRIEVAL_K", "retrievalK"},
	{"FUNNEL_RPS", "requestsPerSecond"},
	{"FUNNEL_INDEX", "index"},
	{"FUNNEL_RULES", "rulesFile"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return fmt.Errorf("%s: %w", e.env, err)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return err
		}
	}
	return nil
}

// Keys lists every key SetField accepts.
func Keys() []string {
	return []string{
		"provider", "model", "summaryProvider", "summaryModel", "format", "branch",
		"threshold", "maxChunksPerFile", "concurrency", "maxAttempts", "maxTokens",
		"retrievalK", "requestsPerSecond", "index", "rulesFile",
		"cache.enabled", "cache.dir", "cache.ttlSeconds",
		"privacy.redactSecrets", "privacy.redactPaths",
	}
}

// SetField sets a single config field by key name.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "provider":
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "summaryProvider":
		cfg.SummaryProvider = value
	case "summaryModel":
		cfg.SummaryModel = value
	case "format":
		cfg.Format = value
	case "branch":
		cfg.Branch = value
	case "threshold":
		return setInt(&cfg.Threshold, key, value)
	case "maxChunksPerFile":
		return setInt(&cfg.MaxChunks, key, value)
	case "concurrency":
		return setInt(&cfg.Concurrency, key, value)
	case "maxAttempts":
		return setInt(&cfg.MaxAttempts, key, value)
	case "maxTokens":
		return setInt(&cfg.MaxTokens, key, value)
	case "retrievalK":
		return setInt(&cfg.RetrievalK, key, value)
	case "requestsPerSecond":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number: %v", ErrInvalid, key, err)
		}
		cfg.RPS = f
	case "index":
		cfg.Index = value
	case "rulesFile":
		cfg.RulesFile = value
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "privacy.redactSecrets":
		return setBool(&cfg.Privacy.RedactSecrets, key, value)
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s must be an integer: %v", ErrInvalid, key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%w: %s must be true or false: %v", ErrInvalid, key, err)
	}
	*dst = b
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
