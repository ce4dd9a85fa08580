package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the retrieval engine configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AuthConfig holds API authentication settings. An empty key list disables
// authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingCacheConfig selects the backing store for the embedding cache.
type EmbeddingCacheConfig struct {
	Driver   string `yaml:"driver"` // memory (LRU), redis (default: memory)
	Capacity int    `yaml:"capacity"`
	TTLSec   int    `yaml:"ttl_sec"` // redis driver only; memory evicts by capacity
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string               `yaml:"api_key"`
	BaseURL    string               `yaml:"base_url"`
	Model      string               `yaml:"model"`
	TimeoutSec int                  `yaml:"timeout_sec"`
	Cache      EmbeddingCacheConfig `yaml:"cache"`
}

// GenerationConfig holds expansion-generation provider settings.
type GenerationConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// RetrievalConfig holds retrieval tuning. The heuristic constants are
// deliberate configuration, not derived values.
type RetrievalConfig struct {
	IndexName            string   `yaml:"index_name"`
	KeyPrefix            string   `yaml:"key_prefix"`
	Lambda               float64  `yaml:"mmr_lambda"`
	OverlapThreshold     float64  `yaml:"overlap_threshold"`
	CategoryPenalty      float64  `yaml:"category_penalty"`
	RelaxDelta           float64  `yaml:"relax_delta"`
	SearchCacheTTLSec    int      `yaml:"search_cache_ttl_sec"`
	ExpansionCacheTTLSec int      `yaml:"expansion_cache_ttl_sec"`
	BlocklistExtra       []string `yaml:"blocklist_extra"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 5
	}
	if c.Embedding.Cache.Driver == "" {
		c.Embedding.Cache.Driver = "memory"
	}
	if c.Embedding.Cache.Capacity <= 0 {
		c.Embedding.Cache.Capacity = 2048
	}
	if c.Embedding.Cache.TTLSec <= 0 {
		c.Embedding.Cache.TTLSec = 86400
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 8
	}
	if c.Retrieval.IndexName == "" {
		c.Retrieval.IndexName = "kb:docs:idx"
	}
	if c.Retrieval.KeyPrefix == "" {
		c.Retrieval.KeyPrefix = "kb:"
	}
	if c.Retrieval.Lambda <= 0 || c.Retrieval.Lambda > 1 {
		c.Retrieval.Lambda = 0.7
	}
	if c.Retrieval.OverlapThreshold <= 0 || c.Retrieval.OverlapThreshold > 1 {
		c.Retrieval.OverlapThreshold = 0.6
	}
	if c.Retrieval.CategoryPenalty <= 0 {
		c.Retrieval.CategoryPenalty = 0.15
	}
	if c.Retrieval.RelaxDelta <= 0 {
		c.Retrieval.RelaxDelta = 0.05
	}
	if c.Retrieval.SearchCacheTTLSec <= 0 {
		c.Retrieval.SearchCacheTTLSec = 120
	}
	if c.Retrieval.ExpansionCacheTTLSec <= 0 {
		c.Retrieval.ExpansionCacheTTLSec = 300
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Embedding.Cache.Driver {
	case "memory", "redis":
		// ok
	default:
		return fmt.Errorf(
			"embedding.cache.driver must be \"memory\" or \"redis\", got %q",
			c.Embedding.Cache.Driver,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
