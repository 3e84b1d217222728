package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/strategy"
)

// Config holds the paralegal service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Retry      RetryConfig      `yaml:"retry"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Compose    ComposeConfig    `yaml:"compose"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds key layout and vector index settings.
type StorageConfig struct {
	KeyPrefix       string `yaml:"key_prefix"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
	CacheTTLHours   int    `yaml:"embedding_cache_ttl_hours"` // 0 = never expire
}

// ProviderConfig holds an OpenAI-compatible API endpoint.
type ProviderConfig struct {
	Name    string `yaml:"name"` // metrics label, e.g. "google", "groq"
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	ProviderConfig   `yaml:",inline"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
	MaxBatch         int    `yaml:"max_batch"`
}

// GenerationConfig holds answer generation settings.
type GenerationConfig struct {
	ProviderConfig `yaml:",inline"`
	SystemPrompt   string  `yaml:"system_prompt"`
	MaxTokens      int     `yaml:"max_tokens"`
	Temperature    float32 `yaml:"temperature"`
}

// RetrievalConfig holds fan-out and ranking settings.
type RetrievalConfig struct {
	KeywordTopK    int `yaml:"keyword_top_k"`
	VectorTopK     int `yaml:"vector_top_k"`
	FusedTopK      int `yaml:"fused_top_k"`
	MaxParallelism int `yaml:"max_parallelism"`
	EnumerateBatch int `yaml:"enumerate_batch"`
}

// TimeoutsConfig holds per-call deadlines in seconds.
type TimeoutsConfig struct {
	EmbeddingSec      float64 `yaml:"embedding_sec"`
	VectorQuerySec    float64 `yaml:"vector_query_sec"`
	EnumerateSec      float64 `yaml:"enumerate_sec"`
	ListNamespacesSec float64 `yaml:"list_namespaces_sec"`
	GenerationSec     float64 `yaml:"generation_sec"`
}

// RetryConfig holds retry settings for provider calls.
type RetryConfig struct {
	Attempts   uint `yaml:"attempts"`
	DelayMS    int  `yaml:"delay_ms"`
	MaxDelayMS int  `yaml:"max_delay_ms"`
}

// StrategyConfig holds strategy selection settings.
type StrategyConfig struct {
	DefaultStyle string `yaml:"default_style"`
}

// ComposeConfig holds context composition settings.
type ComposeConfig struct {
	MaxContextTokens int    `yaml:"max_context_tokens"` // 0 = unbounded
	Encoding         string `yaml:"encoding"`           // tiktoken encoding name
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
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
		c.HTTP.WriteTimeoutSec = 60 // covers generation
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "paralegal:"
	}
	if c.Storage.HNSWM <= 0 {
		c.Storage.HNSWM = 16
	}
	if c.Storage.HNSWEFConstruct <= 0 {
		c.Storage.HNSWEFConstruct = 200
	}

	if c.Embedding.Name == "" {
		c.Embedding.Name = "google"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-004"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 768
	}
	if c.Embedding.MaxBatch <= 0 {
		c.Embedding.MaxBatch = 100
	}

	if c.Generation.Name == "" {
		c.Generation.Name = "groq"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "mixtral-8x7b-32768"
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 1024
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = 0.3
	}

	if c.Retrieval.KeywordTopK <= 0 {
		c.Retrieval.KeywordTopK = 5
	}
	if c.Retrieval.VectorTopK <= 0 {
		c.Retrieval.VectorTopK = 5
	}
	if c.Retrieval.FusedTopK <= 0 {
		c.Retrieval.FusedTopK = 5
	}
	if c.Retrieval.MaxParallelism <= 0 {
		c.Retrieval.MaxParallelism = 8
	}
	if c.Retrieval.EnumerateBatch <= 0 {
		c.Retrieval.EnumerateBatch = 3000
	}

	if c.Timeouts.EmbeddingSec <= 0 {
		c.Timeouts.EmbeddingSec = 10
	}
	if c.Timeouts.VectorQuerySec <= 0 {
		c.Timeouts.VectorQuerySec = 5
	}
	if c.Timeouts.EnumerateSec <= 0 {
		c.Timeouts.EnumerateSec = 15
	}
	if c.Timeouts.ListNamespacesSec <= 0 {
		c.Timeouts.ListNamespacesSec = 5
	}
	if c.Timeouts.GenerationSec <= 0 {
		c.Timeouts.GenerationSec = 45
	}

	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = 3
	}
	if c.Retry.DelayMS <= 0 {
		c.Retry.DelayMS = 200
	}
	if c.Retry.MaxDelayMS <= 0 {
		c.Retry.MaxDelayMS = 2000
	}

	if c.Strategy.DefaultStyle == "" {
		c.Strategy.DefaultStyle = string(strategy.StyleStandard)
	}
	if c.Compose.Encoding == "" {
		c.Compose.Encoding = "cl100k_base"
	}

	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 64
	}
}

// Validate checks the configuration for correctness.
// Missing provider credentials wrap domain.ErrConfiguration.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("%w: embedding.api_key is required", domain.ErrConfiguration)
	}
	if c.Generation.APIKey == "" {
		return fmt.Errorf("%w: generation.api_key is required", domain.ErrConfiguration)
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		return fmt.Errorf("generation.temperature must be within [0, 2], got %g", c.Generation.Temperature)
	}
	if c.Compose.MaxContextTokens < 0 {
		return fmt.Errorf("compose.max_context_tokens must not be negative")
	}
	if _, err := strategy.ParseStyle(c.Strategy.DefaultStyle); err != nil {
		return fmt.Errorf("strategy.default_style: %w", err)
	}
	return nil
}

// Seconds converts a fractional second setting to a duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
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
