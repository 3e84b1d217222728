package paralegal

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Provider is an OpenAI-compatible API endpoint.
type Provider struct {
	Name    string // metrics label, e.g. "google"
	APIKey  string
	BaseURL string
	Model   string
}

// RetrievalOptions tune the chat pipeline. Zero fields keep defaults.
type RetrievalOptions struct {
	KeywordTopK    int
	VectorTopK     int
	FusedTopK      int
	MaxParallelism int
	EnumerateBatch int

	EmbedTimeout      time.Duration
	QueryTimeout      time.Duration
	EnumerateTimeout  time.Duration
	GenerationTimeout time.Duration
}

type clientConfig struct {
	addrs    []string
	password string
	prefix   string

	embedding        *Provider
	queryInstruction string
	embedder         Embedder
	generation       *Provider
	systemPrompt     string
	generator        Generator

	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int
	cacheTTL         time.Duration

	retrieval     RetrievalOptions
	maxTokens     int
	temperature   float32
	ingestWorkers int
	ingestBatch   int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis 8 instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the key prefix shared with the server. Defaults to "paralegal:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.prefix = prefix
	})
}

// WithOpenAIEmbedding embeds through an OpenAI-compatible endpoint. Vectors
// are cached in Redis and failed calls are retried.
func WithOpenAIEmbedding(p Provider, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedding = &p
		if dimensions > 0 {
			c.vectorDimensions = dimensions
		}
	})
}

// WithQueryInstruction prepends instruction to questions before embedding them.
func WithQueryInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryInstruction = instruction
	})
}

// WithEmbedder sets a custom embedding provider. Overrides WithOpenAIEmbedding.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAIGeneration generates answers through an OpenAI-compatible chat endpoint.
func WithOpenAIGeneration(p Provider) Option {
	return optionFunc(func(c *clientConfig) {
		c.generation = &p
	})
}

// WithSystemPrompt sets the system message sent with every generation request.
func WithSystemPrompt(prompt string) Option {
	return optionFunc(func(c *clientConfig) {
		c.systemPrompt = prompt
	})
}

// WithGenerator sets a custom generator. Overrides WithOpenAIGeneration.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithSampling sets the completion limits. Defaults: 1024 tokens, temperature 0.3.
func WithSampling(maxTokens int, temperature float32) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTokens = maxTokens
		c.temperature = temperature
	})
}

// WithVectorDimensions sets the vector dimension of new namespace indexes.
// Defaults to 768 (text-embedding-004).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithEmbeddingCacheTTL expires cached vectors. Default: never.
func WithEmbeddingCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithRetrieval tunes fan-out sizes and deadlines.
func WithRetrieval(o RetrievalOptions) Option {
	return optionFunc(func(c *clientConfig) {
		c.retrieval = o
	})
}

// WithIngest sets the ingestion worker count and chunks per embedding batch.
// Defaults: 4 workers, 64 chunks.
func WithIngest(workers, batchSize int) Option {
	return optionFunc(func(c *clientConfig) {
		c.ingestWorkers = workers
		c.ingestBatch = batchSize
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
