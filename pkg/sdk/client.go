package paralegal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/backoff"
	"github.com/kailas-cloud/paralegal/internal/db"
	dbRedis "github.com/kailas-cloud/paralegal/internal/db/redis"
	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	"github.com/kailas-cloud/paralegal/internal/domain/strategy"
	"github.com/kailas-cloud/paralegal/internal/metrics"
	chunkrepo "github.com/kailas-cloud/paralegal/internal/repository/chunk"
	"github.com/kailas-cloud/paralegal/internal/repository/embcache"
	openaiTransport "github.com/kailas-cloud/paralegal/internal/transport/openai"
	chatuc "github.com/kailas-cloud/paralegal/internal/usecase/chat"
	"github.com/kailas-cloud/paralegal/internal/usecase/classify"
	"github.com/kailas-cloud/paralegal/internal/usecase/compose"
	embeddinguc "github.com/kailas-cloud/paralegal/internal/usecase/embedding"
	"github.com/kailas-cloud/paralegal/internal/usecase/expand"
	generationuc "github.com/kailas-cloud/paralegal/internal/usecase/generation"
	healthuc "github.com/kailas-cloud/paralegal/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/paralegal/internal/usecase/ingest"
	"github.com/kailas-cloud/paralegal/internal/usecase/keyword"
	"github.com/kailas-cloud/paralegal/internal/usecase/prompt"
	strategyuc "github.com/kailas-cloud/paralegal/internal/usecase/strategy"
	"github.com/kailas-cloud/paralegal/internal/usecase/vector"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "paralegal:"
	defaultVectorDim        = 768
	defaultHNSWM            = 16
	defaultHNSWEFConstruct  = 200
)

// Internal interfaces, swapped out in tests.
type chatUseCase interface {
	Chat(ctx context.Context, raw string) (chatuc.Response, error)
	Namespaces(ctx context.Context) ([]namespace.Namespace, error)
}

type ingestUseCase interface {
	Ingest(ctx context.Context, ns string, r io.Reader) (ingestuc.Result, error)
}

// Client is the paralegal SDK entry point. Safe for concurrent use.
type Client struct {
	store     db.Store
	chatSvc   chatUseCase
	ingestSvc ingestUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to Redis.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		prefix:           defaultKeyPrefix,
		vectorDimensions: defaultVectorDim,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("paralegal: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("paralegal: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("paralegal: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	hnswM, hnswEF := cfg.hnswM, cfg.hnswEFConstruct
	if hnswM <= 0 {
		hnswM = defaultHNSWM
	}
	if hnswEF <= 0 {
		hnswEF = defaultHNSWEFConstruct
	}
	repo := chunkrepo.New(store, chunkrepo.Config{
		KeyPrefix: cfg.prefix,
		VectorDim: cfg.vectorDimensions,
		HNSW:      chunkrepo.HNSWConfig{M: hnswM, EFConstruct: hnswEF},
	}, metrics.MalformedChunksTotal)

	docEmb, embHealth := buildEmbedder(store, cfg)
	var queryEmb domain.Embedder = docEmb
	if cfg.queryInstruction != "" {
		queryEmb = domain.NewInstructionEmbedder(docEmb, cfg.queryInstruction)
	}
	gen, genHealth := buildGenerator(cfg)

	ro := cfg.retrieval
	chatSvc := chatuc.New(chatuc.Deps{
		Classifier: classify.New(),
		Expander:   expand.New(),
		Namespaces: repo,
		Keyword:    keyword.New(repo, ro.EnumerateBatch),
		Vector: vector.New(queryEmb, repo, vector.Options{
			EmbedTimeout:   ro.EmbedTimeout,
			QueryTimeout:   ro.QueryTimeout,
			MaxParallelism: ro.MaxParallelism,
		}),
		Selector:  strategyuc.New(strategy.StyleStandard),
		Composer:  compose.New(nil, 0),
		Prompts:   prompt.MustNew(),
		Generator: gen,
	}, chatuc.Options{
		KeywordTopK:       ro.KeywordTopK,
		VectorTopK:        ro.VectorTopK,
		FusedTopK:         ro.FusedTopK,
		MaxParallelism:    ro.MaxParallelism,
		EnumerateTimeout:  ro.EnumerateTimeout,
		GenerationTimeout: ro.GenerationTimeout,
		MaxTokens:         cfg.maxTokens,
		Temperature:       temperatureOrDefault(cfg.temperature),
	})

	ingestSvc := ingestuc.New(docEmb, repo, ingestuc.Options{
		Workers:   cfg.ingestWorkers,
		BatchSize: cfg.ingestBatch,
	})

	providers := map[string]healthuc.ProviderChecker{}
	if embHealth != nil {
		providers["embedding"] = embHealth
	}
	if genHealth != nil {
		providers["generation"] = genHealth
	}

	return &Client{
		store:     store,
		chatSvc:   chatSvc,
		ingestSvc: ingestSvc,
		healthSvc: healthuc.New(store, providers),
		obs:       obs,
	}
}

// buildEmbedder assembles Provider -> Retry -> Cached -> Instrumented.
// The health checker is nil for custom embedders.
func buildEmbedder(store db.Store, cfg *clientConfig) (domain.Embedder, healthuc.ProviderChecker) {
	var (
		inner    domain.Embedder = noopEmbedder{}
		checker  healthuc.ProviderChecker
		provider = "custom"
		model    = "custom"
	)
	switch {
	case cfg.embedder != nil:
		inner = &embedderAdapter{inner: cfg.embedder}
	case cfg.embedding != nil:
		p := cfg.embedding
		provider, model = providerName(p.Name, "openai"), p.Model
		base := openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     p.APIKey,
			BaseURL:    p.BaseURL,
			Model:      p.Model,
			Dimensions: cfg.vectorDimensions,
			Provider:   provider,
			Logger:     zap.NewNop(),
		})
		inner, checker = embeddinguc.NewRetryingEmbedder(base, backoff.DefaultPolicy, provider, zap.NewNop()), base
	default:
		return inner, nil
	}

	cached := embcache.New(inner, store, metrics.EmbeddingCacheTotal, zap.NewNop(), embcache.Options{
		KeyPrefix: cfg.prefix,
		Model:     model,
		TTL:       cfg.cacheTTL,
	})
	return embeddinguc.NewInstrumentedEmbedder(cached, provider, model, 0, zap.NewNop()), checker
}

func buildGenerator(cfg *clientConfig) (domain.Generator, healthuc.ProviderChecker) {
	switch {
	case cfg.generator != nil:
		return &generatorAdapter{inner: cfg.generator}, nil
	case cfg.generation != nil:
		p := cfg.generation
		base := openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:   p.APIKey,
			BaseURL:  p.BaseURL,
			Model:    p.Model,
			Provider: providerName(p.Name, "openai"),
			Logger:   zap.NewNop(),
		}, cfg.systemPrompt)
		return generationuc.NewRetryingGenerator(base, backoff.DefaultPolicy, p.Model, zap.NewNop()), base
	default:
		return noopGenerator{}, nil
	}
}

func providerName(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func temperatureOrDefault(t float32) float32 {
	if t == 0 {
		return chatuc.DefaultOptions.Temperature
	}
	return t
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Chat answers a question over every indexed namespace.
//
// Partial retrieval failures are not errors: check ChatResponse.Warnings.
// Errors wrap ErrEmptyQuery, ErrRetrievalFailed or a storage failure.
func (c *Client) Chat(ctx context.Context, query string) (resp ChatResponse, err error) {
	start := time.Now()
	defer func() { c.obs.observeChat(start, &resp, err) }()

	r, err := c.chatSvc.Chat(ctx, query)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("chat: %w", err)
	}
	return chatResponseFromDomain(&r), nil
}

// Namespaces lists the indexed namespaces, sorted by name.
func (c *Client) Namespaces(ctx context.Context) (out []Namespace, err error) {
	start := time.Now()
	defer func() { c.obs.observe("namespaces", start, err) }()

	nss, err := c.chatSvc.Namespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("namespaces: %w", err)
	}
	out = make([]Namespace, len(nss))
	for i, ns := range nss {
		out[i] = Namespace{Name: ns.Name, VectorCount: ns.VectorCount}
	}
	return out, nil
}

// Ingest embeds and stores the JSON Lines chunks read from r under namespace ns.
// Invalid lines are skipped and failed batches counted; neither stops the run.
func (c *Client) Ingest(ctx context.Context, ns string, r io.Reader) (res IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observeIngest(start, &res, err) }()

	out, err := c.ingestSvc.Ingest(ctx, ns, r)
	res = IngestResult{
		Namespace:       out.Namespace,
		Processed:       out.Processed,
		Failed:          out.Failed,
		Skipped:         out.Skipped,
		EmbeddingTokens: out.EmbeddingTokens,
		Duration:        out.Duration,
	}
	if err != nil {
		return res, fmt.Errorf("ingest: %w", err)
	}
	return res, nil
}

func chatResponseFromDomain(r *chatuc.Response) ChatResponse {
	out := ChatResponse{
		Answer:   r.Answer,
		Contexts: r.Contexts,
		General:  r.General,
		Category: string(r.Category),
		Strategy: string(r.Strategy),
		Style:    string(r.Style),
		Variants: r.Variants,
		Warnings: r.Warnings,
	}
	if len(r.Sources) > 0 {
		out.Sources = make([]Source, len(r.Sources))
		for i, s := range r.Sources {
			out.Sources[i] = Source{File: s.File, Namespace: s.Namespace, Page: s.Page}
		}
	}
	return out
}
