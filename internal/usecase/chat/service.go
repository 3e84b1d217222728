// Package chat answers user questions over the indexed legal documents.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/domain/namespace"
	"github.com/kailas-cloud/paralegal/internal/domain/query"
	"github.com/kailas-cloud/paralegal/internal/domain/search/result"
	"github.com/kailas-cloud/paralegal/internal/domain/strategy"
	"github.com/kailas-cloud/paralegal/internal/logger"
	"github.com/kailas-cloud/paralegal/internal/metrics"
	"github.com/kailas-cloud/paralegal/internal/usecase/classify"
	"github.com/kailas-cloud/paralegal/internal/usecase/fusion"
)

const (
	keywordSource = "keyword"
	vectorSource  = "vector"
)

// Deps are the collaborators of the service. All are required.
type Deps struct {
	Classifier Classifier
	Expander   Expander
	Namespaces NamespaceLister
	Keyword    KeywordSearcher
	Vector     VectorSearcher
	Selector   StrategySelector
	Composer   Composer
	Prompts    PromptRenderer
	Generator  domain.Generator
}

// Options tune retrieval and generation.
type Options struct {
	KeywordTopK    int // per namespace
	VectorTopK     int // across namespaces
	FusedTopK      int
	MaxParallelism int

	ListTimeout       time.Duration
	EnumerateTimeout  time.Duration
	GenerationTimeout time.Duration

	MaxTokens   int
	Temperature float32
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{
	KeywordTopK:    5,
	VectorTopK:     5,
	FusedTopK:      5,
	MaxParallelism: 8,
	MaxTokens:      1024,
	Temperature:    0.3,
}

// Source is a cited document.
type Source struct {
	File      string
	Namespace string
	Page      int
}

// Response is the outcome of one chat turn.
type Response struct {
	Answer   string
	Sources  []Source
	Contexts []string

	General  bool
	Category classify.Category
	Strategy strategy.Strategy
	Style    strategy.SummaryStyle
	Variants []string
	// Warnings name namespaces whose retrieval failed; their passages are missing.
	Warnings []string
}

// Service runs the retrieval pipeline. Stateless across requests.
type Service struct {
	deps Deps
	opts Options
}

// New creates a chat service. Zero options take DefaultOptions values.
func New(deps Deps, opts Options) *Service {
	if opts.KeywordTopK <= 0 {
		opts.KeywordTopK = DefaultOptions.KeywordTopK
	}
	if opts.VectorTopK <= 0 {
		opts.VectorTopK = DefaultOptions.VectorTopK
	}
	if opts.FusedTopK <= 0 {
		opts.FusedTopK = DefaultOptions.FusedTopK
	}
	if opts.MaxParallelism <= 0 {
		opts.MaxParallelism = DefaultOptions.MaxParallelism
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultOptions.MaxTokens
	}
	return &Service{deps: deps, opts: opts}
}

// Namespaces lists the searchable namespaces.
func (s *Service) Namespaces(ctx context.Context) ([]namespace.Namespace, error) {
	ctx, cancel := withTimeout(ctx, s.opts.ListTimeout)
	defer cancel()

	nss, err := s.deps.Namespaces.ListNamespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	return nss, nil
}

// Chat answers raw.
//
// Only an empty query, a namespace listing failure and the failure of every
// retrieval task are errors. Partial retrieval failures are reported in
// Response.Warnings; provider failures during generation become canned answers.
func (s *Service) Chat(ctx context.Context, raw string) (Response, error) {
	resp, outcome, err := s.chat(ctx, raw)
	metrics.ChatRequestsTotal.WithLabelValues(outcome).Inc()
	return resp, err
}

func (s *Service) chat(ctx context.Context, raw string) (Response, string, error) {
	log := logger.FromContext(ctx)

	q := query.New(raw)
	if q.Empty() {
		return Response{}, "invalid", domain.ErrEmptyQuery
	}

	if general, cat := s.deps.Classifier.Classify(q.Raw); general {
		return Response{Answer: classify.Response(cat), General: true, Category: cat}, "general", nil
	}

	start := time.Now()
	nss, err := s.Namespaces(ctx)
	observe("namespaces", start)
	if err != nil {
		return Response{}, "error", err
	}
	if len(nss) == 0 {
		return Response{Answer: NoDocumentsAnswer}, "no_namespaces", nil
	}
	names := namespace.Names(nss)

	exp := s.deps.Expander.Expand(q.Raw)
	resp := Response{Variants: exp.Variants}

	r := s.retrieve(ctx, exp.Terms, q.Raw, names)
	if errors.Is(r.vectorErr, domain.ErrInvalidCredentials) {
		log.Error("Embedding provider rejected credentials", zap.Error(r.vectorErr))
		resp.Answer = CredentialsAnswer
		return resp, "auth_error", nil
	}

	failures := r.failures(names)
	if perr := domain.NewPartialRetrievalError(failures); perr != nil {
		recordFailures(failures)
		if len(failures) == 2*len(names) {
			return Response{}, "error", fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, perr)
		}
		log.Warn("Partial retrieval", zap.Int("failed_tasks", len(failures)), zap.Error(perr))
		resp.Warnings = perr.Warnings()
	}

	fused := fusion.Fuse(r.keyword, r.vector, s.opts.FusedTopK)
	metrics.FusedResults.Observe(float64(len(fused)))
	if len(fused) == 0 {
		resp.Answer = NoResultsAnswer
		return resp, "no_results", nil
	}

	decision := s.deps.Selector.Select(q.Raw)
	resp.Strategy, resp.Style = decision.Strategy, decision.Style

	payload := s.deps.Composer.Compose(fused, q.Raw)
	resp.Contexts = payload.Contexts
	for _, c := range payload.Citations {
		resp.Sources = append(resp.Sources, Source{File: c.Source, Namespace: c.Namespace, Page: c.Page})
	}

	prompt, err := s.deps.Prompts.Render(decision, q.Raw, payload.Text)
	if err != nil {
		return Response{}, "error", fmt.Errorf("render prompt: %w", err)
	}

	answer, outcome := s.generate(ctx, prompt)
	resp.Answer = answer
	return resp, outcome, nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, string) {
	ctx, cancel := withTimeout(ctx, s.opts.GenerationTimeout)
	defer cancel()

	start := time.Now()
	res, err := s.deps.Generator.Generate(ctx, domain.GenerationRequest{
		Prompt:      prompt,
		MaxTokens:   s.opts.MaxTokens,
		Temperature: s.opts.Temperature,
	})
	observe("generation", start)

	switch {
	case err == nil:
		return res.Text, "answered"
	case errors.Is(err, domain.ErrInvalidCredentials):
		logger.FromContext(ctx).Error("Generation provider rejected credentials", zap.Error(err))
		return CredentialsAnswer, "auth_error"
	default:
		logger.FromContext(ctx).Error("Generation failed", zap.Error(err))
		return FailureAnswer, "generation_error"
	}
}

type retrieval struct {
	keyword     []result.Result
	keywordFail []domain.NamespaceFailure
	vector      []result.Result
	vectorFail  []domain.NamespaceFailure
	vectorErr   error
}

// failures merges both fan-outs. A failed query embedding fails every vector task.
func (r retrieval) failures(names []string) []domain.NamespaceFailure {
	out := append([]domain.NamespaceFailure(nil), r.keywordFail...)
	if r.vectorErr != nil {
		for _, ns := range names {
			out = append(out, domain.NamespaceFailure{Namespace: ns, Source: vectorSource, Err: r.vectorErr})
		}
		return out
	}
	return append(out, r.vectorFail...)
}

// retrieve runs the keyword and vector fan-outs concurrently and waits for both.
func (s *Service) retrieve(ctx context.Context, terms []string, raw string, names []string) retrieval {
	var (
		r retrieval
		g errgroup.Group
	)
	g.Go(func() error {
		start := time.Now()
		r.keyword, r.keywordFail = s.keywordFanOut(ctx, terms, names)
		observe("keyword", start)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		r.vector, r.vectorFail, r.vectorErr = s.deps.Vector.Search(ctx, raw, names, s.opts.VectorTopK)
		observe("vector", start)
		return nil
	})
	_ = g.Wait()
	return r
}

func (s *Service) keywordFanOut(ctx context.Context, terms, names []string) ([]result.Result, []domain.NamespaceFailure) {
	perNS := make([][]result.Result, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	g.SetLimit(s.opts.MaxParallelism)
	for i, ns := range names {
		g.Go(func() error {
			nctx, cancel := withTimeout(ctx, s.opts.EnumerateTimeout)
			defer cancel()
			perNS[i], errs[i] = s.deps.Keyword.Search(nctx, terms, ns, s.opts.KeywordTopK)
			return nil // siblings keep running
		})
	}
	_ = g.Wait()

	var (
		results  []result.Result
		failures []domain.NamespaceFailure
	)
	for i, ns := range names {
		if errs[i] != nil {
			failures = append(failures, domain.NamespaceFailure{Namespace: ns, Source: keywordSource, Err: errs[i]})
			continue
		}
		results = append(results, perNS[i]...)
	}
	return results, failures
}

func recordFailures(failures []domain.NamespaceFailure) {
	for _, f := range failures {
		reason := "error"
		switch {
		case errors.Is(f.Err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(f.Err, context.Canceled):
			reason = "canceled"
		}
		metrics.NamespaceFailuresTotal.WithLabelValues(f.Source, reason).Inc()
	}
}

func observe(stage string, start time.Time) {
	metrics.RetrievalStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
