package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/paralegal/internal/domain"
	"github.com/kailas-cloud/paralegal/internal/metrics"
)

// Generator produces answers through an OpenAI-compatible chat completion API (e.g. Groq).
// Safe for concurrent use.
type Generator struct {
	client       *openai.Client
	model        string
	systemPrompt string
	logger       *zap.Logger
}

// NewGenerator creates a chat completion client. systemPrompt may be empty.
func NewGenerator(cfg *Config, systemPrompt string) *Generator {
	return &Generator{
		client:       newClient(cfg),
		model:        cfg.Model,
		systemPrompt: systemPrompt,
		logger:       cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if g.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: g.systemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return domain.GenerationResult{}, parseAPIError("generation", err, domain.ErrGenerationProviderError)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf("empty completion: %w", domain.ErrGenerationProviderError)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())
	metrics.GenerationTokensTotal.WithLabelValues(g.model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.GenerationTokensTotal.WithLabelValues(g.model, "completion").Add(float64(resp.Usage.CompletionTokens))

	g.logger.Debug("Generation completed",
		zap.String("model", g.model),
		zap.Duration("duration", duration),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return domain.GenerationResult{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels.
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
