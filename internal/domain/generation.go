package domain

import "context"

// GenerationRequest is a single prompt for the text generation API.
type GenerationRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// GenerationResult carries generated text and token usage.
type GenerationResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// Generator produces text from a rendered prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}
