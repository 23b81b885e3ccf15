package llm

import "context"

// GenerationParams tune a single completion request.
type GenerationParams struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
}

// CompletionClient produces a chat completion for a system/user message
// pair. Implementations must be safe for concurrent use.
type CompletionClient interface {
	Complete(ctx context.Context, systemMessage, prompt string, params GenerationParams) (string, error)
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
