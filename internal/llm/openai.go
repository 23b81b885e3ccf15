package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements CompletionClient against any OpenAI-compatible
// chat completion endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client. baseURL may be empty for the hosted API,
// or point at a local OpenAI-compatible server.
func NewOpenAIClient(baseURL, apiKey, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends one chat completion request and returns the assistant text.
func (c *OpenAIClient) Complete(ctx context.Context, systemMessage, prompt string, params GenerationParams) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if systemMessage != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemMessage,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIEmbedder implements Embedder against an OpenAI-compatible embeddings
// endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder builds an embedder with an optional custom base URL.
func NewOpenAIEmbedder(baseURL, apiKey, model string) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Embed returns the embedding vector for the text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("create embeddings: empty response")
	}
	return resp.Data[0].Embedding, nil
}
