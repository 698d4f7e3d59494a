package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultOpenAIModel is the default OpenAI chat model.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint for OpenAI-compatible services.
	BaseURL string

	// Model is the default chat model (default: gpt-4o-mini).
	Model string
}

// OpenAIClient implements Client using the OpenAI chat completions API.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIClient creates a client for OpenAI or a compatible API.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: slog.Default().With("component", "openai-llm"),
	}
}

// Complete sends a prompt as a single user message and returns the response.
func (c *OpenAIClient) Complete(ctx context.Context, prompt string, opts Options) (*Completion, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: opts.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrCompletionFailed)
	}

	choice := resp.Choices[0]
	completion := &Completion{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		PromptBytes:  len(prompt),
		OutputBytes:  len(choice.Message.Content),
	}

	c.logger.Debug("llm call completed",
		"model", model,
		"prompt_bytes", completion.PromptBytes,
		"output_bytes", completion.OutputBytes,
		"finish_reason", completion.FinishReason,
	)

	return completion, nil
}

// Ensure OpenAIClient implements Client interface.
var _ Client = (*OpenAIClient)(nil)
