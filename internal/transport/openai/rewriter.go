package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Lbridge2222/bridge-fullstack-sub000/internal/domain"
)

// Rewriter requests alternative query phrasings from an OpenAI-compatible
// chat completion endpoint. The expander owns all filtering of the output;
// this type only moves text.
type Rewriter struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// RewriterConfig holds the generation provider settings.
type RewriterConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewRewriter creates a chat-completion rewrite generator.
func NewRewriter(cfg *RewriterConfig) *Rewriter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	return &Rewriter{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// Generate sends the instruction and query to the chat endpoint and returns
// the raw completion text (newline-separated rewrites by convention).
func (r *Rewriter) Generate(ctx context.Context, instruction, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
		Temperature: 0.7,
		MaxTokens:   120,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", domain.ErrGenerationProviderError)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGenerationProviderError)
	}

	return resp.Choices[0].Message.Content, nil
}
