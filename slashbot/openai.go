package slashbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrAIDisabled indicates no OpenAI token is configured.
var ErrAIDisabled = errors.New("text generation is not configured")

// OpenAI wraps the chat-completion client with a rate limiter, so a
// burst of /generate_text commands can't exceed the configured request
// rate.
type OpenAI struct {
	client       *openai.Client
	config       *OpenAIConfig
	requestLimit *rate.Limiter
	logger       *slog.Logger
}

func NewOpenAI(cfg *OpenAIConfig, logger *slog.Logger) *OpenAI {
	if logger == nil {
		logger = slog.Default()
	}
	ai := &OpenAI{
		config: cfg,
		logger: logger.With(loggerNameKey, "openai"),
		requestLimit: rate.NewLimiter(
			rate.Limit(cfg.MaxRequestsPerSecond),
			1,
		),
	}
	if cfg.Token != "" {
		ai.client = openai.NewClient(cfg.Token)
	}
	return ai
}

// Enabled reports whether an API token is configured.
func (ai *OpenAI) Enabled() bool {
	return ai != nil && ai.client != nil
}

// Complete generates a single chat completion for the given prompt.
// Blocks on the rate limiter until a request slot is available or the
// context expires.
func (ai *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	if !ai.Enabled() {
		return "", ErrAIDisabled
	}

	if err := ai.requestLimit.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	messages := []openai.ChatCompletionMessage{}
	if ai.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: ai.config.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := ai.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:     ai.config.Model,
			MaxTokens: ai.config.MaxTokens,
			Messages:  messages,
		},
	)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	ai.logger.InfoContext(
		ctx,
		"completion finished",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
