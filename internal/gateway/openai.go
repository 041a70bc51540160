package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/tradecouncil/tradecouncil/config"
)

// OpenAIGateway backs the ModelGateway contract with two OpenAI-compatible
// chat models, one per tier. DeepSeek, OpenRouter, Ollama and similar
// endpoints work through the same component by switching BackendURL.
type OpenAIGateway struct {
	quick   model.BaseChatModel
	deep    model.BaseChatModel
	timeout time.Duration
}

func NewOpenAIGateway(ctx context.Context, cfg config.Config) (*OpenAIGateway, error) {
	if cfg.APIKey == "" {
		return nil, &Error{Kind: KindAuth, Err: fmt.Errorf("no API key configured for provider %s", cfg.LLMProvider)}
	}

	maxTokens := 8192
	quick, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.BackendURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.QuickThinkLLM,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init quick-think model %s: %w", cfg.QuickThinkLLM, err)
	}

	deep, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL:   cfg.BackendURL,
		APIKey:    cfg.APIKey,
		Model:     cfg.DeepThinkLLM,
		MaxTokens: &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("init deep-think model %s: %w", cfg.DeepThinkLLM, err)
	}

	return &OpenAIGateway{
		quick:   quick,
		deep:    deep,
		timeout: time.Duration(cfg.GatewayTimeoutSecs) * time.Second,
	}, nil
}

func (g *OpenAIGateway) Complete(ctx context.Context, role string, tier Tier, messages []*schema.Message) (string, error) {
	chatModel := g.quick
	if tier == TierDeep {
		chatModel = g.deep
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := chatModel.Generate(callCtx, messages)
	if err != nil {
		return "", classify(ctx, role, err)
	}
	// An empty completion is a shape problem, not a transport one: it is
	// returned as-is so the stage runner's validation can issue its one
	// repair prompt.
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

// classify maps raw provider errors onto the error taxonomy. Unrecognized
// transport failures are treated as timeouts: transient, retryable.
func classify(ctx context.Context, role string, err error) *Error {
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		return &Error{Kind: KindCanceled, Role: role, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Role: role, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "quota"):
		return &Error{Kind: KindRateLimited, Role: role, Err: err}
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "authentication"):
		return &Error{Kind: KindAuth, Role: role, Err: err}
	case strings.Contains(msg, "context canceled"):
		return &Error{Kind: KindCanceled, Role: role, Err: err}
	default:
		return &Error{Kind: KindTimeout, Role: role, Err: err}
	}
}
