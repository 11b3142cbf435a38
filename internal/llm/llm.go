// Package llm builds the remote chat-completion services used by the advisor
// and the bond search.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/deepseek"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/dyike/BondCortex/config"
	"github.com/dyike/BondCortex/consts"
)

// NewChatModel returns a chat model for the configured provider. A missing
// credential fails here, before any request is sent.
func NewChatModel(ctx context.Context, cfg *config.Config, modelName string) (model.BaseChatModel, error) {
	apiKey := strings.TrimSpace(cfg.APIKey())
	if apiKey == "" {
		return nil, fmt.Errorf("%w for provider %s", config.ErrMissingAPIKey, cfg.LLMProvider)
	}
	modelName = ResolveModel(cfg.LLMProvider, modelName)

	switch cfg.LLMProvider {
	case consts.ProviderOpenAI:
		chatModel, err := openai.NewChatModel(ctx, openAIConfig(cfg, apiKey, modelName))
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		return chatModel, nil
	case consts.ProviderDeepSeek:
		chatModel, err := deepseek.NewChatModel(ctx, deepSeekConfig(cfg, apiKey, modelName))
		if err != nil {
			return nil, fmt.Errorf("create deepseek model: %w", err)
		}
		return chatModel, nil
	case consts.ProviderGemini:
		return NewGeminiChatModel(ctx, apiKey, modelName)
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, cfg.LLMProvider)
}

// BackendURL points either OpenAI-compatible provider at another endpoint.
// Gemini always talks to the Gemini API.
func openAIConfig(cfg *config.Config, apiKey, modelName string) *openai.ChatModelConfig {
	return &openai.ChatModelConfig{
		BaseURL: cfg.BackendURL,
		APIKey:  apiKey,
		Model:   modelName,
	}
}

func deepSeekConfig(cfg *config.Config, apiKey, modelName string) *deepseek.ChatModelConfig {
	return &deepseek.ChatModelConfig{
		BaseURL: cfg.BackendURL,
		APIKey:  apiKey,
		Model:   modelName,
	}
}

// ResolveModel maps the OpenAI default identifiers onto the provider's own
// default. Explicitly configured names are kept.
func ResolveModel(provider, name string) string {
	if name != consts.DefaultAdvisorModel && name != consts.DefaultSearchModel {
		return name
	}
	switch provider {
	case consts.ProviderDeepSeek:
		return consts.DefaultDeepSeekModel
	case consts.ProviderGemini:
		return consts.DefaultGeminiModel
	}
	return name
}
