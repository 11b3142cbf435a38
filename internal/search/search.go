// Package search implements the bond search behind the search_bonds tool.
package search

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/dyike/BondCortex/internal/prompt"
	"github.com/dyike/BondCortex/models"
)

// ChainName identifies the compiled search chain in the eino debugger.
const ChainName = "BondCortex-BondSearch"

// Searcher answers a free-text query against the bond dataset with one chat
// completion. The whole dataset goes into the system turn on every call.
type Searcher struct {
	runnable    compose.Runnable[map[string]any, *schema.Message]
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

type Option func(*Searcher)

func WithSampling(temperature float32, maxTokens int) Option {
	return func(s *Searcher) {
		s.temperature = temperature
		s.maxTokens = maxTokens
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// NewSearcher compiles the search chain: the FString search template
// followed by the chat model.
func NewSearcher(ctx context.Context, chatModel model.BaseChatModel, opts ...Option) (*Searcher, error) {
	s := &Searcher{
		temperature: 0.7,
		maxTokens:   500,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	tpl, err := prompt.SearchTemplate()
	if err != nil {
		return nil, err
	}

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(tpl)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx, compose.WithGraphName(ChainName))
	if err != nil {
		return nil, fmt.Errorf("failed to compile search chain: %w", err)
	}
	s.runnable = runnable
	return s, nil
}

// Search returns the model's answer verbatim. No tools are offered, so the
// call cannot recurse.
func (s *Searcher) Search(ctx context.Context, query string, dataset *models.BondDataset) (string, error) {
	s.logger.Debug("searching bonds",
		zap.Int("bonds", dataset.Len()),
		zap.Int("dataset_bytes", len(dataset.JSON())),
	)

	resp, err := s.runnable.Invoke(ctx, prompt.SearchVariables(dataset.JSON(), query),
		compose.WithChatModelOption(
			model.WithTemperature(s.temperature),
			model.WithMaxTokens(s.maxTokens),
		),
	)
	if err != nil {
		return "", fmt.Errorf("search bonds: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("search bonds: empty response")
	}
	return resp.Content, nil
}
