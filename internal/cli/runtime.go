package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/BondCortex/config"
	"github.com/dyike/BondCortex/internal/bonds"
	"github.com/dyike/BondCortex/internal/debug"
	"github.com/dyike/BondCortex/internal/llm"
	"github.com/dyike/BondCortex/internal/portfolio"
	"github.com/dyike/BondCortex/internal/prompt"
	"github.com/dyike/BondCortex/internal/search"
	"github.com/dyike/BondCortex/models"
)

// runtime is everything a request needs, built once from a config.
type runtime struct {
	advisor *portfolio.Advisor
	dataset *models.BondDataset
}

func buildRuntime(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	dataset, err := bonds.Load(cfg.BondsPath)
	if err != nil {
		return nil, fmt.Errorf("load bonds: %w", err)
	}

	instruction, err := prompt.AdvisorInstruction(cfg.InstructionsPath)
	if err != nil {
		return nil, err
	}

	advisorModel, err := llm.NewChatModel(ctx, cfg, cfg.AdvisorModel)
	if err != nil {
		return nil, fmt.Errorf("advisor model: %w", err)
	}
	searchModel, err := llm.NewChatModel(ctx, cfg, cfg.SearchModel)
	if err != nil {
		return nil, fmt.Errorf("search model: %w", err)
	}

	searcher, err := search.NewSearcher(ctx, searchModel,
		search.WithSampling(cfg.SearchTemperature, cfg.SearchMaxTokens),
		search.WithLogger(logger.Named("search")),
	)
	if err != nil {
		return nil, err
	}
	opts := []portfolio.Option{
		portfolio.WithMaxToolRounds(cfg.MaxToolRounds),
		portfolio.WithFirstToolCallOnly(cfg.FirstToolCallOnly),
		portfolio.WithLogger(logger.Named("advisor")),
	}
	if cfg.Debug {
		opts = append(opts, portfolio.WithCallbacks(debug.RunInfo, debug.NewLoggerCallback(logger.Named("model"))))
	}
	advisor := portfolio.New(advisorModel, searcher, instruction, opts...)

	logger.Info("advisor ready",
		zap.String("provider", cfg.LLMProvider),
		zap.String("advisor_model", llm.ResolveModel(cfg.LLMProvider, cfg.AdvisorModel)),
		zap.String("search_model", llm.ResolveModel(cfg.LLMProvider, cfg.SearchModel)),
		zap.Int("bonds", dataset.Len()),
	)
	return &runtime{advisor: advisor, dataset: dataset}, nil
}
