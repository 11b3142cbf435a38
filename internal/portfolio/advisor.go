// Package portfolio runs the advisor conversation: it relays the dialogue to
// the chat model and executes the tool calls the model requests until a turn
// arrives without any.
package portfolio

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/dyike/BondCortex/consts"
	"github.com/dyike/BondCortex/internal/search"
	"github.com/dyike/BondCortex/models"
)

var (
	ErrEmptyHistory       = errors.New("conversation history is empty")
	ErrNoDataset          = errors.New("bond dataset is required")
	ErrUnknownTool        = errors.New("model requested an unknown tool")
	ErrToolRoundsExceeded = errors.New("tool round limit exceeded")
)

const defaultMaxToolRounds = 8

// Result is the outcome of one advisor run. Transcript starts with the system
// instruction and ends with the final assistant turn.
type Result struct {
	Recommendation string
	Transcript     []*schema.Message
}

type Advisor struct {
	model       model.BaseChatModel
	searcher    search.BondSearcher
	instruction string
	tools       []*schema.ToolInfo

	maxRounds int
	firstOnly bool
	logger    *zap.Logger

	runInfo  *callbacks.RunInfo
	handlers []callbacks.Handler
}

type Option func(*Advisor)

// WithMaxToolRounds caps the number of tool rounds per run.
func WithMaxToolRounds(n int) Option {
	return func(a *Advisor) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithFirstToolCallOnly executes only the first tool call of each model turn.
func WithFirstToolCallOnly(enabled bool) Option {
	return func(a *Advisor) {
		a.firstOnly = enabled
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Advisor) {
		a.logger = logger
	}
}

// WithCallbacks installs eino callback handlers around every model call of a
// run, including the search tool's.
func WithCallbacks(info *callbacks.RunInfo, handlers ...callbacks.Handler) Option {
	return func(a *Advisor) {
		a.runInfo = info
		a.handlers = append(a.handlers, handlers...)
	}
}

func New(chatModel model.BaseChatModel, searcher search.BondSearcher, instruction string, opts ...Option) *Advisor {
	a := &Advisor{
		model:       chatModel,
		searcher:    searcher,
		instruction: instruction,
		tools:       []*schema.ToolInfo{search.ToolInfo},
		maxRounds:   defaultMaxToolRounds,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run answers the conversation in history. The dataset is only read.
// Calls to the model are strictly sequential; an Advisor keeps no state
// between runs and may serve concurrent callers.
func (a *Advisor) Run(ctx context.Context, history []*schema.Message, dataset *models.BondDataset) (*Result, error) {
	if len(history) == 0 {
		return nil, ErrEmptyHistory
	}
	if dataset == nil {
		return nil, ErrNoDataset
	}

	if len(a.handlers) > 0 {
		ctx = callbacks.InitCallbacks(ctx, a.runInfo, a.handlers...)
	}

	registry := map[string]tool.InvokableTool{
		consts.SearchBondsTool: search.NewTool(a.searcher, dataset),
	}

	transcript := make([]*schema.Message, 0, len(history)+3)
	transcript = append(transcript, schema.SystemMessage(a.instruction))
	transcript = append(transcript, history...)

	for round := 0; ; round++ {
		resp, err := a.model.Generate(ctx, transcript,
			model.WithTools(a.tools),
			model.WithToolChoice(schema.ToolChoiceAllowed),
		)
		if err != nil {
			return nil, fmt.Errorf("advisor round %d: %w", round, err)
		}
		if resp == nil {
			return nil, fmt.Errorf("advisor round %d: empty response", round)
		}

		a.logger.Debug("advisor response",
			zap.Int("round", round),
			zap.Int("tool_calls", len(resp.ToolCalls)),
		)

		if len(resp.ToolCalls) == 0 {
			transcript = append(transcript, resp)
			return &Result{
				Recommendation: resp.Content,
				Transcript:     transcript,
			}, nil
		}

		if round >= a.maxRounds {
			return nil, fmt.Errorf("%w: more than %d rounds", ErrToolRoundsExceeded, a.maxRounds)
		}

		if a.firstOnly && len(resp.ToolCalls) > 1 {
			// Keep the recorded turn consistent with the calls actually answered.
			trimmed := *resp
			trimmed.ToolCalls = resp.ToolCalls[:1:1]
			resp = &trimmed
		}
		transcript = append(transcript, resp)

		for _, call := range resp.ToolCalls {
			if _, ok := registry[call.Function.Name]; !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnknownTool, call.Function.Name)
			}
		}

		for _, call := range resp.ToolCalls {
			a.logger.Info("dispatching tool call",
				zap.String("tool", call.Function.Name),
				zap.String("call_id", call.ID),
				zap.Int("args_bytes", len(call.Function.Arguments)),
			)

			output, err := registry[call.Function.Name].InvokableRun(ctx, call.Function.Arguments)
			if err != nil {
				return nil, fmt.Errorf("tool %s (%s): %w", call.Function.Name, call.ID, err)
			}
			transcript = append(transcript, schema.ToolMessage(output, call.ID, schema.WithToolName(call.Function.Name)))
		}
	}
}
