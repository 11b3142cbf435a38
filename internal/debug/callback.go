package debug

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

// RunInfo names the advisor's model calls in callback events.
var RunInfo = &callbacks.RunInfo{
	Name:      "bond_advisor",
	Type:      "BondCortex",
	Component: components.ComponentOfChatModel,
}

// LoggerCallback logs every chat-model call made under a context prepared by
// callbacks.InitCallbacks.
type LoggerCallback struct {
	callbacks.HandlerBuilder

	logger *zap.Logger
}

func NewLoggerCallback(logger *zap.Logger) *LoggerCallback {
	return &LoggerCallback{logger: logger}
}

func (cb *LoggerCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	in := model.ConvCallbackInput(input)
	if in == nil {
		return ctx
	}

	fields := []zap.Field{
		zap.String("name", info.Name),
		zap.Int("messages", len(in.Messages)),
		zap.Int("tools", len(in.Tools)),
	}
	if in.Config != nil {
		fields = append(fields, zap.String("model", in.Config.Model))
	}
	cb.logger.Debug("model call started", fields...)
	return ctx
}

func (cb *LoggerCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	out := model.ConvCallbackOutput(output)
	if out == nil {
		return ctx
	}
	cb.logMessage(info, out.Message, out.TokenUsage)
	return ctx
}

func (cb *LoggerCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	cb.logger.Warn("model call failed", zap.String("name", info.Name), zap.Error(err))
	return ctx
}

func (cb *LoggerCallback) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	go func() {
		defer output.Close()

		var (
			chunks []*schema.Message
			usage  *model.TokenUsage
		)
		for {
			frame, err := output.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				cb.logger.Warn("model stream failed", zap.String("name", info.Name), zap.Error(err))
				return
			}
			out := model.ConvCallbackOutput(frame)
			if out == nil {
				continue
			}
			if out.Message != nil {
				chunks = append(chunks, out.Message)
			}
			if out.TokenUsage != nil {
				usage = out.TokenUsage
			}
		}
		if len(chunks) == 0 {
			return
		}

		msg, err := schema.ConcatMessages(chunks)
		if err != nil {
			cb.logger.Warn("model stream concat failed", zap.String("name", info.Name), zap.Error(err))
			return
		}
		cb.logMessage(info, msg, usage)
	}()
	return ctx
}

func (cb *LoggerCallback) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (cb *LoggerCallback) logMessage(info *callbacks.RunInfo, msg *schema.Message, usage *model.TokenUsage) {
	if msg == nil {
		return
	}

	fields := []zap.Field{
		zap.String("name", info.Name),
		zap.Int("content_len", len(msg.Content)),
		zap.Int("tool_calls", len(msg.ToolCalls)),
	}
	if msg.ResponseMeta != nil {
		fields = append(fields, zap.String("finish_reason", msg.ResponseMeta.FinishReason))
	}
	for _, call := range msg.ToolCalls {
		fields = append(fields, zap.String("tool", call.Function.Name))
	}
	if usage != nil {
		fields = append(fields,
			zap.Int("prompt_tokens", usage.PromptTokens),
			zap.Int("completion_tokens", usage.CompletionTokens),
		)
	}
	cb.logger.Debug("model call finished", fields...)
}
