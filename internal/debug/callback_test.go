package debug

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerCallbackLogsModelCalls(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cb := NewLoggerCallback(zap.New(core))
	ctx := context.Background()

	cb.OnStart(ctx, RunInfo, &model.CallbackInput{
		Messages: []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("3%")},
		Tools:    []*schema.ToolInfo{{Name: "search_bonds"}},
		Config:   &model.Config{Model: "gpt-4-turbo-preview"},
	})
	cb.OnEnd(ctx, RunInfo, &model.CallbackOutput{
		Message: schema.AssistantMessage("", []schema.ToolCall{{
			ID:       "call-1",
			Function: schema.FunctionCall{Name: "search_bonds", Arguments: `{"query":"3%"}`},
		}}),
		TokenUsage: &model.TokenUsage{PromptTokens: 120, CompletionTokens: 12, TotalTokens: 132},
	})
	cb.OnError(ctx, RunInfo, errors.New("rate limited"))

	entries := logs.AllUntimed()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	start := entries[0].ContextMap()
	if start["messages"] != int64(2) || start["tools"] != int64(1) || start["model"] != "gpt-4-turbo-preview" {
		t.Fatalf("unexpected start fields: %v", start)
	}

	end := entries[1].ContextMap()
	if end["tool"] != "search_bonds" || end["prompt_tokens"] != int64(120) {
		t.Fatalf("unexpected end fields: %v", end)
	}

	if entries[2].Level != zapcore.WarnLevel || entries[2].ContextMap()["error"] != "rate limited" {
		t.Fatalf("unexpected error entry: %+v", entries[2])
	}
}

func TestLoggerCallbackIgnoresForeignPayloads(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	cb := NewLoggerCallback(zap.New(core))

	cb.OnEnd(context.Background(), RunInfo, "not a model output")
	if logs.Len() != 0 {
		t.Fatalf("foreign payload should be ignored")
	}
}
