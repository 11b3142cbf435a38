package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/dyike/BondCortex/config"
	"github.com/dyike/BondCortex/consts"
)

var searchInfo = &schema.ToolInfo{
	Name: "search_bonds",
	Desc: "Search for bonds that match specific criteria",
	ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
		"query": {Type: schema.String, Desc: "The search query to find relevant bonds", Required: true},
	}),
}

func TestGeminiGenerateTranslatesConversation(t *testing.T) {
	var (
		gotModel    string
		gotContents []*genai.Content
		gotConfig   *genai.GenerateContentConfig
	)
	g := &GeminiChatModel{
		model: "gemini-test",
		generate: func(_ context.Context, m string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			gotModel, gotContents, gotConfig = m, contents, cfg
			return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: "Recommend bond C."}}},
			}}}, nil
		},
	}

	input := []*schema.Message{
		schema.SystemMessage("be careful"),
		schema.UserMessage("find me yield"),
		{
			Role: schema.Assistant,
			ToolCalls: []schema.ToolCall{{
				ID:       "call-1",
				Function: schema.FunctionCall{Name: "search_bonds", Arguments: `{"query":"yield above 3%"}`},
			}},
		},
		schema.ToolMessage("Bond C qualifies.", "call-1", schema.WithToolName("search_bonds")),
	}

	msg, err := g.Generate(context.Background(), input,
		model.WithTools([]*schema.ToolInfo{searchInfo}),
		model.WithTemperature(0.7),
		model.WithMaxTokens(500),
	)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Role != schema.Assistant || msg.Content != "Recommend bond C." || len(msg.ToolCalls) != 0 {
		t.Fatalf("unexpected message %+v", msg)
	}
	if gotModel != "gemini-test" {
		t.Fatalf("unexpected model %s", gotModel)
	}

	if gotConfig.SystemInstruction == nil || gotConfig.SystemInstruction.Parts[0].Text != "be careful" {
		t.Fatalf("system turn should become the system instruction")
	}
	if *gotConfig.Temperature != 0.7 || gotConfig.MaxOutputTokens != 500 {
		t.Fatalf("sampling options not applied: %+v", gotConfig)
	}
	if len(gotConfig.Tools) != 1 || gotConfig.Tools[0].FunctionDeclarations[0].Name != "search_bonds" {
		t.Fatalf("tool declaration missing: %+v", gotConfig.Tools)
	}
	if gotConfig.ToolConfig.FunctionCallingConfig.Mode != genai.FunctionCallingConfigModeAuto {
		t.Fatalf("expected automatic function calling")
	}

	if len(gotContents) != 3 {
		t.Fatalf("expected user, model and function response contents, got %d", len(gotContents))
	}
	call := gotContents[1].Parts[0].FunctionCall
	if gotContents[1].Role != genai.RoleModel || call == nil || call.Args["query"] != "yield above 3%" {
		t.Fatalf("unexpected function call content %+v", gotContents[1])
	}
	resp := gotContents[2].Parts[0].FunctionResponse
	if resp == nil || resp.ID != "call-1" || resp.Name != "search_bonds" || resp.Response["output"] != "Bond C qualifies." {
		t.Fatalf("unexpected function response %+v", resp)
	}
}

func TestGeminiMergesParallelFunctionResponses(t *testing.T) {
	contents, _, err := toContents([]*schema.Message{
		schema.UserMessage("hi"),
		{Role: schema.Assistant, ToolCalls: []schema.ToolCall{
			{ID: "a", Function: schema.FunctionCall{Name: "search_bonds", Arguments: `{"query":"a"}`}},
			{ID: "b", Function: schema.FunctionCall{Name: "search_bonds", Arguments: `{"query":"b"}`}},
		}},
		schema.ToolMessage("A", "a"),
		schema.ToolMessage("B", "b"),
	})
	if err != nil {
		t.Fatalf("toContents: %v", err)
	}
	if len(contents) != 3 || len(contents[2].Parts) != 2 {
		t.Fatalf("expected both responses in one content, got %+v", contents)
	}
}

func TestGeminiResponseWithFunctionCall(t *testing.T) {
	msg, err := fromResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
			{Text: "thinking", Thought: true},
			{FunctionCall: &genai.FunctionCall{Name: "search_bonds", Args: map[string]any{"query": "AAA"}}},
		}},
	}}})
	if err != nil {
		t.Fatalf("fromResponse: %v", err)
	}
	if msg.Content != "" || len(msg.ToolCalls) != 1 {
		t.Fatalf("unexpected message %+v", msg)
	}
	tc := msg.ToolCalls[0]
	if tc.ID == "" || tc.Function.Name != "search_bonds" {
		t.Fatalf("unexpected tool call %+v", tc)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil || args["query"] != "AAA" {
		t.Fatalf("unexpected arguments %q", tc.Function.Arguments)
	}

	if _, err := fromResponse(&genai.GenerateContentResponse{}); !errors.Is(err, ErrEmptyCandidate) {
		t.Fatalf("expected ErrEmptyCandidate, got %v", err)
	}
}

func TestNewChatModelRequiresKey(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.LLMProvider = consts.ProviderDeepSeek

	if _, err := NewChatModel(context.Background(), cfg, cfg.AdvisorModel); !errors.Is(err, config.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestResolveModel(t *testing.T) {
	if got := ResolveModel(consts.ProviderDeepSeek, consts.DefaultAdvisorModel); got != consts.DefaultDeepSeekModel {
		t.Fatalf("expected deepseek default, got %s", got)
	}
	if got := ResolveModel(consts.ProviderGemini, "gemini-2.5-pro"); got != "gemini-2.5-pro" {
		t.Fatalf("explicit model should be kept, got %s", got)
	}
	if got := ResolveModel(consts.ProviderOpenAI, consts.DefaultSearchModel); got != consts.DefaultSearchModel {
		t.Fatalf("openai defaults should be kept, got %s", got)
	}
}
