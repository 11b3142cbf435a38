package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

var ErrEmptyCandidate = errors.New("gemini returned no candidates")

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GeminiChatModel adapts the Gemini API to eino's chat model interface so the
// advisor loop runs unchanged on top of it.
type GeminiChatModel struct {
	model    string
	generate generateFunc
}

func NewGeminiChatModel(ctx context.Context, apiKey, modelName string) (*GeminiChatModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiChatModel{
		model:    modelName,
		generate: client.Models.GenerateContent,
	}, nil
}

func (g *GeminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (outMsg *schema.Message, err error) {
	options := model.GetCommonOptions(&model.Options{}, opts...)

	contents, system, err := toContents(input)
	if err != nil {
		return nil, err
	}
	genCfg, err := toGenerateConfig(options)
	if err != nil {
		return nil, err
	}
	genCfg.SystemInstruction = system

	modelName := g.model
	if options.Model != nil && *options.Model != "" {
		modelName = *options.Model
	}

	ctx = callbacks.OnStart(ctx, &model.CallbackInput{
		Messages: input,
		Tools:    options.Tools,
		Config:   &model.Config{Model: modelName},
	})
	defer func() {
		if err != nil {
			callbacks.OnError(ctx, err)
		}
	}()

	resp, err := g.generate(ctx, modelName, contents, genCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}
	outMsg, err = fromResponse(resp)
	if err != nil {
		return nil, err
	}

	callbacks.OnEnd(ctx, &model.CallbackOutput{
		Message:    outMsg,
		Config:     &model.Config{Model: modelName},
		TokenUsage: tokenUsage(resp),
	})
	return outMsg, nil
}

// IsCallbacksEnabled reports that Generate emits its own callback events.
func (g *GeminiChatModel) IsCallbacksEnabled() bool {
	return true
}

func tokenUsage(resp *genai.GenerateContentResponse) *model.TokenUsage {
	if resp.UsageMetadata == nil {
		return nil
	}
	return &model.TokenUsage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
	}
}

// Stream returns the complete response as a single chunk.
func (g *GeminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func toContents(input []*schema.Message) ([]*genai.Content, *genai.Content, error) {
	var (
		contents []*genai.Content
		system   []*genai.Part
	)
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			system = append(system, &genai.Part{Text: msg.Content})
		case schema.User:
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case schema.Assistant:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				args := map[string]any{}
				if strings.TrimSpace(call.Function.Arguments) != "" {
					if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
						return nil, nil, fmt.Errorf("tool call %s arguments: %w", call.ID, err)
					}
				}
				content.Parts = append(content.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   call.ID,
					Name: call.Function.Name,
					Args: args,
				}})
			}
			contents = append(contents, content)
		case schema.Tool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.ToolName,
				Response: map[string]any{"output": msg.Content},
			}}
			// Responses to one model turn travel together in a single content.
			if n := len(contents); n > 0 && isFunctionResponses(contents[n-1]) {
				contents[n-1].Parts = append(contents[n-1].Parts, part)
				continue
			}
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
		default:
			return nil, nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	var systemInstruction *genai.Content
	if len(system) > 0 {
		systemInstruction = &genai.Content{Parts: system}
	}
	return contents, systemInstruction, nil
}

func isFunctionResponses(c *genai.Content) bool {
	if c.Role != genai.RoleUser || len(c.Parts) == 0 {
		return false
	}
	for _, p := range c.Parts {
		if p.FunctionResponse == nil {
			return false
		}
	}
	return true
}

func toGenerateConfig(options *model.Options) (*genai.GenerateContentConfig, error) {
	genCfg := &genai.GenerateContentConfig{}
	if options.Temperature != nil {
		genCfg.Temperature = options.Temperature
	}
	if options.MaxTokens != nil {
		genCfg.MaxOutputTokens = int32(*options.MaxTokens)
	}

	if len(options.Tools) == 0 {
		return genCfg, nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(options.Tools))
	for _, info := range options.Tools {
		decl := &genai.FunctionDeclaration{
			Name:        info.Name,
			Description: info.Desc,
		}
		if info.ParamsOneOf != nil {
			params, err := info.ToOpenAPIV3()
			if err != nil {
				return nil, fmt.Errorf("tool %s parameters: %w", info.Name, err)
			}
			decl.ParametersJsonSchema = params
		}
		decls = append(decls, decl)
	}
	genCfg.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	genCfg.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingConfigModeAuto},
	}
	return genCfg, nil
}

func fromResponse(resp *genai.GenerateContentResponse) (*schema.Message, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyCandidate
	}

	msg := &schema.Message{Role: schema.Assistant}
	var text strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		if part.Thought {
			continue
		}
		if part.FunctionCall != nil {
			args := []byte("{}")
			if part.FunctionCall.Args != nil {
				encoded, err := json.Marshal(part.FunctionCall.Args)
				if err != nil {
					return nil, fmt.Errorf("encode function call args: %w", err)
				}
				args = encoded
			}
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%d", i)
			}
			msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
				ID:   id,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				},
			})
			continue
		}
		text.WriteString(part.Text)
	}
	msg.Content = text.String()
	return msg, nil
}
