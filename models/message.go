package models

// ChatMessage is one conversation turn as exchanged with HTTP clients.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages          []ChatMessage `json:"messages"`
	IncludeTranscript bool          `json:"include_transcript,omitempty"`
}

type ChatResponse struct {
	Message    string           `json:"message"`
	Transcript []TranscriptTurn `json:"transcript,omitempty"`
}

// ErrorResponse is the body of every 4xx and 5xx reply. Existing chat
// clients read the message from "detail".
type ErrorResponse struct {
	Error string `json:"detail"`
}

type ToolResp struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
	Args string `json:"args,omitempty"`
}

// TranscriptTurn is the wire form of a turn sent to or received from the
// model, including tool requests and tool results.
type TranscriptTurn struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCalls  []ToolResp `json:"tool_calls,omitempty"`
}

// BondsResponse lists the loaded dataset.
type BondsResponse struct {
	Count int              `json:"count"`
	Bonds []map[string]any `json:"bonds"`
}
