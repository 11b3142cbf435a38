package portfolio

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/dyike/BondCortex/consts"
	"github.com/dyike/BondCortex/models"
)

// InvalidMessageError reports a caller-supplied turn that cannot be sent.
type InvalidMessageError struct {
	Index  int
	Reason string
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("message %d: %s", e.Index, e.Reason)
}

// History converts caller turns into model messages. Only user and assistant
// turns with content are accepted; the advisor instruction is the only
// system turn a conversation carries.
func History(msgs []models.ChatMessage) ([]*schema.Message, error) {
	if len(msgs) == 0 {
		return nil, ErrEmptyHistory
	}
	out := make([]*schema.Message, 0, len(msgs))
	for i, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			return nil, &InvalidMessageError{Index: i, Reason: "content is empty"}
		}
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case consts.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case consts.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		default:
			return nil, &InvalidMessageError{Index: i, Reason: fmt.Sprintf("unsupported role %q", m.Role)}
		}
	}
	return out, nil
}

// Transcript renders model messages in their wire form.
func Transcript(msgs []*schema.Message) []models.TranscriptTurn {
	turns := make([]models.TranscriptTurn, 0, len(msgs))
	for _, m := range msgs {
		turn := models.TranscriptTurn{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.ToolName,
		}
		for _, tc := range m.ToolCalls {
			turn.ToolCalls = append(turn.ToolCalls, models.ToolResp{
				ID:   tc.ID,
				Type: tc.Type,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments,
			})
		}
		turns = append(turns, turn)
	}
	return turns
}
