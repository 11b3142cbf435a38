package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/dyike/BondCortex/config"
	"github.com/dyike/BondCortex/consts"
	"github.com/dyike/BondCortex/internal/display"
	"github.com/dyike/BondCortex/models"
)

func newChatCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to a running BondCortex server",
		Long: `Start an interactive conversation with the advisor behind a running server.
Type /reset to start over and /exit to leave.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, _ := cmd.Flags().GetString("server")
			if serverURL == "" {
				serverURL = localURL(cfg.ListenAddr)
			}
			return runChat(cmd.Context(), NewChatClient(serverURL, cfg.RequestTimeout))
		},
	}

	cmd.Flags().String("server", "", "Server base URL (defaults to the configured listen address)")
	return cmd
}

func localURL(listenAddr string) string {
	if strings.HasPrefix(listenAddr, ":") {
		return "http://localhost" + listenAddr
	}
	return "http://" + listenAddr
}

// ChatClient posts conversations to the /chat endpoint.
type ChatClient struct {
	client *resty.Client
}

func NewChatClient(baseURL string, timeout time.Duration) *ChatClient {
	client := resty.New()
	client.SetBaseURL(strings.TrimRight(baseURL, "/"))
	client.SetTimeout(timeout + 5*time.Second)
	client.SetHeader("Content-Type", "application/json")

	return &ChatClient{client: client}
}

func (c *ChatClient) Send(ctx context.Context, messages []models.ChatMessage, includeTranscript bool) (*models.ChatResponse, error) {
	var (
		result models.ChatResponse
		apiErr models.ErrorResponse
	)
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(models.ChatRequest{Messages: messages, IncludeTranscript: includeTranscript}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/chat")
	if err != nil {
		return nil, fmt.Errorf("post chat: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error == "" {
			apiErr.Error = strings.TrimSpace(resp.String())
		}
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode(), apiErr.Error)
	}
	return &result, nil
}

// chatSession keeps the conversation so far. The server is stateless, so the
// whole history is posted on every turn.
type chatSession struct {
	client  *ChatClient
	history []models.ChatMessage
}

func (s *chatSession) Say(ctx context.Context, text string) (string, error) {
	messages := append(s.history, models.ChatMessage{Role: consts.RoleUser, Content: text})
	resp, err := s.client.Send(ctx, messages, false)
	if err != nil {
		return "", err
	}
	s.history = append(messages, models.ChatMessage{Role: consts.RoleAssistant, Content: resp.Message})
	return resp.Message, nil
}

func (s *chatSession) Reset() {
	s.history = nil
}

func runChat(ctx context.Context, client *ChatClient) error {
	DisplayWelcomeBanner()
	session := &chatSession{client: client}

	for {
		var input string
		err := survey.AskOne(&survey.Input{
			Message: "You:",
			Help:    "Describe your goals, e.g. target yield, horizon and risk appetite. /reset starts over, /exit leaves.",
		}, &input)
		if errors.Is(err, terminal.InterruptErr) {
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		switch input {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			session.Reset()
			display.DisplayInfo(os.Stdout, "Conversation cleared")
			continue
		}

		fmt.Println(thinkingStyle.Render("Advisor is thinking..."))
		reply, err := session.Say(ctx, input)
		if err != nil {
			display.DisplayError(os.Stderr, err, "chat")
			continue
		}
		display.Recommendation(os.Stdout, reply)
	}
}
