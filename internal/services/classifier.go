package services

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

// ClassifyRequest carries everything the classifier sees for one turn:
// machine-readable session context plus the transcript including the new
// user message (and, on a repair retry, an extra system turn describing
// the parse failure).
type ClassifyRequest struct {
	System string
	Turns  []models.HistoryTurn
}

// ClassifyResult is the classifier's raw proposal. Arguments is untrusted
// JSON; FreeText is set when the model answered without a tool call.
type ClassifyResult struct {
	ActionName string
	Arguments  string
	FreeText   string
}

// Classifier is the natural-language intent classifier boundary.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error)
}

// OpenAIClassifier implements Classifier on the OpenAI chat completions API
// with the action catalog exposed as function tools.
type OpenAIClassifier struct {
	client openai.Client
	model  openai.ChatModel
}

// NewOpenAIClassifier builds a classifier from OPENAI_API_KEY and
// OPENAI_MODEL.
func NewOpenAIClassifier() (*OpenAIClassifier, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY in environment")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &OpenAIClassifier{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  openai.ChatModel(model),
	}, nil
}

// Classify sends the context and transcript and returns the model's first
// proposed tool call, or its free-text content when it made none.
func (c *OpenAIClassifier) Classify(ctx context.Context, req ClassifyRequest) (*ClassifyResult, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.Turns {
		switch turn.Role {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		case models.RoleSystem:
			messages = append(messages, openai.SystemMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
		Tools:    ToolDefinitions(),
	})
	if err != nil {
		return nil, fmt.Errorf("classifier call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	message := resp.Choices[0].Message
	if len(message.ToolCalls) > 0 {
		call := message.ToolCalls[0]
		return &ClassifyResult{
			ActionName: call.Function.Name,
			Arguments:  call.Function.Arguments,
			FreeText:   message.Content,
		}, nil
	}

	return &ClassifyResult{FreeText: message.Content}, nil
}
