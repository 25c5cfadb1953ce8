package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Anthropic implements Client on the official Anthropic SDK. The SDK owns
// retries for 429 and 5xx responses.
type Anthropic struct {
	model  string
	client *anthropic.Client
}

// NewAnthropic creates a new Anthropic client from ANTHROPIC_API_KEY.
func NewAnthropic(model string, opts ...option.RequestOption) (*Anthropic, error) {
	key := os.Getenv("ANTHROPIC_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
	}
	opts = append([]option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(3),
	}, opts...)
	client := anthropic.NewClient(opts...)
	return &Anthropic{model: model, client: &client}, nil
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Generate(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(req.maxTokens()),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			switch {
			case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
				return Response{}, &authError{message: apiErr.Error()}
			case apiErr.StatusCode == http.StatusTooManyRequests:
				return Response{}, &rateLimitError{}
			case apiErr.StatusCode >= 500:
				return Response{}, &serverError{statusCode: apiErr.StatusCode, body: apiErr.Error()}
			}
		}
		return Response{}, fmt.Errorf("anthropic messages: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Response{}, fmt.Errorf("empty text content in API response")
	}

	return Response{
		Content:    text.String(),
		TokensUsed: int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}, nil
}
