package providers

import (
	"context"
	"fmt"
)

// defaultMaxTokens applies when a Request leaves MaxTokens unset.
const defaultMaxTokens = 4096

// Request is one text-generation call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

func (r Request) maxTokens() int {
	if r.MaxTokens <= 0 {
		return defaultMaxTokens
	}
	return r.MaxTokens
}

// Response contains the raw text returned by a model.
type Response struct {
	Content    string
	TokensUsed int
}

// Client is the language model abstraction. Implementations are stateless
// and safe for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// New creates a client by provider name.
func New(provider, model string) (Client, error) {
	switch provider {
	case "anthropic":
		return NewAnthropic(model)
	case "openai":
		return NewOpenAI(model)
	case "deepseek":
		return NewDeepSeek(model)
	case "gemini", "google":
		return NewGemini(model)
	case "ollama", "lmstudio":
		return NewOllama(model)
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}
