package providers

import (
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultOllamaURL = "http://localhost:11434"

// NewOllama creates a client for Ollama or LM Studio through their
// OpenAI-compatible endpoint. OLLAMA_HOST selects the server and
// FUNNEL_OLLAMA_API_KEY is sent when set. No key is required by default.
func NewOllama(model string) (*OpenAI, error) {
	return &OpenAI{
		name:    "ollama",
		apiKey:  os.Getenv("FUNNEL_OLLAMA_API_KEY"),
		model:   model,
		baseURL: ollamaEndpoint(os.Getenv("OLLAMA_HOST")),
		client:  &http.Client{Timeout: 300 * time.Second},
	}, nil
}

// ollamaEndpoint normalizes a host setting that may already carry /v1 or the
// full completions path.
func ollamaEndpoint(host string) string {
	if host == "" {
		host = defaultOllamaURL
	}
	host = strings.TrimRight(host, "/")
	host = strings.TrimSuffix(host, "/v1/chat/completions")
	host = strings.TrimSuffix(host, "/v1")
	return host + "/v1/chat/completions"
}
