package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	old := backoffBase
	backoffBase = time.Millisecond
	t.Cleanup(func() { backoffBase = old })
}

func TestOpenAI_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing or wrong Authorization header")
		}
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "user text" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if req.MaxTokens != defaultMaxTokens {
			t.Errorf("MaxTokens = %d, want default %d", req.MaxTokens, defaultMaxTokens)
		}
		if req.Temperature != nil {
			t.Error("zero temperature should be omitted")
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: "ok"}}},
			Usage:   openaiUsage{TotalTokens: 50},
		})
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", apiKey: "test-key", model: "gpt-4o", baseURL: server.URL, client: server.Client()}
	resp, err := o.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "user text"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != "ok" || resp.TokensUsed != 50 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestOpenAI_RetriesRateLimit(t *testing.T) {
	fastBackoff(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "done"}}},
		})
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", model: "m", baseURL: server.URL, client: server.Client()}
	resp, err := o.Generate(context.Background(), Request{UserPrompt: "x"})
	if err != nil {
		t.Fatalf("Generate error after retries: %v", err)
	}
	if resp.Content != "done" || attempts.Load() != 3 {
		t.Errorf("content %q after %d attempts", resp.Content, attempts.Load())
	}
}

func TestOpenAI_AuthErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", model: "m", baseURL: server.URL, client: server.Client()}
	_, err := o.Generate(context.Background(), Request{UserPrompt: "x"})
	if !IsAuthError(err) {
		t.Fatalf("want auth error, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("auth errors must not be retried, got %d attempts", attempts.Load())
	}
}

func TestOpenAI_ServerErrorExhaustsRetries(t *testing.T) {
	fastBackoff(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", model: "m", baseURL: server.URL, client: server.Client()}
	_, err := o.Generate(context.Background(), Request{UserPrompt: "x"})
	if err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("err = %v", err)
	}
	if attempts.Load() != maxRetries+1 {
		t.Errorf("attempts = %d, want %d", attempts.Load(), maxRetries+1)
	}
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	o := &OpenAI{name: "openai", model: "m", baseURL: server.URL, client: server.Client()}
	if _, err := o.Generate(context.Background(), Request{UserPrompt: "x"}); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestGemini_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/gemini-pro:generateContent") {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "g-key" {
			t.Error("missing api key header")
		}
		var req geminiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.SystemInstruction == nil || req.SystemInstruction.Parts[0].Text != "sys" {
			t.Error("system prompt should travel as systemInstruction")
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"part one "},{"text":"part two"}]}}],"usageMetadata":{"totalTokenCount":9}}`))
	}))
	defer server.Close()

	g := &Gemini{apiKey: "g-key", model: "gemini-pro", baseURL: server.URL, client: server.Client()}
	resp, err := g.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "u"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != "part one part two" || resp.TokensUsed != 9 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAnthropic_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"system"`) {
			t.Error("system prompt missing from request")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude","content":[{"type":"text","text":"review"}],"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer server.Close()

	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	a, err := NewAnthropic("claude", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}
	resp, err := a.Generate(context.Background(), Request{SystemPrompt: "sys", UserPrompt: "u"})
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if resp.Content != "review" || resp.TokensUsed != 15 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAnthropic_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	t.Setenv("ANTHROPIC_API_KEY", "bad")
	a, err := NewAnthropic("claude", option.WithBaseURL(server.URL), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewAnthropic: %v", err)
	}
	if _, err := a.Generate(context.Background(), Request{UserPrompt: "u"}); !IsAuthError(err) {
		t.Errorf("want auth error, got %v", err)
	}
}

func TestNew_MissingKeys(t *testing.T) {
	for _, env := range []string{"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "DEEPSEEK_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"} {
		t.Setenv(env, "")
	}
	for _, p := range []string{"anthropic", "openai", "deepseek", "gemini"} {
		if _, err := New(p, "m"); err == nil {
			t.Errorf("New(%q) should fail without a key", p)
		}
	}
	if _, err := New("bogus", "m"); err == nil {
		t.Error("unknown provider should fail")
	}
}

func TestNew_Names(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "k")
	t.Setenv("OLLAMA_HOST", "")
	tests := map[string]string{"deepseek": "deepseek", "ollama": "ollama", "lmstudio": "ollama"}
	for provider, want := range tests {
		c, err := New(provider, "m")
		if err != nil {
			t.Fatalf("New(%q): %v", provider, err)
		}
		if c.Name() != want {
			t.Errorf("New(%q).Name() = %q, want %q", provider, c.Name(), want)
		}
	}
}

func TestOllamaEndpoint(t *testing.T) {
	tests := []struct{ host, want string }{
		{"", "http://localhost:11434/v1/chat/completions"},
		{"http://box:11434/", "http://box:11434/v1/chat/completions"},
		{"http://box:1234/v1", "http://box:1234/v1/chat/completions"},
		{"http://box:1234/v1/chat/completions", "http://box:1234/v1/chat/completions"},
	}
	for _, tt := range tests {
		if got := ollamaEndpoint(tt.host); got != tt.want {
			t.Errorf("ollamaEndpoint(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryWithBackoff(ctx, 3, func() error { return &rateLimitError{} })
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
