// Package providers is the language model layer.
//
// [Client] is the one interface the pipeline talks to. Anthropic runs on the
// official SDK; OpenAI, DeepSeek, Ollama and LM Studio share an
// OpenAI-compatible HTTP client; Gemini has its own. Raw HTTP clients retry
// 429 and 5xx responses with exponential back-off.
//
// Decorators compose around any Client: [Redacting], [Cached],
// [Concurrency] and [RateLimited]. [GenerateJSON] adds tolerant decoding with
// a single repair round trip, and [Batch] fans requests out under a bound.
//
// Use [New] to obtain a Client by provider name and model string.
package providers
