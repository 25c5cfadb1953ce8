package providers

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/dshills/funnel/internal/cache"
	"github.com/dshills/funnel/internal/redact"
)

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (Response, error)

func (f ClientFunc) Generate(ctx context.Context, req Request) (Response, error) { return f(ctx, req) }
func (f ClientFunc) Name() string                                                { return "func" }

type wrapped struct {
	name     string
	generate func(ctx context.Context, req Request) (Response, error)
}

func (w *wrapped) Generate(ctx context.Context, req Request) (Response, error) {
	return w.generate(ctx, req)
}

func (w *wrapped) Name() string { return w.name }

// RateLimited spaces calls to c at rps requests per second. A non-positive
// rps returns c unchanged.
func RateLimited(c Client, rps float64, burst int) Client {
	if rps <= 0 {
		return c
	}
	if burst < 1 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(rps), burst)
	return &wrapped{name: c.Name(), generate: func(ctx context.Context, req Request) (Response, error) {
		if err := lim.Wait(ctx); err != nil {
			return Response{}, fmt.Errorf("rate limiter: %w", err)
		}
		return c.Generate(ctx, req)
	}}
}

// Concurrency caps the number of in-flight calls to c across every stage
// sharing the returned Client. A non-positive limit returns c unchanged.
func Concurrency(c Client, limit int) Client {
	if limit <= 0 {
		return c
	}
	sem := semaphore.NewWeighted(int64(limit))
	return &wrapped{name: c.Name(), generate: func(ctx context.Context, req Request) (Response, error) {
		if err := sem.Acquire(ctx, 1); err != nil {
			return Response{}, err
		}
		defer sem.Release(1)
		return c.Generate(ctx, req)
	}}
}

// Redacting scrubs secrets from both prompts before they leave the process.
func Redacting(c Client) Client {
	return &wrapped{name: c.Name(), generate: func(ctx context.Context, req Request) (Response, error) {
		var sys, user int
		req.SystemPrompt, sys = redact.Scan(req.SystemPrompt)
		req.UserPrompt, user = redact.Scan(req.UserPrompt)
		if n := sys + user; n > 0 {
			slog.Debug("redacted secrets from prompt", "provider", c.Name(), "spans", n)
		}
		return c.Generate(ctx, req)
	}}
}

// Cached answers repeated prompts from store. Identical prompts in flight at
// the same time share one call, which runs detached from any single caller's
// cancellation; each caller still stops waiting when its own ctx ends. Cache
// write failures are logged and ignored.
func Cached(c Client, store *cache.Cache, model string, logger *slog.Logger) Client {
	if store == nil || !store.Enabled() {
		return c
	}
	if logger == nil {
		logger = slog.Default()
	}
	var group singleflight.Group
	return &wrapped{name: c.Name(), generate: func(ctx context.Context, req Request) (Response, error) {
		settings := fmt.Sprintf("%s/%d/%g", model, req.maxTokens(), req.Temperature)
		key := cache.CompletionKey(c.Name(), settings, req.SystemPrompt, req.UserPrompt)
		if e, ok := store.Get(key); ok {
			logger.Debug("cache hit", "provider", c.Name(), "key", cache.Key(key)[:12])
			return Response{Content: e.Content, TokensUsed: e.TokensUsed}, nil
		}
		flight := group.DoChan(key, func() (any, error) {
			resp, err := c.Generate(context.WithoutCancel(ctx), req)
			if err != nil {
				return Response{}, err
			}
			if err := store.Put(key, resp.Content, resp.TokensUsed); err != nil {
				logger.Warn("cache write failed", "error", err)
			}
			return resp, nil
		})
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case res := <-flight:
			if res.Err != nil {
				return Response{}, res.Err
			}
			return res.Val.(Response), nil
		}
	}}
}
