package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/funnel/internal/cache"
)

func TestBatch_IsolatesFailures(t *testing.T) {
	c := ClientFunc(func(_ context.Context, req Request) (Response, error) {
		if req.UserPrompt == "bad" {
			return Response{}, errors.New("nope")
		}
		if req.UserPrompt == "panic" {
			panic("kaboom")
		}
		return Response{Content: "echo " + req.UserPrompt}, nil
	})
	reqs := []Request{{UserPrompt: "a"}, {UserPrompt: "bad"}, {UserPrompt: "panic"}, {UserPrompt: "d"}}
	results := Batch(context.Background(), c, reqs, 2)

	require.Len(t, results, 4)
	assert.Equal(t, "echo a", results[0].Response.Content)
	assert.Error(t, results[1].Err)
	assert.ErrorContains(t, results[2].Err, "kaboom")
	assert.Equal(t, "echo d", results[3].Response.Content)
}

func TestBatch_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	c := ClientFunc(func(context.Context, Request) (Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return Response{}, nil
	})
	Batch(context.Background(), c, make([]Request, 12), 3)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestConcurrency_Caps(t *testing.T) {
	var inFlight, peak atomic.Int32
	inner := ClientFunc(func(context.Context, Request) (Response, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return Response{}, nil
	})
	c := Concurrency(inner, 2)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Generate(context.Background(), Request{})
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRateLimited_CanceledContext(t *testing.T) {
	inner := ClientFunc(func(context.Context, Request) (Response, error) { return Response{Content: "x"}, nil })
	c := RateLimited(inner, 0.001, 1)

	_, err := c.Generate(context.Background(), Request{})
	require.NoError(t, err, "first call uses the burst token")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, Request{})
	assert.Error(t, err)
}

func TestRateLimited_DisabledPassesThrough(t *testing.T) {
	inner := ClientFunc(func(context.Context, Request) (Response, error) { return Response{}, nil })
	assert.Equal(t, "func", RateLimited(inner, 0, 0).Name())
}

func TestRedacting_ScrubsPrompts(t *testing.T) {
	var seen Request
	inner := ClientFunc(func(_ context.Context, req Request) (Response, error) {
		seen = req
		return Response{}, nil
	})
	_, _ = Redacting(inner).Generate(context.Background(), Request{
		UserPrompt: `api_key = "abcdefghijklmnopqrstuvwxyz123456"`,
	})
	assert.False(t, strings.Contains(seen.UserPrompt, "abcdefghijklmnopqrstuvwxyz123456"))
	assert.Contains(t, seen.UserPrompt, "[REDACTED]")
}

func TestCached_HitSkipsCall(t *testing.T) {
	store, err := cache.New(true, t.TempDir(), time.Hour)
	require.NoError(t, err)

	var calls atomic.Int32
	inner := ClientFunc(func(_ context.Context, req Request) (Response, error) {
		calls.Add(1)
		return Response{Content: "summary of " + req.UserPrompt, TokensUsed: 7}, nil
	})
	c := Cached(inner, store, "m", nil)

	for range 3 {
		resp, err := c.Generate(context.Background(), Request{UserPrompt: "a.go"})
		require.NoError(t, err)
		assert.Equal(t, "summary of a.go", resp.Content)
		assert.Equal(t, 7, resp.TokensUsed)
	}
	assert.Equal(t, int32(1), calls.Load())

	_, _ = c.Generate(context.Background(), Request{UserPrompt: "b.go"})
	assert.Equal(t, int32(2), calls.Load())
}

func TestCached_ErrorsNotStored(t *testing.T) {
	store, err := cache.New(true, t.TempDir(), time.Hour)
	require.NoError(t, err)

	var calls atomic.Int32
	inner := ClientFunc(func(context.Context, Request) (Response, error) {
		calls.Add(1)
		return Response{}, errors.New("down")
	})
	c := Cached(inner, store, "m", nil)
	_, err1 := c.Generate(context.Background(), Request{UserPrompt: "x"})
	_, err2 := c.Generate(context.Background(), Request{UserPrompt: "x"})
	assert.Error(t, err1)
	assert.Error(t, err2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCached_TemperatureIsPartOfKey(t *testing.T) {
	store, err := cache.New(true, t.TempDir(), time.Hour)
	require.NoError(t, err)

	var calls atomic.Int32
	inner := ClientFunc(func(context.Context, Request) (Response, error) {
		calls.Add(1)
		return Response{Content: "ok"}, nil
	})
	c := Cached(inner, store, "m", nil)

	for _, temp := range []float64{0, 0.7, 0.7} {
		_, err := c.Generate(context.Background(), Request{UserPrompt: "same", Temperature: temp})
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestCached_SharedCallSurvivesCallerCancel(t *testing.T) {
	store, err := cache.New(true, t.TempDir(), time.Hour)
	require.NoError(t, err)

	started := make(chan struct{})
	release := make(chan struct{})
	var innerErr atomic.Value
	inner := ClientFunc(func(ctx context.Context, _ Request) (Response, error) {
		close(started)
		<-release
		innerErr.Store(fmt.Sprint(ctx.Err()))
		return Response{Content: "shared"}, nil
	})
	c := Cached(inner, store, "m", nil)
	req := Request{UserPrompt: "same"}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Generate(firstCtx, req)
		firstErr <- err
	}()
	<-started
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	second := make(chan Response, 1)
	go func() {
		resp, err := c.Generate(context.Background(), req)
		assert.NoError(t, err)
		second <- resp
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	assert.Equal(t, "shared", (<-second).Content)
	assert.Equal(t, "<nil>", innerErr.Load())
}
