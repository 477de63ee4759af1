package slashbot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t testing.TB, cfg *QueueConfig) *GenerationQueue {
	t.Helper()
	if cfg == nil {
		cfg = &QueueConfig{
			Size:   DefaultAIQueueSize,
			MaxAge: DefaultAIQueueMaxAge,
		}
	}
	return NewGenerationQueue(cfg, nil)
}

func newGenerationRequest(userID, prompt string) *GenerationRequest {
	return &GenerationRequest{
		UserID: userID,
		Prompt: prompt,
		Result: make(chan GenerationResult, 1),
	}
}

func TestQueuePushRejectsBusyUser(t *testing.T) {
	q := newTestQueue(t, nil)

	require.NoError(t, q.Push(newGenerationRequest("user_1", "first")))
	assert.Equal(t, 1, q.Len())

	err := q.Push(newGenerationRequest("user_1", "second"))
	assert.ErrorIs(t, err, ErrUserBusy)

	// a different user still fits
	require.NoError(t, q.Push(newGenerationRequest("user_2", "third")))
	assert.Equal(t, 2, q.Len())
}

func TestQueuePushRejectsWhenFull(t *testing.T) {
	q := newTestQueue(t, &QueueConfig{Size: 1})

	require.NoError(t, q.Push(newGenerationRequest("user_1", "first")))

	err := q.Push(newGenerationRequest("user_2", "second"))
	assert.ErrorIs(t, err, ErrQueueFull)

	// the rejected user is not left marked in flight
	err = q.Push(newGenerationRequest("user_2", "again"))
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueProcessExpiresOldRequests(t *testing.T) {
	q := newTestQueue(t, &QueueConfig{Size: 5, MaxAge: time.Millisecond})
	ai := NewOpenAI(&OpenAIConfig{MaxRequestsPerSecond: 10}, nil)

	req := newGenerationRequest("user_1", "hello")
	req.EnqueuedAt = time.Now().Add(-time.Minute)

	q.process(context.Background(), ai, req)

	result := <-req.Result
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "expired")
}

func TestQueueProcessReleasesUser(t *testing.T) {
	q := newTestQueue(t, &QueueConfig{Size: 5, MaxAge: time.Minute})

	// no token configured, so processing fails fast without touching
	// the network
	ai := NewOpenAI(&OpenAIConfig{MaxRequestsPerSecond: 10}, nil)

	req := newGenerationRequest("user_1", "hello")
	require.NoError(t, q.Push(req))

	q.process(context.Background(), ai, <-q.requestCh)

	result := <-req.Result
	assert.ErrorIs(t, result.Err, ErrAIDisabled)

	// user can queue again once their request has been processed
	require.NoError(t, q.Push(newGenerationRequest("user_1", "another")))
}

func TestQueueWatchStopsOnCancel(t *testing.T) {
	q := newTestQueue(t, nil)
	ai := NewOpenAI(&OpenAIConfig{MaxRequestsPerSecond: 10}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Watch(ctx, ai)
		close(done)
	}()

	req := newGenerationRequest("user_1", "hello")
	require.NoError(t, q.Push(req))

	result := <-req.Result
	assert.ErrorIs(t, result.Err, ErrAIDisabled)

	cancel()
	select {
	case <-done:
		// watcher exited
	case <-time.After(5 * time.Second):
		t.Fatal("queue watcher did not stop")
	}
}
