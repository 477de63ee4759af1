package slashbot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

// ErrQueueFull indicates the text-generation queue is at capacity.
var ErrQueueFull = errors.New("generation queue is full")

// ErrUserBusy indicates the user already has a generation request in
// flight.
var ErrUserBusy = errors.New("user request already in flight")

// GenerationRequest is one queued /generate_text invocation.
type GenerationRequest struct {
	UserID      string
	Prompt      string
	Interaction *discordgo.InteractionCreate
	EnqueuedAt  time.Time

	// Result receives the completion (or error) once the worker has
	// processed the request
	Result chan GenerationResult
}

// GenerationResult is the outcome of a processed GenerationRequest.
type GenerationResult struct {
	Content string
	Err     error
}

func (r *GenerationRequest) Age() time.Duration {
	return time.Since(r.EnqueuedAt)
}

// GenerationQueue is an in-memory FIFO for text-generation requests.
// Requests are processed one at a time by a single worker, so the
// OpenAI rate limiter is never contended. Each user may have at most
// one request in flight.
type GenerationQueue struct {
	config    *QueueConfig
	logger    *slog.Logger
	requestCh chan *GenerationRequest

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewGenerationQueue(config *QueueConfig, logger *slog.Logger) *GenerationQueue {
	if logger == nil {
		logger = slog.Default()
	}
	size := config.Size
	if size <= 0 {
		size = DefaultAIQueueSize
	}
	return &GenerationQueue{
		config:    config,
		logger:    logger.With(loggerNameKey, "generation_queue"),
		requestCh: make(chan *GenerationRequest, size),
		inFlight:  map[string]bool{},
	}
}

// Push enqueues a request. Returns ErrUserBusy if the user already has
// a request in flight, or ErrQueueFull at capacity.
func (q *GenerationQueue) Push(req *GenerationRequest) error {
	q.mu.Lock()
	if q.inFlight[req.UserID] {
		q.mu.Unlock()
		return ErrUserBusy
	}
	q.inFlight[req.UserID] = true
	q.mu.Unlock()

	req.EnqueuedAt = time.Now()
	select {
	case q.requestCh <- req:
		return nil
	default:
		q.release(req.UserID)
		return ErrQueueFull
	}
}

// Len returns the current queue depth.
func (q *GenerationQueue) Len() int {
	return len(q.requestCh)
}

func (q *GenerationQueue) release(userID string) {
	q.mu.Lock()
	delete(q.inFlight, userID)
	q.mu.Unlock()
}

// Watch processes queued requests until the context is cancelled.
// Requests older than the configured max age are discarded with an
// error result rather than sent to the API.
func (q *GenerationQueue) Watch(ctx context.Context, ai *OpenAI) {
	q.logger.InfoContext(ctx, "watching generation queue")
	for {
		select {
		case <-ctx.Done():
			q.logger.InfoContext(ctx, "stopped watching generation queue")
			return
		case req := <-q.requestCh:
			q.process(ctx, ai, req)
		}
	}
}

func (q *GenerationQueue) process(
	ctx context.Context,
	ai *OpenAI,
	req *GenerationRequest,
) {
	defer q.release(req.UserID)

	if q.config.MaxAge > 0 && req.Age() > q.config.MaxAge {
		q.logger.WarnContext(
			ctx,
			"discarded old request",
			"user_id", req.UserID,
			"age", req.Age(),
			"max_age", q.config.MaxAge,
		)
		req.Result <- GenerationResult{
			Err: errors.New("request expired before it could be processed"),
		}
		return
	}

	content, err := ai.Complete(ctx, req.Prompt)
	req.Result <- GenerationResult{Content: content, Err: err}
}
