package jobsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/careform/medextract/constants"
	"github.com/careform/medextract/internal/api"
)

const defaultPollInterval = 3 * time.Second

// Update is one observation delivered to the engine's consumer: either a
// fresh Job snapshot or a single surfaced failure (stream loss or a poll
// fetch error).
type Update struct {
	Job *api.Job
	Err error
}

// Engine owns the lifecycle observation of a single job. It prefers the
// server-push subscription and degrades to fixed-interval polling when
// the subscription cannot be opened. It stops on its own at a
// sync-terminal status and guarantees at most one active
// subscription/timer per instance.
type Engine struct {
	client       *api.Client
	jobID        string
	pollInterval time.Duration
	forcePoll    bool
	log          *zap.SugaredLogger

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	current   *api.Job
	extracted *api.ExtractedDocument
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger. Nil is replaced with a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithPollInterval sets the polling fallback interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.pollInterval = d
		}
	}
}

// WithPolling forces polling mode, skipping the push subscription.
func WithPolling() Option {
	return func(e *Engine) { e.forcePoll = true }
}

// New builds an engine for one job.
func New(client *api.Client, jobID string, opts ...Option) *Engine {
	e := &Engine{
		client:       client,
		jobID:        jobID,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = zap.NewNop().Sugar()
	}
	return e
}

// Open begins observation and returns the update sequence. The channel
// closes once a sync-terminal status has been handled, after a surfaced
// stream loss, or when Close is called. Reopening implicitly closes any
// prior observation first.
func (e *Engine) Open(ctx context.Context) <-chan Update {
	e.Close()

	ctx, cancel := context.WithCancel(ctx)
	updates := make(chan Update, 1)
	done := make(chan struct{})

	e.mu.Lock()
	e.cancel = cancel
	e.done = done
	e.mu.Unlock()

	if e.forcePoll {
		go e.pollLoop(ctx, updates, done)
		return updates
	}

	stream, err := e.client.SubscribeJobStatus(ctx, e.jobID)
	if err != nil {
		e.log.Warnw("sync.push_unavailable", "job_id", e.jobID, "error", err)
		go e.pollLoop(ctx, updates, done)
		return updates
	}
	go e.pushLoop(ctx, stream, updates, done)
	return updates
}

// Close tears down the active subscription or timer and waits for it to
// stop. Idempotent; safe after the engine has already stopped on its own.
// Callers must invoke it on teardown.
func (e *Engine) Close() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Current returns the last observed snapshot, if any.
func (e *Engine) Current() *api.Job {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Extracted returns the document fetched after a completed status was
// observed, if that best-effort fetch succeeded.
func (e *Engine) Extracted() *api.ExtractedDocument {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.extracted
}

func (e *Engine) pushLoop(ctx context.Context, stream *api.StatusStream, updates chan<- Update, done chan struct{}) {
	defer close(done)
	defer close(updates)
	defer stream.Close()

	for job := range stream.Updates() {
		j := job
		e.setCurrent(&j)
		if !e.deliver(ctx, updates, Update{Job: &j}) {
			return
		}
		if j.Status.SyncTerminal() {
			e.onTerminal(ctx, &j)
			return
		}
	}

	// Stream ended without a terminal frame: either torn down locally or
	// the connection was lost. A loss is surfaced exactly once; the
	// caller decides whether to reopen.
	if err := stream.Err(); err != nil {
		e.deliver(ctx, updates, Update{Err: err})
	}
}

func (e *Engine) pollLoop(ctx context.Context, updates chan<- Update, done chan struct{}) {
	defer close(done)
	defer close(updates)

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		job, err := e.client.GetJob(ctx, e.jobID)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err != nil:
			// The polling loop is a designed re-attempt loop: the error
			// is surfaced but the next tick still fires.
			if !e.deliver(ctx, updates, Update{Err: err}) {
				return
			}
		case e.statusChanged(job):
			e.setCurrent(job)
			if !e.deliver(ctx, updates, Update{Job: job}) {
				return
			}
			if job.Status.SyncTerminal() {
				e.onTerminal(ctx, job)
				return
			}
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// deliver sends an update unless the engine was torn down first, so a
// closed session never observes late results.
func (e *Engine) deliver(ctx context.Context, updates chan<- Update, u Update) bool {
	select {
	case updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) statusChanged(job *api.Job) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current == nil || e.current.Status != job.Status
}

func (e *Engine) setCurrent(job *api.Job) {
	e.mu.Lock()
	e.current = job
	e.mu.Unlock()
}

// onTerminal runs the engine's final obligation: on completed, exactly
// one best-effort fetch of the extracted document. A not-ready answer is
// benign and swallowed.
func (e *Engine) onTerminal(ctx context.Context, job *api.Job) {
	e.log.Infow("sync.terminal", "job_id", e.jobID, "status", job.Status)
	if job.Status != constants.JobStatusCompleted {
		return
	}
	doc, err := e.client.GetExtracted(ctx, e.jobID)
	if err != nil {
		if !errors.Is(err, api.ErrNotReady) {
			e.log.Warnw("sync.extracted_fetch_failed", "job_id", e.jobID, "error", err)
		}
		return
	}
	e.mu.Lock()
	e.extracted = doc
	e.mu.Unlock()
}
