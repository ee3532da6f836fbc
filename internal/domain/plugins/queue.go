package plugins

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Action is a plugin lifecycle operation executed through the queue.
type Action string

const (
	ActionInstall   Action = "install"
	ActionEnable    Action = "enable"
	ActionDisable   Action = "disable"
	ActionUninstall Action = "uninstall"
	ActionRun       Action = "run"
)

// JobState is the lifecycle state of a queued plugin job.
type JobState string

const (
	StateQueued    JobState = "queued"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
	StateCancelled JobState = "cancelled"
)

var (
	ErrQueueFull     = errors.New("plugin queue is full")
	ErrJobNotFound   = errors.New("plugin job not found")
	ErrNotCancelable = errors.New("job is no longer queued")
	ErrQueueClosed   = errors.New("plugin queue is stopped")
)

// Job is one unit of plugin work. Jobs are in-memory only; a restart drops
// queued work, which matches the simulated execution model.
type Job struct {
	ID          string     `json:"id"`
	PluginID    string     `json:"plugin_id"`
	Action      Action     `json:"action"`
	State       JobState   `json:"state"`
	Attempt     int        `json:"attempt"`
	MaxAttempts int        `json:"max_attempts"`
	Error       string     `json:"error,omitempty"`
	EnqueuedAt  time.Time  `json:"enqueued_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Runner executes a single plugin action attempt.
type Runner interface {
	Run(ctx context.Context, pluginID string, action Action) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, pluginID string, action Action) error

func (f RunnerFunc) Run(ctx context.Context, pluginID string, action Action) error {
	return f(ctx, pluginID, action)
}

// QueueConfig controls capacity and retry behavior.
type QueueConfig struct {
	Capacity    int
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (c QueueConfig) withDefaults() QueueConfig {
	if c.Capacity <= 0 {
		c.Capacity = 64
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 2 * time.Second
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 60 * time.Second
	}
	return c
}

// Queue is a bounded, single-worker execution queue with retry and
// exponential backoff. Jobs run sequentially in enqueue order.
type Queue struct {
	cfg    QueueConfig
	runner Runner
	logger zerolog.Logger

	mu      sync.Mutex
	jobs    map[string]*Job
	pending chan string
	closed  bool

	cancel context.CancelFunc
	done   chan struct{}
}

func NewQueue(cfg QueueConfig, runner Runner, logger zerolog.Logger) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		cfg:     cfg,
		runner:  runner,
		logger:  logger.With().Str("component", "plugin_queue").Logger(),
		jobs:    make(map[string]*Job),
		pending: make(chan string, cfg.Capacity),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	go q.work(ctx)
}

// Stop cancels the running job (if any) and waits for the worker to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	<-q.done
}

// Enqueue adds a job for a plugin action. maxAttempts <= 0 uses the queue
// default. Returns ErrQueueFull when the queue is at capacity.
func (q *Queue) Enqueue(pluginID string, action Action, maxAttempts int) (*Job, error) {
	if maxAttempts <= 0 {
		maxAttempts = q.cfg.MaxAttempts
	}

	job := &Job{
		ID:          ulid.Make().String(),
		PluginID:    pluginID,
		Action:      action,
		State:       StateQueued,
		MaxAttempts: maxAttempts,
		EnqueuedAt:  time.Now().UTC(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	select {
	case q.pending <- job.ID:
		q.jobs[job.ID] = job
	default:
		q.mu.Unlock()
		return nil, ErrQueueFull
	}
	snapshot := *job
	q.mu.Unlock()

	q.logger.Debug().Str("job_id", job.ID).Str("plugin_id", pluginID).Str("action", string(action)).Msg("job enqueued")
	return &snapshot, nil
}

// Cancel marks a queued job cancelled. Running or finished jobs cannot be
// cancelled.
func (q *Queue) Cancel(jobID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.State != StateQueued {
		return ErrNotCancelable
	}

	now := time.Now().UTC()
	job.State = StateCancelled
	job.FinishedAt = &now
	return nil
}

// Status returns a copy of a job.
func (q *Queue) Status(jobID string) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.jobs[jobID]
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return *job, nil
}

// List returns copies of all known jobs, newest first.
func (q *Queue) List() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.After(out[j].EnqueuedAt) })
	return out
}

// Depth returns the number of queued (not yet started) jobs.
func (q *Queue) Depth() int {
	return len(q.pending)
}

func (q *Queue) work(ctx context.Context) {
	defer close(q.done)

	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-q.pending:
			q.execute(ctx, jobID)
		}
	}
}

func (q *Queue) execute(ctx context.Context, jobID string) {
	q.mu.Lock()
	job, ok := q.jobs[jobID]
	if !ok || job.State != StateQueued {
		// Cancelled while waiting.
		q.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	job.State = StateRunning
	job.StartedAt = &now
	pluginID, action, maxAttempts := job.PluginID, job.Action, job.MaxAttempts
	q.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		q.mu.Lock()
		job.Attempt = attempt
		q.mu.Unlock()

		lastErr = q.runner.Run(ctx, pluginID, action)
		if lastErr == nil {
			q.finish(job, StateSucceeded, "")
			q.logger.Info().Str("job_id", jobID).Str("plugin_id", pluginID).Str("action", string(action)).Int("attempt", attempt).Msg("plugin job succeeded")
			return
		}
		if ctx.Err() != nil {
			q.finish(job, StateFailed, ctx.Err().Error())
			return
		}

		if attempt < maxAttempts {
			delay := q.backoff(attempt)
			q.logger.Warn().
				Err(lastErr).
				Str("job_id", jobID).
				Str("plugin_id", pluginID).
				Int("attempt", attempt).
				Dur("retry_in", delay).
				Msg("plugin job attempt failed")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				q.finish(job, StateFailed, ctx.Err().Error())
				return
			case <-timer.C:
			}
		}
	}

	q.finish(job, StateFailed, lastErr.Error())
	q.logger.Error().Err(lastErr).Str("job_id", jobID).Str("plugin_id", pluginID).Msg("plugin job failed")
}

func (q *Queue) finish(job *Job, state JobState, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now().UTC()
	job.State = state
	job.Error = errMsg
	job.FinishedAt = &now
}

func (q *Queue) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(q.cfg.BaseBackoff) * math.Pow(2, float64(attempt-1)))
	if delay > q.cfg.MaxBackoff {
		delay = q.cfg.MaxBackoff
	}
	return delay
}
