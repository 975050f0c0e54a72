// Package generation drives one panorama generation request at a time:
// submit, poll on a fixed interval, and report the terminal result exactly
// once.
//
// Every submission starts a new job line with its own epoch and context.
// Submitting again or closing the controller cancels the previous line; any
// response that arrives for a cancelled line is dropped without touching
// controller state or invoking a callback.
package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/skybox-viewer/internal/metrics"
	"github.com/fpang/skybox-viewer/internal/panorama"
	"github.com/fpang/skybox-viewer/internal/skyboxapi"
)

// DefaultPollInterval is the fixed delay between status checks.
const DefaultPollInterval = 2 * time.Second

var (
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("generation: controller closed")
	// ErrNoJob is returned by Wait before the first submission.
	ErrNoJob = errors.New("generation: no job submitted")
	// ErrInFlight is returned by Reset while a job is still running.
	ErrInFlight = errors.New("generation: job still in flight")
	// ErrSuperseded is returned by Wait when a newer submission or Close
	// replaced the job being waited on.
	ErrSuperseded = errors.New("generation: job superseded")
)

// Client is the part of the generation service the controller uses.
type Client interface {
	Generate(ctx context.Context, req skyboxapi.GenerateRequest) (string, error)
	Imagine(ctx context.Context, handle string) (skyboxapi.ImagineStatus, error)
}

// Config bounds polling. Zero values for the limits mean unbounded.
type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxPollDuration time.Duration
}

// Callbacks receive the terminal outcome of each job. Exactly one of them
// is called once per job unless the job is superseded first. They run on
// the job's goroutine and must not call Submit or Close synchronously.
type Callbacks struct {
	OnComplete func(job panorama.Job, result panorama.Descriptor)
	OnError    func(job panorama.Job, err error)
}

// Controller runs the idle → submitted → pending → complete|failed state
// machine. It is safe for concurrent use.
type Controller struct {
	client    Client
	cfg       Config
	callbacks Callbacks

	// deliver serialises terminal callbacks with supersession so that once
	// Submit or Close returns, no callback of an older job can start.
	deliver sync.Mutex

	mu      sync.Mutex
	epoch   uint64
	nextID  uint64
	job     panorama.Job
	lastErr error
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
	running sync.WaitGroup
}

// New creates an idle controller.
func New(client Client, cfg Config, callbacks Callbacks) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Controller{
		client:    client,
		cfg:       cfg,
		callbacks: callbacks,
		job:       panorama.Job{Status: panorama.StatusIdle},
	}
}

// Submit validates the request and, if valid, supersedes any in-flight job
// and starts a new one in the background. Validation failures are returned
// synchronously without any network call. ctx bounds the lifetime of the
// job; cancelling it tears the job down silently. The returned id is the
// job's local request id.
func (c *Controller) Submit(ctx context.Context, prompt string, styleID int, negativeText *string) (uint64, error) {
	if err := panorama.ValidateRequest(prompt, styleID); err != nil {
		return 0, err
	}

	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	if c.cancel != nil {
		c.cancel()
	}

	c.epoch++
	c.nextID++
	jobCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.lastErr = nil
	c.job = panorama.Job{
		LocalRequestID: c.nextID,
		Prompt:         prompt,
		StyleID:        styleID,
		NegativeText:   negativeText,
		Status:         panorama.StatusSubmitted,
	}

	req := skyboxapi.GenerateRequest{Prompt: prompt, StyleID: styleID, NegativeText: negativeText}
	c.running.Add(1)
	go c.run(jobCtx, c.epoch, c.job.LocalRequestID, req, c.done)

	log.Info().
		Uint64("requestId", c.nextID).
		Int("styleId", styleID).
		Int("promptLength", len(prompt)).
		Bool("negative", negativeText != nil).
		Msg("Generation submitted")
	return c.nextID, nil
}

// run owns one job line from creation request to terminal status.
func (c *Controller) run(ctx context.Context, epoch, requestID uint64, req skyboxapi.GenerateRequest, done chan struct{}) {
	defer c.running.Done()
	defer close(done)
	defer c.abandon(ctx, epoch)

	startTime := time.Now()
	handle, err := c.client.Generate(ctx, req)
	if err != nil {
		c.fail(ctx, epoch, startTime, &panorama.SubmissionError{Err: err})
		return
	}

	if !c.update(ctx, epoch, func(j *panorama.Job) {
		j.Handle = handle
		j.Status = panorama.StatusPending
	}) {
		return
	}
	log.Debug().Uint64("requestId", requestID).Str("handle", handle).Msg("Generation pending")

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	polls := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		polls++
		if !c.update(ctx, epoch, func(j *panorama.Job) { j.Polls = polls }) {
			return
		}

		status, err := c.client.Imagine(ctx, handle)
		if err != nil {
			c.fail(ctx, epoch, startTime, &panorama.PollTransportError{Handle: handle, Err: err})
			return
		}

		switch {
		case status.Complete():
			result := status.Descriptor()
			if result.Prompt == "" {
				result.Prompt = req.Prompt
			}
			c.complete(ctx, epoch, startTime, result)
			return
		case status.Failed():
			c.fail(ctx, epoch, startTime, &panorama.GenerationFailedError{Handle: handle, Message: status.ErrorMessage})
			return
		}

		log.Debug().
			Uint64("requestId", requestID).
			Str("handle", handle).
			Str("status", status.Status).
			Int("polls", polls).
			Msg("Generation still running")

		if c.cfg.MaxPollAttempts > 0 && polls >= c.cfg.MaxPollAttempts {
			c.fail(ctx, epoch, startTime, &panorama.GenerationFailedError{
				Handle:  handle,
				Message: fmt.Sprintf("Generation did not finish after %d status checks", polls),
			})
			return
		}
		if c.cfg.MaxPollDuration > 0 && time.Since(startTime) >= c.cfg.MaxPollDuration {
			c.fail(ctx, epoch, startTime, &panorama.GenerationFailedError{
				Handle:  handle,
				Message: fmt.Sprintf("Generation did not finish within %s", c.cfg.MaxPollDuration),
			})
			return
		}
	}
}

// abandon returns the controller to idle when the owning context was
// cancelled mid-job. Superseded or closed lines are left alone.
func (c *Controller) abandon(ctx context.Context, epoch uint64) {
	if ctx.Err() == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || epoch != c.epoch || c.job.Status.Terminal() {
		return
	}
	log.Debug().Uint64("requestId", c.job.LocalRequestID).Msg("Generation abandoned")
	c.job = panorama.Job{Status: panorama.StatusIdle}
	c.lastErr = nil
}

// update applies fn to the job if the line is still current.
func (c *Controller) update(ctx context.Context, epoch uint64, fn func(*panorama.Job)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(ctx, epoch) {
		return false
	}
	fn(&c.job)
	return true
}

func (c *Controller) liveLocked(ctx context.Context, epoch uint64) bool {
	return !c.closed && epoch == c.epoch && ctx.Err() == nil
}

func (c *Controller) complete(ctx context.Context, epoch uint64, startTime time.Time, result panorama.Descriptor) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	if !c.liveLocked(ctx, epoch) {
		c.mu.Unlock()
		log.Debug().Uint64("epoch", epoch).Msg("Dropped result of superseded generation")
		return
	}
	c.job.Status = panorama.StatusComplete
	c.job.Result = &result
	job := c.job.Clone()
	c.mu.Unlock()

	log.Info().
		Uint64("requestId", job.LocalRequestID).
		Str("handle", job.Handle).
		Str("imageUrl", result.ImageURL).
		Int("polls", job.Polls).
		Dur("duration", time.Since(startTime)).
		Msg("Generation complete")
	emitMetrics(job, startTime)

	if c.callbacks.OnComplete != nil {
		c.callbacks.OnComplete(job, result)
	}
}

func (c *Controller) fail(ctx context.Context, epoch uint64, startTime time.Time, err error) {
	c.deliver.Lock()
	defer c.deliver.Unlock()

	c.mu.Lock()
	if !c.liveLocked(ctx, epoch) {
		c.mu.Unlock()
		log.Debug().Err(err).Uint64("epoch", epoch).Msg("Dropped error of superseded generation")
		return
	}
	c.job.Status = panorama.StatusFailed
	c.job.ErrorMessage = err.Error()
	c.lastErr = err
	job := c.job.Clone()
	c.mu.Unlock()

	log.Error().
		Uint64("requestId", job.LocalRequestID).
		Str("handle", job.Handle).
		Str("error", job.ErrorMessage).
		Int("polls", job.Polls).
		Msg("Job failed")
	emitMetrics(job, startTime)

	if c.callbacks.OnError != nil {
		c.callbacks.OnError(job, err)
	}
}

// Snapshot returns a copy of the current job.
func (c *Controller) Snapshot() panorama.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.job.Clone()
}

// Reset returns a finished controller to idle so the next submission starts
// from a clean state.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.job.Status {
	case panorama.StatusIdle, panorama.StatusComplete, panorama.StatusFailed:
		c.job = panorama.Job{Status: panorama.StatusIdle}
		c.lastErr = nil
		return nil
	default:
		return ErrInFlight
	}
}

// Wait blocks until the current job reaches a terminal status and returns
// it, along with the job's error if it failed.
func (c *Controller) Wait(ctx context.Context) (panorama.Job, error) {
	c.mu.Lock()
	done, epoch := c.done, c.epoch
	c.mu.Unlock()
	if done == nil {
		return c.Snapshot(), ErrNoJob
	}

	select {
	case <-ctx.Done():
		return c.Snapshot(), ctx.Err()
	case <-done:
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	job := c.job.Clone()
	if c.closed || c.epoch != epoch || !job.Status.Terminal() {
		return job, ErrSuperseded
	}
	return job, c.lastErr
}

// Close cancels the in-flight job, if any, and waits for its goroutine to
// exit. No callback fires after Close returns.
func (c *Controller) Close() {
	c.deliver.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.deliver.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.deliver.Unlock()

	c.running.Wait()
}

func emitMetrics(job panorama.Job, startTime time.Time) {
	metrics.New(metrics.DefaultNamespace).
		Dimension("component", "generation").
		Dimension("outcome", string(job.Status)).
		Metric("GenerationLatency", float64(time.Since(startTime).Milliseconds()), metrics.UnitMilliseconds).
		Metric("StatusChecks", float64(job.Polls), metrics.UnitCount).
		Property("requestId", job.LocalRequestID).
		Property("styleId", job.StyleID).
		Flush()
}
