package video

import (
	"context"
	"errors"
	"time"

	"receptionist/internal/domain"
	"receptionist/internal/infra"
)

// DefaultPollInterval is the fixed delay between two status queries.
const DefaultPollInterval = 5 * time.Second

// Status is the coarse state of a remote job. The provider exposes no
// progress beyond done or not done.
type Status int

const (
	StatusPending Status = iota
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Handle references a remote job. Only this package creates handles; callers
// pass them back unchanged. A job the provider finished during submission
// carries its final snapshot and is never polled.
type Handle struct {
	ref     string
	settled *Snapshot
}

func (h Handle) String() string {
	return h.ref
}

// IsZero reports whether h was never assigned by a provider.
func (h Handle) IsZero() bool {
	return h.ref == "" && h.settled == nil
}

// Snapshot is one answer from the provider about a job. Handle may differ
// from the one that was queried; the newest handle is used for the next poll.
type Snapshot struct {
	Handle    Handle
	Status    Status
	Message   string
	Artifacts []domain.MediaResult
}

// Backend talks to the provider. Implementations must not retry.
type Backend interface {
	Submit(ctx context.Context, req domain.GenerationRequest) (Snapshot, error)
	Poll(ctx context.Context, h Handle) (Snapshot, error)
	Fetch(ctx context.Context, result domain.MediaResult) ([]byte, string, error)
}

// Generator is what HTTP handlers and the CLI depend on.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.MediaResult, error)
	Fetch(ctx context.Context, result domain.MediaResult) ([]byte, string, error)
}

// Options configures a JobClient. Zero values select the defaults: 5s poll
// interval, no timeout, the wall clock and a discard logger.
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
	Clock        Clock
	Logger       *infra.Logger
}

// WaitOptions bounds a single AwaitCompletion call. A zero PollInterval
// selects DefaultPollInterval; a zero Timeout waits until ctx is done.
type WaitOptions struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// JobClient drives submit, poll and resolve against a Backend. It keeps no
// state between calls, so one client serves any number of concurrent jobs.
type JobClient struct {
	backend  Backend
	defaults WaitOptions
	clock    Clock
	logger   *infra.Logger
}

func NewJobClient(backend Backend, opts Options) *JobClient {
	clock := opts.Clock
	if clock == nil {
		clock = WallClock()
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := opts.Timeout
	if timeout < 0 {
		timeout = 0
	}
	return &JobClient{
		backend:  backend,
		defaults: WaitOptions{PollInterval: interval, Timeout: timeout},
		clock:    clock,
		logger:   logger,
	}
}

// Defaults returns the wait options used by Generate.
func (c *JobClient) Defaults() WaitOptions {
	return c.defaults
}

// Submit validates req and creates the remote job. Rejections are returned
// as domain.ErrSubmission and never retried.
func (c *JobClient) Submit(ctx context.Context, req domain.GenerationRequest) (Handle, error) {
	if err := req.Validate(); err != nil {
		return Handle{}, err
	}
	snap, err := c.backend.Submit(ctx, req)
	if err != nil {
		return Handle{}, classify(ctx, "submit", domain.ErrSubmission, err)
	}
	if snap.Status == StatusFailed {
		return Handle{}, domain.NewJobError(domain.ErrSubmission, "submit", snap.Message, nil)
	}
	if snap.Status == StatusDone {
		settled := snap
		c.logger.Info().
			Str("job", snap.Handle.String()).
			Int("artifacts", len(snap.Artifacts)).
			Msg("video: job finished at submission")
		return Handle{ref: snap.Handle.ref, settled: &settled}, nil
	}
	if snap.Handle.IsZero() {
		return Handle{}, domain.NewJobError(domain.ErrSubmission, "submit", "provider returned no job handle", nil)
	}
	c.logger.Info().
		Str("job", snap.Handle.String()).
		Str("aspect_ratio", string(req.AspectRatio)).
		Msg("video: job submitted")
	return snap.Handle, nil
}

// AwaitCompletion polls h until the job finishes, fails, the timeout elapses
// or ctx is done. Polls are strictly sequential. Giving up never cancels the
// remote job.
func (c *JobClient) AwaitCompletion(ctx context.Context, h Handle, opts WaitOptions) (domain.MediaResult, error) {
	if h.IsZero() {
		return domain.MediaResult{}, domain.InvalidRequestf("job handle is empty")
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	start := c.clock.Now()
	if h.settled != nil {
		return c.finish(h, *h.settled, 0, start)
	}
	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = start.Add(opts.Timeout)
	}

	current := h
	for polls := 1; ; polls++ {
		wait := interval
		if !deadline.IsZero() {
			remaining := deadline.Sub(c.clock.Now())
			if remaining <= 0 {
				return domain.MediaResult{}, c.timeout(current, polls-1, opts.Timeout)
			}
			if remaining < wait {
				wait = remaining
			}
		}
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return domain.MediaResult{}, contextError(ctx, "await", err)
		}
		if !deadline.IsZero() && !c.clock.Now().Before(deadline) {
			return domain.MediaResult{}, c.timeout(current, polls-1, opts.Timeout)
		}

		snap, err := c.backend.Poll(ctx, current)
		if err != nil {
			return domain.MediaResult{}, classify(ctx, "poll", domain.ErrProvider, err)
		}
		if !snap.Handle.IsZero() {
			current = snap.Handle
		}

		if snap.Status != StatusPending {
			return c.finish(current, snap, polls, start)
		}
		c.logger.Debug().Str("job", current.String()).Int("polls", polls).Msg("video: job pending")
	}
}

// finish resolves a terminal snapshot to the first artifact.
func (c *JobClient) finish(h Handle, snap Snapshot, polls int, start time.Time) (domain.MediaResult, error) {
	if snap.Status == StatusFailed {
		c.logger.Warn().Str("job", h.String()).Int("polls", polls).Str("reason", snap.Message).Msg("video: job failed")
		return domain.MediaResult{}, domain.NewJobError(domain.ErrProvider, "poll", snap.Message, nil)
	}
	if len(snap.Artifacts) == 0 {
		return domain.MediaResult{}, domain.NewJobError(domain.ErrEmptyResult, "poll", "job finished without an artifact", nil)
	}
	c.logger.Info().
		Str("job", h.String()).
		Int("polls", polls).
		Int("artifacts", len(snap.Artifacts)).
		Dur("elapsed", c.clock.Now().Sub(start)).
		Msg("video: job done")
	return snap.Artifacts[0], nil
}

// Generate submits req and waits with the client's default options.
func (c *JobClient) Generate(ctx context.Context, req domain.GenerationRequest) (domain.MediaResult, error) {
	h, err := c.Submit(ctx, req)
	if err != nil {
		return domain.MediaResult{}, err
	}
	return c.AwaitCompletion(ctx, h, c.defaults)
}

// Fetch resolves a result to bytes. Remote artifacts need the provider
// credential, which only the backend holds.
func (c *JobClient) Fetch(ctx context.Context, result domain.MediaResult) ([]byte, string, error) {
	if result.IsInline() {
		return result.Data, result.MIMEType, nil
	}
	if result.URI == "" {
		return nil, "", domain.InvalidRequestf("result has neither data nor uri")
	}
	data, mime, err := c.backend.Fetch(ctx, result)
	if err != nil {
		return nil, "", classify(ctx, "fetch", domain.ErrProvider, err)
	}
	if mime == "" {
		mime = result.MIMEType
	}
	return data, mime, nil
}

func (c *JobClient) timeout(h Handle, polls int, limit time.Duration) error {
	c.logger.Warn().Str("job", h.String()).Int("polls", polls).Dur("timeout", limit).Msg("video: gave up waiting, remote job left running")
	return domain.NewJobError(domain.ErrTimeout, "await", "gave up after "+limit.String(), nil)
}

// classify passes through errors that already carry a kind and files
// everything else under fallback.
func classify(ctx context.Context, op string, fallback, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return contextError(ctx, op, err)
	}
	var jobErr *domain.JobError
	switch {
	case errors.As(err, &jobErr),
		errors.Is(err, domain.ErrMissingAPIKey),
		errors.Is(err, domain.ErrInvalidRequest):
		return err
	}
	return domain.NewJobError(fallback, op, "", err)
}

// contextError reports a stopped wait. A caller deadline counts as a timeout;
// plain cancellation is returned as is.
func contextError(ctx context.Context, op string, err error) error {
	cause := ctx.Err()
	if cause == nil {
		cause = err
	}
	if errors.Is(cause, context.DeadlineExceeded) {
		return domain.NewJobError(domain.ErrTimeout, op, "caller deadline exceeded", cause)
	}
	return cause
}

var _ Generator = (*JobClient)(nil)
