package genjob

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"daygen/internal/domain"
)

const (
	// DefaultPollInterval is the delay between status polls.
	DefaultPollInterval = 2 * time.Second

	// DefaultPollTimeout bounds the overall poll loop. Video jobs routinely
	// take minutes, so the default is generous.
	DefaultPollTimeout = 10 * time.Minute

	// maxConsecutivePollFailures tolerates transient status-endpoint errors
	// before the poll loop gives up with the underlying network error.
	maxConsecutivePollFailures = 3
)

// Config describes one generation run. ParseImmediate interprets a
// synchronous submit payload; returning ok=false signals that the job needs
// polling. ParseJobResult interprets the final snapshot of an asynchronous
// job and may fail.
type Config struct {
	Provider  string
	MediaType domain.MediaType
	Body      any
	Prompt    string
	Model     string

	SubmitTimeout  time.Duration
	PollTimeout    time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration

	ParseImmediate func(resp *SubmitResponse) (any, bool)
	ParseJobResult func(snap domain.JobSnapshot, resp *SubmitResponse) (any, error)
	OnUpdate       func(snap domain.JobSnapshot)

	Logger zerolog.Logger
}

// Result is the outcome of a generation run. JobID is empty when the provider
// resolved synchronously.
type Result struct {
	Value any
	JobID string
}

// Run is the single choke point for every provider's generate call: it
// submits the request, returns an immediate result when the provider resolves
// synchronously, and otherwise polls the job until a terminal state, the poll
// deadline, or cancellation. Cancellation is cooperative: the context is
// observed before every suspension point, and aborting does not stop the
// remote provider job.
//
// Run keeps no global state; concurrent runs each own their poll timers.
// Cross-call admission control belongs to the queue package.
func Run(ctx context.Context, api API, cfg Config) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, cancelledErr(cfg.Provider)
	}

	resp, err := submit(ctx, api, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelledErr(cfg.Provider)
		}
		return nil, err
	}

	if resp.JobID == "" {
		if cfg.ParseImmediate != nil {
			if value, ok := cfg.ParseImmediate(resp); ok {
				return &Result{Value: value}, nil
			}
		}
		return nil, fmt.Errorf("%s returned neither a job id nor an immediate result: %w", cfg.Provider, domain.ErrEmptyResult)
	}

	return poll(ctx, api, cfg, resp)
}

func submit(ctx context.Context, api API, cfg Config) (*SubmitResponse, error) {
	submitCtx := ctx
	if cfg.SubmitTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, cfg.SubmitTimeout)
		defer cancel()
	}
	resp, err := api.Submit(submitCtx, cfg.Body)
	if err != nil {
		return nil, fmt.Errorf("submit %s generation: %w", cfg.Provider, err)
	}
	return resp, nil
}

func poll(ctx context.Context, api API, cfg Config, resp *SubmitResponse) (*Result, error) {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	deadline := time.Now().Add(timeout)

	lastStatus := domain.JobStatusQueued
	failures := 0

	for {
		if ctx.Err() != nil {
			return nil, cancelledErr(cfg.Provider)
		}

		snap, err := fetchStatus(ctx, api, cfg, resp.JobID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, cancelledErr(cfg.Provider)
			}
			failures++
			if failures >= maxConsecutivePollFailures {
				return nil, fmt.Errorf("poll %s job %s: %w", cfg.Provider, resp.JobID, err)
			}
			cfg.Logger.Warn().Err(err).Str("job_id", resp.JobID).Int("failures", failures).Msg("runner: status poll failed, retrying")
		} else {
			failures = 0

			// Clamp status regressions so consumers never observe a job
			// moving backwards.
			if !domain.CanTransition(lastStatus, snap.Job.Status) {
				snap.Job.Status = lastStatus
			} else {
				lastStatus = snap.Job.Status
			}

			if cfg.OnUpdate != nil {
				cfg.OnUpdate(*snap)
			}

			interp, interpErr := Interpret(*snap)
			if interp.Done {
				return finish(cfg, *snap, resp, interpErr)
			}
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%s job %s: %w", cfg.Provider, resp.JobID, domain.ErrPollTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, cancelledErr(cfg.Provider)
		case <-time.After(interval):
		}
	}
}

func fetchStatus(ctx context.Context, api API, cfg Config, jobID string) (*domain.JobSnapshot, error) {
	statusCtx := ctx
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		statusCtx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}
	return api.JobStatus(statusCtx, jobID)
}

func finish(cfg Config, snap domain.JobSnapshot, resp *SubmitResponse, interpErr error) (*Result, error) {
	switch snap.Job.Status {
	case domain.JobStatusCancelled:
		return nil, cancelledErr(cfg.Provider)
	case domain.JobStatusFailed:
		return nil, &domain.ProviderJobError{Provider: cfg.Provider, Message: failureMessage(snap)}
	}
	if interpErr != nil {
		return nil, interpErr
	}
	if cfg.ParseJobResult == nil {
		return nil, fmt.Errorf("%s job %s: no result parser configured", cfg.Provider, snap.Job.ID)
	}
	value, err := cfg.ParseJobResult(snap, resp)
	if err != nil {
		return nil, fmt.Errorf("parse %s job result: %w", cfg.Provider, err)
	}
	return &Result{Value: value, JobID: snap.Job.ID}, nil
}

func cancelledErr(provider string) error {
	return fmt.Errorf("%s: %w", provider, domain.ErrCancelled)
}
