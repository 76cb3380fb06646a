// Package generate binds one provider entry to the shared queue and job
// runner, tracking the loading/error/result state a caller renders from.
package generate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"daygen/internal/domain"
	"daygen/internal/gallery"
	"daygen/internal/genjob"
	"daygen/internal/providers"
	"daygen/internal/queue"
)

// CreditRefresher re-fetches the credit balance after a metered generation.
type CreditRefresher interface {
	RefreshUser(ctx context.Context) error
}

// State is what a session exposes between operations. Items holds the last
// successful result; Err and ErrorMessage the last failure.
type State struct {
	IsLoading    bool
	Err          error
	ErrorMessage string
	Items        []domain.GalleryItem
	Progress     *float64
	Stage        string
}

// Config wires a session to its collaborators. Gallery and Credits are
// optional; timeouts default to the runner's.
type Config struct {
	Provider string
	Registry *providers.Registry
	API      genjob.API
	Queue    *queue.Active
	Gallery  *gallery.Store
	Credits  CreditRefresher
	Logger   zerolog.Logger

	SubmitTimeout  time.Duration
	PollTimeout    time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
}

// Session runs generations for one provider. All state mutations are
// mutex-guarded; a session may be driven from several goroutines.
type Session struct {
	entry   providers.Entry
	api     genjob.API
	queue   *queue.Active
	gallery *gallery.Store
	credits CreditRefresher
	logger  zerolog.Logger

	submitTimeout  time.Duration
	pollTimeout    time.Duration
	pollInterval   time.Duration
	requestTimeout time.Duration

	mu    sync.Mutex
	state State
}

// NewSession looks up the provider and builds a session around it.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("generate: registry is required")
	}
	if cfg.API == nil {
		return nil, fmt.Errorf("generate: api is required")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("generate: queue is required")
	}
	entry, ok := cfg.Registry.Lookup(cfg.Provider)
	if !ok {
		return nil, fmt.Errorf("generate: unknown provider %q", cfg.Provider)
	}
	return &Session{
		entry:          entry,
		api:            cfg.API,
		queue:          cfg.Queue,
		gallery:        cfg.Gallery,
		credits:        cfg.Credits,
		logger:         cfg.Logger,
		submitTimeout:  cfg.SubmitTimeout,
		pollTimeout:    cfg.PollTimeout,
		pollInterval:   cfg.PollInterval,
		requestTimeout: cfg.RequestTimeout,
	}, nil
}

// Provider returns the provider id this session dispatches to.
func (s *Session) Provider() string {
	return s.entry.ID
}

// State returns a copy of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Items = make([]domain.GalleryItem, len(s.state.Items))
	copy(state.Items, s.state.Items)
	return state
}

// ClearError drops the recorded failure without touching results.
func (s *Session) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Err = nil
	s.state.ErrorMessage = ""
}

// Reset returns the session to its initial state.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
}

// Generate dispatches one generation through the shared queue and runner. The
// queue slot is held for the full lifetime of the run and released on every
// exit path. Capacity rejection happens before any network call.
func (s *Session) Generate(ctx context.Context, opts providers.Options) ([]domain.GalleryItem, error) {
	body, err := s.entry.BuildRequest(opts)
	if err != nil {
		return nil, s.fail(err)
	}

	queued, err := s.queue.Enqueue(opts.Prompt, s.entry.ID)
	if err != nil {
		return nil, s.fail(err)
	}
	defer s.queue.Resolve(queued.ID)

	s.begin()

	result, err := genjob.Run(ctx, s.api, genjob.Config{
		Provider:       s.entry.ID,
		MediaType:      s.entry.Media,
		Body:           body,
		Prompt:         opts.Prompt,
		Model:          opts.Model,
		SubmitTimeout:  s.submitTimeout,
		PollTimeout:    s.pollTimeout,
		PollInterval:   s.pollInterval,
		RequestTimeout: s.requestTimeout,
		ParseImmediate: s.parseImmediate(opts),
		ParseJobResult: s.parseJobResult(opts),
		OnUpdate:       s.onUpdate,
		Logger:         s.logger,
	})
	if err != nil {
		return nil, s.fail(err)
	}

	items, _ := result.Value.([]domain.GalleryItem)
	s.succeed(items)

	if s.gallery != nil {
		for _, item := range items {
			s.gallery.Add(ctx, item)
		}
	}
	if s.entry.Metered && s.credits != nil {
		go s.refreshCredits()
	}
	return items, nil
}

// Edit re-generates from an existing result. Providers without the capability
// are rejected synchronously.
func (s *Session) Edit(ctx context.Context, opts providers.Options) ([]domain.GalleryItem, error) {
	if !s.entry.Capabilities.Edit {
		return nil, s.fail(s.unsupported("edit"))
	}
	return s.Generate(ctx, withMode(opts, "edit"))
}

// Reframe changes the aspect ratio of an existing result.
func (s *Session) Reframe(ctx context.Context, opts providers.Options) ([]domain.GalleryItem, error) {
	if !s.entry.Capabilities.Reframe {
		return nil, s.fail(s.unsupported("reframe"))
	}
	return s.Generate(ctx, withMode(opts, "reframe"))
}

// Upscale increases the resolution of an existing result.
func (s *Session) Upscale(ctx context.Context, opts providers.Options) ([]domain.GalleryItem, error) {
	if !s.entry.Capabilities.Upscale {
		return nil, s.fail(s.unsupported("upscale"))
	}
	return s.Generate(ctx, withMode(opts, "upscale"))
}

// Describe produces a text description of a reference image.
func (s *Session) Describe(ctx context.Context, opts providers.Options) ([]domain.GalleryItem, error) {
	if !s.entry.Capabilities.Describe {
		return nil, s.fail(s.unsupported("describe"))
	}
	return s.Generate(ctx, withMode(opts, "describe"))
}

func (s *Session) unsupported(op string) error {
	return fmt.Errorf("%s %s: %w", s.entry.ID, op, domain.ErrUnsupportedOperation)
}

func withMode(opts providers.Options, mode string) providers.Options {
	extra := make(map[string]any, len(opts.Extra)+1)
	for k, v := range opts.Extra {
		extra[k] = v
	}
	extra["mode"] = mode
	opts.Extra = extra
	return opts
}

func (s *Session) parseImmediate(opts providers.Options) func(resp *genjob.SubmitResponse) (any, bool) {
	if s.entry.ParseImmediate == nil {
		return nil
	}
	return func(resp *genjob.SubmitResponse) (any, bool) {
		items, ok := s.entry.ParseImmediate(opts, resp)
		return items, ok
	}
}

func (s *Session) parseJobResult(opts providers.Options) func(snap domain.JobSnapshot, resp *genjob.SubmitResponse) (any, error) {
	if s.entry.ParseJobResult == nil {
		return nil
	}
	return func(snap domain.JobSnapshot, resp *genjob.SubmitResponse) (any, error) {
		return s.entry.ParseJobResult(opts, snap, resp)
	}
}

func (s *Session) onUpdate(snap domain.JobSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Progress = snap.Progress
	s.state.Stage = snap.Stage
}

func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = true
	s.state.Err = nil
	s.state.ErrorMessage = ""
	s.state.Progress = nil
	s.state.Stage = ""
}

func (s *Session) succeed(items []domain.GalleryItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = false
	s.state.Items = items
	s.state.Progress = nil
	s.state.Stage = ""
}

func (s *Session) fail(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = false
	s.state.Err = err
	s.state.ErrorMessage = UserMessage(err)
	return err
}

// refreshCredits runs detached from the generation that triggered it. The
// balance changed server-side regardless of whether the caller is still
// waiting, and a refresh failure must not fail a finished generation.
func (s *Session) refreshCredits() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.credits.RefreshUser(ctx); err != nil {
		s.logger.Warn().Err(err).Str("provider", s.entry.ID).Msg("generate: credit refresh failed")
	}
}
