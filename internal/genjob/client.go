package genjob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"daygen/internal/domain"
)

// SubmitRequest is the provider-agnostic generation envelope accepted by the
// relay. ProviderOptions is an opaque pass-through payload.
type SubmitRequest struct {
	Prompt          string         `json:"prompt"`
	Model           string         `json:"model"`
	ProviderOptions map[string]any `json:"providerOptions,omitempty"`
	References      []string       `json:"references,omitempty"`
}

// SubmitResponse is the relay's answer to a submit call. JobID is empty when
// the provider resolved synchronously, in which case Payload holds the
// complete result.
type SubmitResponse struct {
	JobID   string          `json:"jobId,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

// API is the job envelope surface consumed by the runner. Implementations
// must honor context cancellation on every call.
type API interface {
	Submit(ctx context.Context, body any) (*SubmitResponse, error)
	JobStatus(ctx context.Context, jobID string) (*domain.JobSnapshot, error)
}

// Client talks to the relay's generation endpoints. The bearer token is
// resolved per call so a refreshed session is picked up without rebuilding
// the client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
	logger     zerolog.Logger
}

// ClientOptions configures the envelope client.
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      func() string
	Logger     zerolog.Logger
}

// NewClient constructs a client with sane defaults.
func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("genjob: base url is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		token:      opts.Token,
		logger:     opts.Logger,
	}, nil
}

// Submit posts a generation request and decodes the job envelope.
func (c *Client) Submit(ctx context.Context, body any) (*SubmitResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("genjob: encode submit body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("genjob: build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genjob: submit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp)
	}

	var out SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("genjob: decode submit response: %w", err)
	}
	return &out, nil
}

// JobStatus fetches the current snapshot for an asynchronous job.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*domain.JobSnapshot, error) {
	endpoint := c.baseURL + "/jobs/" + url.PathEscape(jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("genjob: build status request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("genjob: job status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp)
	}

	var snap domain.JobSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("genjob: decode snapshot: %w", err)
	}
	return &snap, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token == nil {
		return
	}
	if tok := strings.TrimSpace(c.token()); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
}

func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var decoded struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &decoded) == nil {
		if decoded.Message != "" {
			msg = decoded.Message
		} else if decoded.Error != "" {
			msg = decoded.Error
		}
	}
	c.logger.Debug().Int("status", resp.StatusCode).Str("path", resp.Request.URL.Path).Msg("genjob: request failed")
	return &domain.SubmissionError{StatusCode: resp.StatusCode, Message: msg}
}

var _ API = (*Client)(nil)
