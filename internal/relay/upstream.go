// Package relay is the credential-holding proxy between clients and the
// generation upstream. Clients never see the upstream API key.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// ProxyResponse carries an upstream reply back to the handler verbatim.
type ProxyResponse struct {
	Status int
	Body   []byte
}

// UpstreamAPI is the upstream surface the handlers forward to.
type UpstreamAPI interface {
	Generate(ctx context.Context, payload []byte) (*ProxyResponse, error)
	JobStatus(ctx context.Context, jobID string) (*ProxyResponse, error)
	VideoStatus(ctx context.Context, operation string) (*ProxyResponse, error)
}

// Upstream forwards requests to the generation backend with the server-held
// API key attached.
type Upstream struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewUpstream builds the upstream client.
func NewUpstream(baseURL, apiKey string, httpClient *http.Client, logger zerolog.Logger) (*Upstream, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("relay: upstream base url is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Upstream{
		baseURL:    base,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

var _ UpstreamAPI = (*Upstream)(nil)

// Generate forwards a generation submit.
func (u *Upstream) Generate(ctx context.Context, payload []byte) (*ProxyResponse, error) {
	return u.do(ctx, http.MethodPost, "/generate", payload)
}

// JobStatus forwards a job snapshot fetch.
func (u *Upstream) JobStatus(ctx context.Context, jobID string) (*ProxyResponse, error) {
	return u.do(ctx, http.MethodGet, "/jobs/"+url.PathEscape(jobID), nil)
}

// VideoStatus forwards a long-running video operation poll.
func (u *Upstream) VideoStatus(ctx context.Context, operation string) (*ProxyResponse, error) {
	return u.do(ctx, http.MethodGet, "/video/operations/"+url.PathEscape(operation), nil)
}

func (u *Upstream) do(ctx context.Context, method, path string, payload []byte) (*ProxyResponse, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("relay: build upstream request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+u.apiKey)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay: upstream %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("relay: read upstream response: %w", err)
	}
	return &ProxyResponse{Status: resp.StatusCode, Body: raw}, nil
}
