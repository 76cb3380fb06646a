// Package authsync consumes the auth provider at its interface boundary:
// fetching the authoritative profile/credits, updating it, and signing out.
package authsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"daygen/internal/domain"
)

// User is the authoritative profile returned by the auth backend.
type User struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Credits int    `json:"credits"`
}

// Client calls the auth endpoints with a bearer token resolved per request.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      func() string
	logger     zerolog.Logger
	group      singleflight.Group
}

// ClientOptions configures the auth client.
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      func() string
	Logger     zerolog.Logger
}

// NewClient constructs an auth client.
func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("authsync: base url is required")
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

// Me fetches the current profile. Concurrent calls collapse into a single
// request: broadcast storms from several instances trigger one fetch, not N.
func (c *Client) Me(ctx context.Context) (*User, error) {
	v, err, _ := c.group.Do("me", func() (any, error) {
		return c.fetchUser(ctx, http.MethodGet, "/api/auth/me", nil)
	})
	if err != nil {
		return nil, err
	}
	return v.(*User), nil
}

// OAuthCallback exchanges provider tokens for a session user.
func (c *Client) OAuthCallback(ctx context.Context, accessToken, refreshToken string) (*User, error) {
	body := map[string]string{"access_token": accessToken}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	return c.fetchUser(ctx, http.MethodPost, "/api/auth/oauth-callback", body)
}

// UpdateProfile patches the profile and returns the updated user.
func (c *Client) UpdateProfile(ctx context.Context, patch map[string]any) (*User, error) {
	return c.fetchUser(ctx, http.MethodPatch, "/api/users/me", patch)
}

// SignOut invalidates the backend session.
func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, "/api/auth/signout", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp)
	}
	return nil
}

func (c *Client) fetchUser(ctx context.Context, method, path string, body any) (*User, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp)
	}
	var decoded struct {
		User *User `json:"user"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("authsync: read response: %w", err)
	}
	// Some endpoints wrap the user, some return it bare.
	if err := json.Unmarshal(raw, &decoded); err == nil && decoded.User != nil {
		return decoded.User, nil
	}
	var user User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("authsync: decode user: %w", err)
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("authsync: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("authsync: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := strings.TrimSpace(c.token()); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("authsync: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &domain.SubmissionError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
}
