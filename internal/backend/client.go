// Package backend holds the HTTP clients for the remote collaborators this
// device depends on: face-login exchange, face comparison and the roster
// listings.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/faceauth-service/internal/observability"
)

const (
	userAgent      = "faceauth-agent/1.0"
	maxBodyBytes   = 1 << 20
	defaultTimeout = 10 * time.Second
)

// Options configures one collaborator client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout bounds a single call. Zero selects the 10s default.
	Timeout time.Duration
	Logger  *zap.Logger
}

type caller struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
	logger  *zap.Logger
}

func newCaller(opts Options, name string) caller {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return caller{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		timeout: timeout,
		logger:  observability.OrNop(opts.Logger).Named(name),
	}
}

func (c caller) url(path string) string {
	return c.baseURL + path
}

// do sends req under the caller's deadline and returns status and body.
func (c caller) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := build(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// upstreamMessage extracts a human message from the common error bodies:
// {"error":"..."}, {"message":"..."} and {"error":{"message":"..."}}.
func upstreamMessage(body []byte) string {
	var flat struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &flat); err != nil {
		return ""
	}
	if len(flat.Error) > 0 {
		var s string
		if err := json.Unmarshal(flat.Error, &s); err == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(flat.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return flat.Message
}
