// Package square is a small client for the Square Orders and Catalog APIs.
//
// Only the two read calls the reconciliation run needs are implemented:
// order search and catalog object retrieval. Transient failures (429, 5xx,
// connection resets) are retried by go-retryablehttp before surfacing.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://connect.squareup.com/v2"

// DefaultVersion is the Square-Version header sent when none is configured.
const DefaultVersion = "2025-02-20"

// ErrUnexpectedStatus is wrapped by every APIError.
var ErrUnexpectedStatus = errors.New("unexpected status from square api")

// ErrMissingToken is returned by NewClient without an access token.
var ErrMissingToken = errors.New("square access token is required")

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
	Errors     []ErrorDetail
}

// ErrorDetail is one entry of the API's errors array.
type ErrorDetail struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
	Field    string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%s %s: status %d: %s: %s", e.Method, e.Path, e.StatusCode, e.Errors[0].Code, e.Errors[0].Detail)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error { return ErrUnexpectedStatus }

// Config configures the client.
type Config struct {
	// AccessToken is SENSITIVE and never logged.
	AccessToken string
	BaseURL     string
	Version     string
	Timeout     time.Duration

	// RetryMax is the number of retries after the first attempt. Zero
	// keeps the default of 3; negative disables retries.
	RetryMax int

	// HTTPClient replaces the underlying transport client (tests).
	HTTPClient *http.Client
}

// Client talks to the Square API.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	version string
	token   string
	logger  *slog.Logger
}

// NewClient creates a client from cfg.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, ErrMissingToken
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("system", "square")

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}

	rc := retryablehttp.NewClient()
	rc.Logger = retryLogger{logger}
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.RetryMax = 3
	switch {
	case cfg.RetryMax > 0:
		rc.RetryMax = cfg.RetryMax
	case cfg.RetryMax < 0:
		rc.RetryMax = 0
	}
	if cfg.HTTPClient != nil {
		rc.HTTPClient = cfg.HTTPClient
	} else {
		rc.HTTPClient.Timeout = cfg.Timeout
		if rc.HTTPClient.Timeout == 0 {
			rc.HTTPClient.Timeout = 30 * time.Second
		}
	}
	// Return the last response instead of a generic "giving up" error so
	// the API's error body reaches the caller.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		http:    rc,
		baseURL: baseURL,
		version: version,
		token:   cfg.AccessToken,
		logger:  logger,
	}, nil
}

// do sends a JSON request and decodes a 2xx response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Square-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Square request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path, Body: string(raw)}
		var envelope struct {
			Errors []ErrorDetail `json:"errors"`
		}
		if json.Unmarshal(raw, &envelope) == nil {
			apiErr.Errors = envelope.Errors
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// retryLogger adapts slog to retryablehttp.LeveledLogger.
type retryLogger struct {
	l *slog.Logger
}

func (r retryLogger) Error(msg string, kv ...interface{}) { r.l.Error(msg, kv...) }
func (r retryLogger) Info(msg string, kv ...interface{})  { r.l.Debug(msg, kv...) }
func (r retryLogger) Debug(msg string, kv ...interface{}) { r.l.Debug(msg, kv...) }
func (r retryLogger) Warn(msg string, kv ...interface{})  { r.l.Warn(msg, kv...) }
