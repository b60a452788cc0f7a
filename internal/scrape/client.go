package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"vidscout/internal/config"
)

// Sentinel errors for remote platform failures.
var (
	ErrSourceUnreachable = errors.New("source unreachable")
	ErrSourceTimeout     = errors.New("source timeout")
	ErrAuthRequired      = errors.New("credentials required")
	ErrBadPayload        = errors.New("unexpected payload shape")
)

// Client talks to the remote video platform over HTTP.
type Client struct {
	baseURL    string
	oembedURL  string
	maxMembers int
	timeout    time.Duration
	client     *http.Client
}

// NewClient creates a platform client from config.
func NewClient(src config.SourceConfig, maxMembers int) *Client {
	oembed := src.OEmbedURL
	if oembed == "" {
		oembed = strings.TrimRight(src.BaseURL, "/") + "/oembed"
	}
	return &Client{
		baseURL:    strings.TrimRight(src.BaseURL, "/"),
		oembedURL:  strings.TrimRight(oembed, "/"),
		maxMembers: maxMembers,
		timeout:    src.Timeout,
		client:     &http.Client{Timeout: src.Timeout},
	}
}

// getJSON fetches u and decodes the response body into out. Credentials,
// when non-empty, ride along as a Cookie header. A 401/403 surfaces as
// ErrAuthRequired so callers can report it as a structured auth failure.
func (c *Client) getJSON(ctx context.Context, u, credentials string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if credentials != "" {
		req.Header.Set("Cookie", credentials)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifySourceError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: status %d", ErrAuthRequired, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrSourceUnreachable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// getBody fetches u and returns the raw response body.
func (c *Client) getBody(ctx context.Context, u, credentials string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if credentials != "" {
		req.Header.Set("Cookie", credentials)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifySourceError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceUnreachable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifySourceError(err)
	}
	return body, nil
}

// classifySourceError maps transport-level errors to sentinel errors.
func classifySourceError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrSourceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrSourceTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
}
