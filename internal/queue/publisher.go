// Package queue wraps the external push queue. The queue owns durable
// delivery, retry-with-backoff, and redelivery; this package only publishes
// messages to it and verifies the signatures it puts on callbacks.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidscout/internal/config"
)

// Sentinel errors for publish failures.
var (
	ErrQueueUnreachable = errors.New("queue unreachable")
	ErrPublishRejected  = errors.New("queue rejected publish")
	ErrPublishTimeout   = errors.New("queue publish timeout")
)

// ItemMessage asks for exactly one video to be scraped.
type ItemMessage struct {
	VideoID      string     `json:"video_id"`
	SubmissionID *uuid.UUID `json:"submission_id,omitempty"`
	Credentials  *string    `json:"credentials,omitempty"`
}

// CollectionMessage carries the whole loop state of a collection expansion.
// A nil RemainingVideoIDs marks the first execution, which must enumerate
// the collection before slicing batches.
type CollectionMessage struct {
	CollectionID      string    `json:"collection_id"`
	SubmissionID      uuid.UUID `json:"submission_id"`
	Credentials       string    `json:"credentials"`
	RemainingVideoIDs []string  `json:"remaining_video_ids,omitempty"`
}

// Publisher publishes job messages to the push queue.
type Publisher interface {
	PublishItem(ctx context.Context, msg ItemMessage) (string, error)
	PublishCollection(ctx context.Context, msg CollectionMessage) (string, error)
}

// Client implements Publisher against the queue's HTTP publish API.
type Client struct {
	queueURL    string
	token       string
	callbackURL string
	retries     int
	timeout     time.Duration
	client      *http.Client
}

// NewClient creates a queue client from config.
func NewClient(cfg config.QueueConfig) *Client {
	return &Client{
		queueURL:    strings.TrimRight(cfg.URL, "/"),
		token:       cfg.Token,
		callbackURL: strings.TrimRight(cfg.CallbackBaseURL, "/"),
		retries:     cfg.PublishRetries,
		timeout:     cfg.PublishTimeout,
		client:      &http.Client{Timeout: cfg.PublishTimeout},
	}
}

func (c *Client) PublishItem(ctx context.Context, msg ItemMessage) (string, error) {
	return c.publish(ctx, "/api/v1/hooks/item", msg)
}

func (c *Client) PublishCollection(ctx context.Context, msg CollectionMessage) (string, error) {
	return c.publish(ctx, "/api/v1/hooks/collection", msg)
}

// publish POSTs the payload to the queue, addressed at one of our own
// webhook endpoints. The queue delivers it back with at-least-once
// semantics and its own retry budget.
func (c *Client) publish(ctx context.Context, hookPath string, payload any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding message: %w", err)
	}

	u := fmt.Sprintf("%s/v1/publish/%s%s", c.queueURL, c.callbackURL, hookPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("X-Queue-Retries", strconv.Itoa(c.retries))
	req.Header.Set("X-Queue-Timeout", strconv.Itoa(int(c.timeout.Seconds())))

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("%w: status %d", ErrPublishRejected, resp.StatusCode)
	}

	var result struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding publish response: %w", err)
	}
	return result.MessageID, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrPublishTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrPublishTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrQueueUnreachable, err)
}

// Compile-time check that Client implements Publisher.
var _ Publisher = (*Client)(nil)
