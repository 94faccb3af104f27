package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lxplabs/recflow/internal/config"
	"github.com/lxplabs/recflow/pkg/models"
)

// Client posts completion callbacks to the caller. Failed posts are
// retried with a fixed delay before giving up.
type Client struct {
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	logger     *logrus.Logger
}

func New(cfg config.CallbackConfig, logger *logrus.Logger) *Client {
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     logger,
	}
}

func (c *Client) SendSuccess(ctx context.Context, url string, payload models.CallbackSuccessPayload) error {
	return c.post(ctx, url, payload)
}

func (c *Client) SendFailure(ctx context.Context, url string, payload models.CallbackFailurePayload) error {
	return c.post(ctx, url, payload)
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling callback payload: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = c.postOnce(ctx, url, body)
		if lastErr == nil {
			c.logger.WithFields(logrus.Fields{"url": url, "attempt": attempt}).Info("Callback sent")
			return nil
		}

		c.logger.WithError(lastErr).WithFields(logrus.Fields{
			"url":     url,
			"attempt": attempt,
			"max":     c.maxRetries,
		}).Warn("Callback attempt failed")

		if attempt < c.maxRetries {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return fmt.Errorf("callback cancelled: %w", ctx.Err())
			}
		}
	}
	return fmt.Errorf("callback to %s failed after %d attempts: %w", url, c.maxRetries, lastErr)
}

func (c *Client) postOnce(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
