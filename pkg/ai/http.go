package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"resume-canvas/internal/domain"
)

// maxResponseBody is the maximum response body size read from the API.
const maxResponseBody = 10 * 1024 * 1024

// statusError is a non-200 answer from the API.
type statusError struct {
	code int
	body []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.code, truncate(string(e.body), 300))
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// doPostWithRetry posts body to url, retrying transport failures and
// retryable statuses with exponential backoff. It returns the response body
// of the first 200 answer.
func (c *Client) doPostWithRetry(ctx context.Context, url string, body []byte) ([]byte, error) {
	attempts := c.maxRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		respBody, err := c.doPost(ctx, url, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err
		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if i < attempts-1 {
			backoff := time.Duration(1<<i) * c.backoff
			c.logger.Debug("retrying gemini request", "attempt", i+1, "backoff", backoff, "error", err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}

func (c *Client) doPost(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: respBody}
	}
	return respBody, nil
}

// mapError turns a failed call into a ServiceError whose message can be shown
// to the user.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *domain.ServiceError
	if errors.As(err, &se) {
		return err
	}

	class, msg := domain.ErrUpstream, "the AI service is unavailable, please try again"
	var st *statusError
	switch {
	case errors.As(err, &st):
		msg, class = classifyStatus(st.code)
	case errors.Is(err, context.DeadlineExceeded):
		msg = "the AI service took too long to answer"
	case errors.Is(err, context.Canceled):
		msg = "the request was canceled"
	}
	return &domain.ServiceError{Op: op, Message: msg, Err: fmt.Errorf("%w: %w", class, err)}
}

func classifyStatus(code int) (string, error) {
	switch {
	case code == http.StatusTooManyRequests:
		return "the AI service is busy, please wait a moment and retry", domain.ErrRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return "the AI service rejected the API key", domain.ErrAuthInvalid
	case code == http.StatusRequestEntityTooLarge:
		return "the request is too large for the AI service", domain.ErrContextOverflow
	case code == http.StatusBadRequest:
		return "the AI service could not process the request", domain.ErrUpstream
	default:
		return "the AI service is unavailable, please try again", domain.ErrUpstream
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
