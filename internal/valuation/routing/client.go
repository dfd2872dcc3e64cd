// Package routing calls the external routing service that turns an address
// pair into a distance and duration.
package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrUnavailable wraps any transport or upstream failure; callers surface it
// as a retry-later condition.
type ErrUnavailable struct {
	Err error
}

func (e *ErrUnavailable) Error() string { return fmt.Sprintf("routing service unavailable: %v", e.Err) }

func (e *ErrUnavailable) Unwrap() error { return e.Err }

// Matrix is the distance and duration between two addresses.
type Matrix struct {
	DistanceKm      float64 `json:"distanceKm"`
	DurationMinutes float64 `json:"durationMinutes"`
}

// Client talks to the routing service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a client with a bounded request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}, logger: logger}
}

// DistanceMatrix fetches the matrix for an address pair.
func (c *Client) DistanceMatrix(ctx context.Context, fromAddress, toAddress string) (Matrix, error) {
	body, err := json.Marshal(map[string]string{
		"fromAddress": fromAddress,
		"toAddress":   toAddress,
	})
	if err != nil {
		return Matrix{}, fmt.Errorf("marshal matrix request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/matrix", bytes.NewReader(body))
	if err != nil {
		return Matrix{}, &ErrUnavailable{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("routing request failed", zap.Error(err))
		return Matrix{}, &ErrUnavailable{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Matrix{}, &ErrUnavailable{Err: fmt.Errorf("routing service returned %s", resp.Status)}
	}

	var matrix Matrix
	if err := json.NewDecoder(resp.Body).Decode(&matrix); err != nil {
		return Matrix{}, &ErrUnavailable{Err: fmt.Errorf("decode matrix response: %w", err)}
	}
	return matrix, nil
}
