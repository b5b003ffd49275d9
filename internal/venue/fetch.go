// Package venue holds the HTTP plumbing shared by the venue clients.
package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rewired-gh/polymatch/internal/config"
	"github.com/rewired-gh/polymatch/internal/logger"
)

// StatusError is returned for a non-retryable, non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Fetcher issues GET requests with retry on transport errors and 5xx responses.
type Fetcher struct {
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// NewFetcher creates a Fetcher from a venue's HTTP settings.
func NewFetcher(cfg config.HTTPClientConfig) *Fetcher {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Fetcher{
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		maxRetries:     maxRetries,
		retryDelayBase: cfg.RetryDelayBase,
	}
}

// GetJSON fetches url and decodes the JSON body into v.
func (f *Fetcher) GetJSON(ctx context.Context, url string, v any) error {
	resp, err := f.doRequest(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doRequest performs the GET with linear backoff between attempts.
func (f *Fetcher) doRequest(ctx context.Context, url string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < f.maxRetries; i++ {
		if i > 0 {
			delay := time.Duration(i) * f.retryDelayBase
			logger.Debug("Retrying %s in %s (attempt %d/%d): %v", url, delay, i+1, f.maxRetries, lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
		}

		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
