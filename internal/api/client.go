package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
)

// BarSource fetches intraday bars for a symbol
type BarSource interface {
	FetchBars(ctx context.Context, symbol string) ([]market.RawBar, error)
}

// OptionsSource fetches an options chain snapshot for an underlying
type OptionsSource interface {
	FetchOptionsSnapshot(ctx context.Context, underlying string) ([]options.SnapshotEntry, error)
}

// Observer receives one call per HTTP attempt
type Observer interface {
	ObserveRequest(provider, code string, elapsed time.Duration)
}

// HTTPClient is a rate limited JSON client with retry shared by the providers
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	authScheme string
	provider   string
	limiter    *rate.Limiter
	retryCount int
	retryDelay time.Duration
	observer   Observer
	logger     *zap.Logger
}

func NewClient(baseURL, apiKey string, ratePerSec int, timeout, retryDelay time.Duration, retryCount int, logger *zap.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:       100,
		MaxConnsPerHost:    10,
		IdleConnTimeout:    90 * time.Second,
		DisableCompression: false,
	}
	if ratePerSec <= 0 {
		ratePerSec = 1
	}

	return &HTTPClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
		baseURL:    baseURL,
		apiKey:     apiKey,
		authScheme: "Bearer",
		provider:   "http",
		limiter:    rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec*2),
		retryCount: retryCount,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// SetObserver attaches a request observer (metrics)
func (c *HTTPClient) SetObserver(o Observer) {
	c.observer = o
}

func (c *HTTPClient) observe(code string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(c.provider, code, time.Since(start))
	}
}

// getJSON performs a GET against url and decodes the body into out. 404 and
// auth failures are returned immediately; 429, 5xx and transport errors are
// retried with exponential backoff.
func (c *HTTPClient) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	c.logger.Debug("requesting", zap.String("provider", c.provider), zap.String("url", url))

	var lastErr error
	for attempt := 0; attempt <= c.retryCount; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			c.logger.Debug("retrying request",
				zap.String("provider", c.provider),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", c.authScheme+" "+c.apiKey)
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.observe("error", start)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		c.observe(strconv.Itoa(resp.StatusCode), start)

		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return ErrNotFound
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return ErrAuthFailed
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = ErrRateLimited
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: server error %d", ErrUpstream, resp.StatusCode)
			continue
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%w: unexpected status %d: %s", ErrUpstream, resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
