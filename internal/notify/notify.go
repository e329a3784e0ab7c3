package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/batch"
	"github.com/dgnsrekt/intraday-dashboard/internal/dashboard"
)

// Notifier is the interface for sending dashboard alerts.
type Notifier interface {
	SendBreakout(ctx context.Context, snap *dashboard.Snapshot) error
	SendBatchSummary(ctx context.Context, result *batch.Result, duration time.Duration) error
}

// Client implements the ntfy notification client.
type Client struct {
	httpClient *http.Client
	config     *Config
	location   *time.Location
	logger     *zap.Logger
}

// NewClient creates a new ntfy client. loc is used for timestamps in
// message bodies.
func NewClient(cfg *Config, loc *time.Location, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config:   cfg,
		location: loc,
		logger:   logger,
	}
}

// SendBreakout sends an alert when the snapshot's latest close broke out.
// Snapshots without a breakout are ignored.
func (c *Client) SendBreakout(ctx context.Context, snap *dashboard.Snapshot) error {
	if !c.config.Enabled || snap.Summary == nil || !snap.Summary.Breakout {
		return nil
	}

	title := fmt.Sprintf("%s Breakout > %.2f", snap.Symbol, snap.Summary.BreakoutLevel)
	message := FormatBreakoutMessage(snap, c.location)
	tags := c.config.Tags + ",rocket"

	return c.send(ctx, title, message, tags, c.config.Priority)
}

// SendBatchSummary reports a batch run; runs with failures go out at high
// priority.
func (c *Client) SendBatchSummary(ctx context.Context, result *batch.Result, duration time.Duration) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Dashboard Run: %d/%d symbols", result.Success, result.Total)
	message := FormatBatchMessage(result, duration)
	tags := c.config.Tags + ",white_check_mark"
	priority := c.config.Priority
	if result.Failed > 0 {
		tags = c.config.Tags + ",x"
		priority = "high"
	}

	return c.send(ctx, title, message, tags, priority)
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)

	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("failed to send notification", zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Drain response body to allow connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("notification failed",
			zap.Int("status", resp.StatusCode),
			zap.String("url", url),
		)
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopNotifier is a no-op implementation for when notifications are disabled.
type NoopNotifier struct{}

func (n *NoopNotifier) SendBreakout(_ context.Context, _ *dashboard.Snapshot) error {
	return nil
}

func (n *NoopNotifier) SendBatchSummary(_ context.Context, _ *batch.Result, _ time.Duration) error {
	return nil
}

// New creates the appropriate notifier based on config.
func New(cfg *Config, loc *time.Location, logger *zap.Logger) Notifier {
	if !cfg.Enabled {
		return &NoopNotifier{}
	}
	return NewClient(cfg, loc, logger)
}
