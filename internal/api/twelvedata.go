package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
)

// TwelveData fetches bars from the Twelve Data time_series endpoint
type TwelveData struct {
	client     *HTTPClient
	interval   string
	outputSize int
}

type twelveDataValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

type twelveDataResponse struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		Interval string `json:"interval"`
		Timezone string `json:"exchange_timezone"`
	} `json:"meta"`
	Values  []twelveDataValue `json:"values"`
	Status  string            `json:"status"`
	Code    int               `json:"code"`
	Message string            `json:"message"`
}

// NewTwelveData wraps client for the time_series endpoint. interval is a
// Twelve Data interval such as "5min".
func NewTwelveData(client *HTTPClient, interval string, outputSize int) *TwelveData {
	client.provider = "twelvedata"
	client.authScheme = "apikey"
	return &TwelveData{client: client, interval: interval, outputSize: outputSize}
}

// FetchBars returns raw bars in provider order (newest first). An "ok"
// response without values yields an empty slice and no error.
func (t *TwelveData) FetchBars(ctx context.Context, symbol string) ([]market.RawBar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", t.interval)
	q.Set("outputsize", strconv.Itoa(t.outputSize))

	var resp twelveDataResponse
	if err := t.client.getJSON(ctx, t.client.baseURL+"/time_series?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("twelvedata %s: %w", symbol, err)
	}

	if resp.Status == "error" {
		return nil, fmt.Errorf("twelvedata %s: %w", symbol, statusError(resp.Code, resp.Message))
	}

	bars := make([]market.RawBar, 0, len(resp.Values))
	for _, v := range resp.Values {
		bars = append(bars, market.RawBar{
			Timestamp: v.Datetime,
			Open:      v.Open,
			High:      v.High,
			Low:       v.Low,
			Close:     v.Close,
			Volume:    v.Volume,
		})
	}

	t.client.logger.Debug("fetched bars",
		zap.String("provider", "twelvedata"),
		zap.String("symbol", symbol),
		zap.Int("count", len(bars)))

	return bars, nil
}

// statusError maps an error code carried in a 200 response body
func statusError(code int, message string) error {
	switch code {
	case 401, 403:
		return fmt.Errorf("%w: %s", ErrAuthFailed, message)
	case 404:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case 429:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	default:
		return fmt.Errorf("%w: code %d: %s", ErrUpstream, code, message)
	}
}
