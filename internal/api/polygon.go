package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/intraday-dashboard/internal/market"
	"github.com/dgnsrekt/intraday-dashboard/internal/options"
)

// maxPages bounds next_url pagination
const maxPages = 50

// Polygon fetches aggregate bars and options snapshots from Polygon.io
type Polygon struct {
	client     *HTTPClient
	multiplier int
	timespan   string
	lookback   time.Duration
	now        func() time.Time
}

type polygonBar struct {
	T  int64       `json:"t"`
	O  json.Number `json:"o"`
	H  json.Number `json:"h"`
	L  json.Number `json:"l"`
	C  json.Number `json:"c"`
	V  json.Number `json:"v"`
	VW json.Number `json:"vw"`
	N  int64       `json:"n"`
}

type aggregatesResponse struct {
	Ticker       string       `json:"ticker"`
	Status       string       `json:"status"`
	ResultsCount int          `json:"resultsCount"`
	Results      []polygonBar `json:"results"`
	NextURL      string       `json:"next_url"`
	Error        string       `json:"error"`
}

type snapshotDetails struct {
	Ticker         string  `json:"ticker"`
	ContractType   string  `json:"contract_type"`
	StrikePrice    float64 `json:"strike_price"`
	ExpirationDate string  `json:"expiration_date"`
}

type snapshotResult struct {
	Details      *snapshotDetails `json:"details"`
	OpenInterest *float64         `json:"open_interest"`
	Day          *struct {
		Volume *float64 `json:"volume"`
	} `json:"day"`
}

type snapshotResponse struct {
	Status  string           `json:"status"`
	Results []snapshotResult `json:"results"`
	NextURL string           `json:"next_url"`
	Error   string           `json:"error"`
}

// NewPolygon wraps client for the aggregates and options snapshot endpoints.
// Bars cover [now-lookback, now] at multiplier x timespan resolution.
func NewPolygon(client *HTTPClient, multiplier int, timespan string, lookback time.Duration) *Polygon {
	client.provider = "polygon"
	client.authScheme = "Bearer"
	if multiplier <= 0 {
		multiplier = 5
	}
	if timespan == "" {
		timespan = "minute"
	}
	if lookback <= 0 {
		lookback = 5 * 24 * time.Hour
	}
	return &Polygon{
		client:     client,
		multiplier: multiplier,
		timespan:   timespan,
		lookback:   lookback,
		now:        time.Now,
	}
}

// FetchBars returns aggregate bars ascending by time
func (p *Polygon) FetchBars(ctx context.Context, symbol string) ([]market.RawBar, error) {
	to := p.now().UTC()
	from := to.Add(-p.lookback)

	q := url.Values{}
	q.Set("adjusted", "true")
	q.Set("sort", "asc")
	q.Set("limit", "50000")
	next := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/%d/%s/%s/%s?%s",
		p.client.baseURL, url.PathEscape(strings.ToUpper(symbol)), p.multiplier, p.timespan,
		from.Format(time.DateOnly), to.Format(time.DateOnly), q.Encode())

	var bars []market.RawBar
	for page := 0; next != "" && page < maxPages; page++ {
		var resp aggregatesResponse
		if err := p.client.getJSON(ctx, next, &resp); err != nil {
			return nil, fmt.Errorf("polygon aggregates %s: %w", symbol, err)
		}
		if resp.Status == "ERROR" {
			return nil, fmt.Errorf("polygon aggregates %s: %w: %s", symbol, ErrUpstream, resp.Error)
		}

		for _, r := range resp.Results {
			bars = append(bars, market.RawBar{
				Timestamp: time.UnixMilli(r.T).UTC(),
				Open:      r.O,
				High:      r.H,
				Low:       r.L,
				Close:     r.C,
				Volume:    r.V,
			})
		}
		next = resp.NextURL
	}

	p.client.logger.Debug("fetched bars",
		zap.String("provider", "polygon"),
		zap.String("symbol", symbol),
		zap.Int("count", len(bars)))

	if bars == nil {
		bars = []market.RawBar{}
	}
	return bars, nil
}

// FetchOptionsSnapshot returns every contract in the chain snapshot, following
// next_url. Results without contract details are passed through empty and
// dropped by the aggregator.
func (p *Polygon) FetchOptionsSnapshot(ctx context.Context, underlying string) ([]options.SnapshotEntry, error) {
	next := fmt.Sprintf("%s/v3/snapshot/options/%s?limit=250",
		p.client.baseURL, url.PathEscape(strings.ToUpper(underlying)))

	entries := []options.SnapshotEntry{}
	for page := 0; next != "" && page < maxPages; page++ {
		var resp snapshotResponse
		if err := p.client.getJSON(ctx, next, &resp); err != nil {
			return nil, fmt.Errorf("polygon options snapshot %s: %w", underlying, err)
		}
		if resp.Status == "ERROR" {
			return nil, fmt.Errorf("polygon options snapshot %s: %w: %s", underlying, ErrUpstream, resp.Error)
		}

		for _, r := range resp.Results {
			entries = append(entries, snapshotEntry(r))
		}
		next = resp.NextURL
	}

	p.client.logger.Debug("fetched options snapshot",
		zap.String("underlying", underlying),
		zap.Int("count", len(entries)))

	return entries, nil
}

func snapshotEntry(r snapshotResult) options.SnapshotEntry {
	var e options.SnapshotEntry
	if r.Details != nil {
		e.Symbol = r.Details.Ticker
		e.Strike = r.Details.StrikePrice
		e.Expiration = r.Details.ExpirationDate
		e.Type = r.Details.ContractType
	}
	e.OpenInterest = r.OpenInterest
	if r.Day != nil {
		e.Volume = r.Day.Volume
	}
	return e
}
