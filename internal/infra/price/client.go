package price

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tokenscope/internal/cache"
	"tokenscope/internal/domain"
	"tokenscope/internal/infra"
)

// platformSlugs maps chain IDs to the market-data API's platform names.
var platformSlugs = map[int64]string{
	1:     "ethereum",
	10:    "optimistic-ethereum",
	56:    "binance-smart-chain",
	137:   "polygon-pos",
	8453:  "base",
	42161: "arbitrum-one",
}

// tokenPriceResponse is the quote endpoint payload, keyed by contract address.
type tokenPriceResponse map[string]struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
	USDMarketCap float64 `json:"usd_market_cap"`
	USD24hVol    float64 `json:"usd_24h_vol"`
}

// marketChartResponse is the history endpoint payload.
// Each entry is a [timestamp_ms, value] pair.
type marketChartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// Client fetches token market data from an HTTP JSON API.
//
// The API throttles aggressively: requests go through a client-side
// rate limiter, and a circuit breaker isolates a flapping upstream.
// Throttle and server errors are logged and wrapped with
// cache.ErrNoRetry so no layer above retries them.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *infra.RateLimiter
	breaker    *infra.CircuitBreaker
}

// NewClient creates a market-data client from configuration.
func NewClient(baseURL, apiKey string, perSecond float64, timeoutSec int) *Client {
	if perSecond <= 0 {
		perSecond = 1
	}
	if timeoutSec <= 0 {
		timeoutSec = 10
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSec) * time.Second,
		},
		limiter: infra.NewRateLimiter(1, perSecond),
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("price-api")),
	}
}

// Quote fetches the current market snapshot for a token.
func (c *Client) Quote(ctx context.Context, chainID int64, address string) (*domain.PriceQuote, error) {
	platform, ok := platformSlugs[chainID]
	if !ok {
		return nil, fmt.Errorf("no price platform for chain %d", chainID)
	}

	url := fmt.Sprintf(
		"%s/simple/token_price/%s?contract_addresses=%s&vs_currencies=usd&include_24hr_change=true&include_market_cap=true&include_24hr_vol=true",
		c.baseURL, platform, address)

	var data tokenPriceResponse
	if err := c.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	entry, ok := data[strings.ToLower(address)]
	if !ok {
		return nil, fmt.Errorf("no price data for %s on %s", address, platform)
	}

	return &domain.PriceQuote{
		Address:   address,
		ChainID:   chainID,
		PriceUSD:  decimal.NewFromFloat(entry.USD),
		Change24h: decimal.NewFromFloat(entry.USD24hChange),
		MarketCap: decimal.NewFromFloat(entry.USDMarketCap),
		Volume24h: decimal.NewFromFloat(entry.USD24hVol),
		FetchedAt: time.Now(),
	}, nil
}

// History fetches a bucketed price series for a token.
func (c *Client) History(ctx context.Context, chainID int64, address string, window domain.PriceWindow) ([]domain.PricePoint, error) {
	platform, ok := platformSlugs[chainID]
	if !ok {
		return nil, fmt.Errorf("no price platform for chain %d", chainID)
	}

	url := fmt.Sprintf(
		"%s/coins/%s/contract/%s/market_chart?vs_currency=usd&days=%d",
		c.baseURL, platform, address, window.Days())

	var data marketChartResponse
	if err := c.getJSON(ctx, url, &data); err != nil {
		return nil, err
	}

	points := make([]domain.PricePoint, 0, len(data.Prices))
	for _, p := range data.Prices {
		points = append(points, domain.PricePoint{
			Ts:       time.UnixMilli(int64(p[0])),
			PriceUSD: decimal.NewFromFloat(p[1]),
		})
	}
	return points, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	c.limiter.Wait()

	return c.breaker.Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", infra.DefaultUserAgent)
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("x-cg-demo-api-key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			slog.Warn("Price API throttled", slog.String("url", url))
			return fmt.Errorf("price API throttled (%d): %w", resp.StatusCode, cache.ErrNoRetry)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			slog.Warn("Price API server error",
				slog.Int("status", resp.StatusCode),
				slog.String("url", url))
			return fmt.Errorf("price API server error (%d): %w", resp.StatusCode, cache.ErrNoRetry)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(body, out)
	})
}
