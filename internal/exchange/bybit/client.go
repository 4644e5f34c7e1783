package bybit

import (
	"context"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/pattern-backtester/internal/safety"
)

// DefaultRequestsPerSecond keeps paging well below Bybit's per-IP market data limit
const DefaultRequestsPerSecond = 10

// Client wraps the Bybit API client for market data downloads
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
	retry      RetryConfig
	limiter    *safety.RateLimiter
}

// Config holds the configuration for the Bybit client. Market data endpoints are public,
// so the credentials may be empty.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
	// BaseURL overrides the mainnet/testnet endpoint when set.
	BaseURL string
	Retry   *RetryConfig
	// RequestsPerSecond caps kline requests, DefaultRequestsPerSecond when zero.
	RequestsPerSecond int
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	baseURL := config.BaseURL
	if baseURL == "" {
		if config.Testnet {
			baseURL = bybit_api.TESTNET
		} else {
			baseURL = bybit_api.MAINNET
		}
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	retry := DefaultRetryConfig()
	if config.Retry != nil {
		retry = *config.Retry
	}

	rps := config.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}

	return &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
		retry:      retry,
		limiter:    safety.NewRateLimiter("bybit-klines", rps, rps),
	}
}

// GetEnvironment returns a string describing the current environment
func (c *Client) GetEnvironment() string {
	if c.testnet {
		return "testnet"
	}
	return "mainnet"
}

func (c *Client) waitForSlot(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
