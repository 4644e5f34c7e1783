package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ducminhle1904/pattern-backtester/internal/exchange/bybit"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// KlineRangeClient downloads a complete kline range
type KlineRangeClient interface {
	GetKlineRange(ctx context.Context, params bybit.KlineParams, start, end time.Time) ([]types.Candle, error)
}

// BybitProvider loads candles straight from the Bybit kline endpoint. The source passed
// to LoadData is the symbol.
type BybitProvider struct {
	client   KlineRangeClient
	category string
	interval bybit.KlineInterval
	start    time.Time
	end      time.Time
	timeout  time.Duration
}

// NewBybitProvider creates a provider downloading [start, end] at the given interval
func NewBybitProvider(client KlineRangeClient, category string, interval bybit.KlineInterval, start, end time.Time) *BybitProvider {
	if category == "" {
		category = "linear"
	}
	return &BybitProvider{
		client:   client,
		category: category,
		interval: interval,
		start:    start,
		end:      end,
		timeout:  5 * time.Minute,
	}
}

// GetName returns the name of the data provider
func (p *BybitProvider) GetName() string {
	return "Bybit " + p.category
}

// LoadData downloads the configured range for symbol
func (p *BybitProvider) LoadData(symbol string) ([]types.Candle, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.Load(ctx, symbol)
}

// Load downloads the configured range for symbol and checks the series is usable
func (p *BybitProvider) Load(ctx context.Context, symbol string) ([]types.Candle, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}

	params := bybit.KlineParams{
		Category: p.category,
		Symbol:   symbol,
		Interval: p.interval,
	}
	candles, err := p.client.GetKlineRange(ctx, params, p.start, p.end)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s %s klines: %w", symbol, p.interval, err)
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no %s klines between %s and %s", symbol,
			p.start.Format(time.RFC3339), p.end.Format(time.RFC3339))
	}
	return candles, nil
}

// ValidateData validates the integrity of loaded candles
func (p *BybitProvider) ValidateData(data []types.Candle) error {
	return validateCandles(data)
}
