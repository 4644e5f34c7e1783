package strategy

import (
	"fmt"
	"strings"

	"github.com/ducminhle1904/pattern-backtester/internal/patterns"
)

// MarketType selects which trade directions are allowed.
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// ParseMarketType parses a market type name, defaulting to futures for an empty string.
func ParseMarketType(s string) (MarketType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(MarketFutures):
		return MarketFutures, nil
	case string(MarketSpot):
		return MarketSpot, nil
	default:
		return "", fmt.Errorf("unknown market type %q (expected spot or futures)", s)
	}
}

// AllowsShort reports whether short trades can be taken on this market.
func (m MarketType) AllowsShort() bool {
	return m != MarketSpot
}

// Config is one point of the parameter grid.
type Config struct {
	Name       string          `json:"name"`
	Pattern    patterns.Config `json:"-"`
	TakeProfit float64         `json:"tp_multiplier"`
	StopLoss   float64         `json:"sl_multiplier"`
	// Risk is the fraction of current equity risked per trade.
	Risk       float64    `json:"risk"`
	StartMoney float64    `json:"start_money"`
	Market     MarketType `json:"market_type"`
}

// Validate checks that the configuration can produce trades.
func (c Config) Validate() error {
	if c.Pattern == nil {
		return fmt.Errorf("strategy %q has no pattern configured", c.Name)
	}
	if err := c.Pattern.Validate(); err != nil {
		return fmt.Errorf("strategy %q: %w", c.Name, err)
	}
	if c.TakeProfit <= 0 {
		return fmt.Errorf("strategy %q: tp multiplier must be positive, got: %.4f", c.Name, c.TakeProfit)
	}
	if c.StopLoss <= 0 {
		return fmt.Errorf("strategy %q: sl multiplier must be positive, got: %.4f", c.Name, c.StopLoss)
	}
	if c.Risk <= 0 || c.Risk > 1 {
		return fmt.Errorf("strategy %q: risk must be in (0, 1], got: %.4f", c.Name, c.Risk)
	}
	if c.StartMoney <= 0 {
		return fmt.Errorf("strategy %q: start money must be positive, got: %.2f", c.Name, c.StartMoney)
	}
	return nil
}

// Direction is the side trades of this strategy are taken on.
func (c Config) Direction() Direction {
	if c.Pattern != nil && c.Pattern.Kind().Long() {
		return Long
	}
	return Short
}

// Tradable reports whether the strategy can trade on its market. Short strategies are
// skipped on spot markets.
func (c Config) Tradable() bool {
	return c.Direction() == Long || c.Market.AllowsShort()
}

// Label is a short human readable identifier used in logs and reports.
func (c Config) Label() string {
	p := patterns.Describe(c.Pattern)
	var shape string
	switch p.Kind {
	case patterns.KindBullReversal, patterns.KindBearReversal:
		shape = fmt.Sprintf("trend=%d counter=%d", p.TrendSize, p.CounterTrendSize)
	default:
		shape = fmt.Sprintf("rep=%d leg=%d range=%d", p.Repetitions, p.LegRepetitions, p.Range)
	}
	return fmt.Sprintf("%s %s tp=%.2f sl=%.2f risk=%.2f%%", c.Name, shape, c.TakeProfit, c.StopLoss, c.Risk*100)
}
