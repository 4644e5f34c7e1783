package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ducminhle1904/pattern-backtester/internal/patterns"
	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
)

// SweepConfig describes one backtest sweep: where the candles come from and the
// parameter grid of every pattern family to try on them.
type SweepConfig struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Exchange string `json:"exchange,omitempty"`
	Category string `json:"category,omitempty"`
	DataFile string `json:"data_file,omitempty"`
	// Period keeps only the trailing part of the series, e.g. "30d".
	Period string `json:"period,omitempty"`

	Market     string  `json:"market_type"`
	StartMoney float64 `json:"start_money"`

	TakeProfit  ParamRange `json:"tp"`
	StopLoss    ParamRange `json:"sl"`
	RiskPercent ParamRange `json:"risk_percent"`

	DoublePatterns *DoublePatternGrid `json:"double_patterns,omitempty"`
	Reversals      *ReversalGrid      `json:"reversals,omitempty"`

	Workers       int    `json:"workers,omitempty"`
	WorkerTimeout string `json:"worker_timeout,omitempty"`
	StrictChunks  bool   `json:"strict_chunks,omitempty"`

	Output OutputConfig `json:"output"`
}

// DoublePatternGrid is the W / M part of the grid
type DoublePatternGrid struct {
	Patterns    []string `json:"patterns"`
	Repetitions IntRange `json:"klines_repetitions"`
	// LegRepetitions of 0..0 reuses the repetitions value for every leg.
	LegRepetitions IntRange `json:"leg_repetitions"`
	Range          IntRange `json:"klines_range"`
}

// ReversalGrid is the bull / bear reversal part of the grid
type ReversalGrid struct {
	Patterns         []string `json:"patterns"`
	TrendSize        IntRange `json:"trend_size"`
	CounterTrendSize IntRange `json:"counter_trend_size"`
}

// OutputConfig controls the report files written after a sweep
type OutputConfig struct {
	Dir             string `json:"dir"`
	MinClosedTrades int    `json:"min_closed_trades"`
	Excel           bool   `json:"excel"`
	CSV             bool   `json:"csv"`
	Top             int    `json:"top"`
}

// NewDefaultSweepConfig returns a small W / M sweep over 1m candles
func NewDefaultSweepConfig() *SweepConfig {
	return &SweepConfig{
		Symbol:      "BTCUSDT",
		Interval:    DefaultInterval,
		Exchange:    DefaultExchange,
		Category:    DefaultCategory,
		Market:      string(strategy.MarketFutures),
		StartMoney:  DefaultStartMoney,
		TakeProfit:  ParamRange{Min: 1, Max: 3, Step: 0.5},
		StopLoss:    ParamRange{Min: 0.5, Max: 1.5, Step: 0.5},
		RiskPercent: Single(1),
		DoublePatterns: &DoublePatternGrid{
			Patterns:    []string{string(patterns.KindW), string(patterns.KindM)},
			Repetitions: IntRange{Min: 2, Max: 5},
		},
		Output: OutputConfig{
			Dir:             ResultsDir,
			MinClosedTrades: DefaultMinClosedTrades,
			Top:             20,
		},
	}
}

// ApplyDefaults fills zero values with their defaults
func (c *SweepConfig) ApplyDefaults() {
	if c.Interval == "" {
		c.Interval = DefaultInterval
	}
	if c.Exchange == "" {
		c.Exchange = DefaultExchange
	}
	if c.Category == "" {
		c.Category = DefaultCategory
	}
	if c.StartMoney == 0 {
		c.StartMoney = DefaultStartMoney
	}
	if c.Output.Dir == "" {
		c.Output.Dir = ResultsDir
	}
	if c.Output.MinClosedTrades == 0 {
		c.Output.MinClosedTrades = DefaultMinClosedTrades
	}
}

// MarketType parses the configured market
func (c *SweepConfig) MarketType() (strategy.MarketType, error) {
	return strategy.ParseMarketType(c.Market)
}

// Timeout parses WorkerTimeout, falling back to DefaultWorkerTimeout
func (c *SweepConfig) Timeout() (time.Duration, error) {
	if c.WorkerTimeout == "" {
		return DefaultWorkerTimeout, nil
	}
	d, err := time.ParseDuration(c.WorkerTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid worker_timeout %q: %w", c.WorkerTimeout, err)
	}
	return d, nil
}

// GridSize is the number of strategies Expand would produce before filtering
func (c *SweepConfig) GridSize() int {
	base := len(c.TakeProfit.Values()) * len(c.StopLoss.Values()) * len(c.RiskPercent.Values())
	size := 0
	if g := c.DoublePatterns; g != nil {
		legs := g.LegRepetitions.Len()
		if legs == 0 {
			legs = 1
		}
		size += len(g.Patterns) * g.Repetitions.Len() * legs * g.Range.Len() * base
	}
	if g := c.Reversals; g != nil {
		size += len(g.Patterns) * g.TrendSize.Len() * g.CounterTrendSize.Len() * base
	}
	return size
}

// Expand builds the cross product of the grid. Risk percents become fractions and
// short strategies are left out on spot markets. W / M combinations whose range is too
// small to hold a pattern are dropped.
func (c *SweepConfig) Expand() ([]strategy.Config, error) {
	market, err := c.MarketType()
	if err != nil {
		return nil, err
	}
	startMoney := c.StartMoney
	if startMoney == 0 {
		startMoney = DefaultStartMoney
	}

	var shapes []patterns.Config
	if g := c.DoublePatterns; g != nil {
		for _, name := range g.Patterns {
			kind, err := parseKind(name)
			if err != nil {
				return nil, err
			}
			if kind != patterns.KindW && kind != patterns.KindM {
				return nil, fmt.Errorf("double_patterns: %s is not a W or M pattern", name)
			}
			shapes = append(shapes, doubleShapes(kind, g)...)
		}
	}
	if g := c.Reversals; g != nil {
		for _, name := range g.Patterns {
			kind, err := parseKind(name)
			if err != nil {
				return nil, err
			}
			if kind != patterns.KindBullReversal && kind != patterns.KindBearReversal {
				return nil, fmt.Errorf("reversals: %s is not a reversal pattern", name)
			}
			for _, trend := range g.TrendSize.Values() {
				for _, counter := range g.CounterTrendSize.Values() {
					shapes = append(shapes, patterns.ReversalConfig{
						TrendSize:        trend,
						CounterTrendSize: counter,
						Bearish:          kind == patterns.KindBearReversal,
					})
				}
			}
		}
	}

	configs := make([]strategy.Config, 0, c.GridSize())
	dropped, excluded := 0, 0
	for _, shape := range shapes {
		if shape.Validate() != nil {
			dropped++
			continue
		}
		if !shape.Kind().Long() && !market.AllowsShort() {
			excluded++
			continue
		}
		for _, tp := range c.TakeProfit.Values() {
			for _, sl := range c.StopLoss.Values() {
				for _, risk := range c.RiskPercent.Values() {
					configs = append(configs, strategy.Config{
						Name:       string(shape.Kind()),
						Pattern:    shape,
						TakeProfit: tp,
						StopLoss:   sl,
						Risk:       risk * 0.01,
						StartMoney: startMoney,
						Market:     market,
					})
				}
			}
		}
	}

	if dropped > 0 {
		log.Printf("⚠️ Dropped %d pattern shapes whose range cannot hold a full pattern", dropped)
	}
	if excluded > 0 {
		log.Printf("ℹ️ Excluded %d short pattern shapes on a %s market", excluded, market)
	}
	return configs, nil
}

func doubleShapes(kind patterns.Kind, g *DoublePatternGrid) []patterns.Config {
	legs := g.LegRepetitions.Values()
	if g.LegRepetitions.Len() == 0 || (g.LegRepetitions.Min == 0 && g.LegRepetitions.Max == 0) {
		legs = []int{0}
	}

	var out []patterns.Config
	for _, rep := range g.Repetitions.Values() {
		for _, leg := range legs {
			for _, window := range g.Range.Values() {
				if kind == patterns.KindW {
					out = append(out, patterns.WConfig{Repetitions: rep, LegRepetitions: leg, Range: window})
				} else {
					out = append(out, patterns.MConfig{Repetitions: rep, LegRepetitions: leg, Range: window})
				}
			}
		}
	}
	return out
}

func parseKind(name string) (patterns.Kind, error) {
	for _, k := range []patterns.Kind{patterns.KindW, patterns.KindM, patterns.KindBullReversal, patterns.KindBearReversal} {
		if strings.EqualFold(strings.TrimSpace(name), string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown pattern %q (expected W, M, BullReversal or BearReversal)", name)
}
