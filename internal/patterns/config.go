package patterns

import (
	"fmt"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// Kind names a pattern family.
type Kind string

const (
	KindW            Kind = "W"
	KindM            Kind = "M"
	KindBullReversal Kind = "BullReversal"
	KindBearReversal Kind = "BearReversal"
)

// Long reports whether a breakout of this pattern is traded long.
func (k Kind) Long() bool {
	return k == KindW || k == KindBullReversal
}

// Config is one of WConfig, MConfig or ReversalConfig.
type Config interface {
	Kind() Kind
	// Window is the maximum number of candles a match can span, 0 when unbounded.
	Window() int
	Validate() error
	isPatternConfig()
}

// WConfig parameterizes double-bottom detection.
type WConfig struct {
	Repetitions    int `json:"klines_repetitions"`
	LegRepetitions int `json:"leg_repetitions,omitempty"`
	Range          int `json:"klines_range,omitempty"`
}

// MConfig parameterizes double-top detection.
type MConfig struct {
	Repetitions    int `json:"klines_repetitions"`
	LegRepetitions int `json:"leg_repetitions,omitempty"`
	Range          int `json:"klines_range,omitempty"`
}

// ReversalConfig parameterizes trend-reversal detection. Bearish selects a bullish trend
// followed by a bearish counter trend.
type ReversalConfig struct {
	TrendSize        int  `json:"trend_size"`
	CounterTrendSize int  `json:"counter_trend_size"`
	Bearish          bool `json:"bearish,omitempty"`
}

func (WConfig) Kind() Kind    { return KindW }
func (c WConfig) Window() int { return c.Range }
func (c WConfig) Validate() error {
	return validateDouble("W", c.Repetitions, c.LegRepetitions, c.Range)
}
func (WConfig) isPatternConfig() {}

func (MConfig) Kind() Kind    { return KindM }
func (c MConfig) Window() int { return c.Range }
func (c MConfig) Validate() error {
	return validateDouble("M", c.Repetitions, c.LegRepetitions, c.Range)
}
func (MConfig) isPatternConfig() {}

func (c ReversalConfig) Kind() Kind {
	if c.Bearish {
		return KindBearReversal
	}
	return KindBullReversal
}

func (c ReversalConfig) Window() int { return c.TrendSize + c.CounterTrendSize }

func (c ReversalConfig) Validate() error {
	if c.TrendSize <= 0 {
		return fmt.Errorf("reversal trend size must be positive, got: %d", c.TrendSize)
	}
	if c.CounterTrendSize <= 0 {
		return fmt.Errorf("reversal counter trend size must be positive, got: %d", c.CounterTrendSize)
	}
	return nil
}

func (ReversalConfig) isPatternConfig() {}

func validateDouble(name string, rep, leg, window int) error {
	if rep <= 0 {
		return fmt.Errorf("%s pattern repetitions must be positive, got: %d", name, rep)
	}
	if leg < 0 {
		return fmt.Errorf("%s pattern leg repetitions must be non-negative, got: %d", name, leg)
	}
	if window < 0 {
		return fmt.Errorf("%s pattern range must be non-negative, got: %d", name, window)
	}
	if leg == 0 {
		leg = rep
	}
	// trend run + three legs + breakout candle
	if minSpan := rep + 3*leg + 1; window > 0 && window < minSpan {
		return fmt.Errorf("%s pattern range %d cannot hold a full pattern (needs at least %d candles)", name, window, minSpan)
	}
	return nil
}

// Params is a flat, serializable description of a pattern configuration.
type Params struct {
	Kind             Kind `json:"name"`
	Repetitions      int  `json:"klines_repetitions,omitempty"`
	LegRepetitions   int  `json:"leg_repetitions,omitempty"`
	Range            int  `json:"klines_range,omitempty"`
	TrendSize        int  `json:"trend_size,omitempty"`
	CounterTrendSize int  `json:"counter_trend_size,omitempty"`
}

// Describe flattens a Config into Params.
func Describe(cfg Config) Params {
	switch c := cfg.(type) {
	case WConfig:
		return Params{Kind: KindW, Repetitions: c.Repetitions, LegRepetitions: c.LegRepetitions, Range: c.Range}
	case MConfig:
		return Params{Kind: KindM, Repetitions: c.Repetitions, LegRepetitions: c.LegRepetitions, Range: c.Range}
	case ReversalConfig:
		return Params{Kind: c.Kind(), TrendSize: c.TrendSize, CounterTrendSize: c.CounterTrendSize}
	default:
		return Params{}
	}
}

// FromParams rebuilds the Config a Params was described from.
func FromParams(p Params) (Config, error) {
	switch p.Kind {
	case KindW:
		return WConfig{Repetitions: p.Repetitions, LegRepetitions: p.LegRepetitions, Range: p.Range}, nil
	case KindM:
		return MConfig{Repetitions: p.Repetitions, LegRepetitions: p.LegRepetitions, Range: p.Range}, nil
	case KindBullReversal, KindBearReversal:
		return ReversalConfig{
			TrendSize:        p.TrendSize,
			CounterTrendSize: p.CounterTrendSize,
			Bearish:          p.Kind == KindBearReversal,
		}, nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", p.Kind)
	}
}

// Finder searches for a match that starts at cursor and ends before limit.
type Finder func(candles []types.Candle, cursor, limit int) (Match, bool)

// NewFinder returns the finder for a pattern configuration.
func NewFinder(cfg Config) (Finder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pattern config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch c := cfg.(type) {
	case WConfig:
		return func(candles []types.Candle, cursor, limit int) (Match, bool) {
			return FindW(candles, cursor, limit, c)
		}, nil
	case MConfig:
		return func(candles []types.Candle, cursor, limit int) (Match, bool) {
			return FindM(candles, cursor, limit, c)
		}, nil
	case ReversalConfig:
		return func(candles []types.Candle, cursor, limit int) (Match, bool) {
			return FindReversal(candles, cursor, limit, c)
		}, nil
	default:
		return nil, fmt.Errorf("unsupported pattern config %T", cfg)
	}
}
