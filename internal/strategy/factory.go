package strategy

import (
	"context"

	"github.com/ducminhle1904/pattern-backtester/internal/patterns"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// ctxCheckInterval is how many cursor positions are scanned between context checks.
const ctxCheckInterval = 512

// Span is a chunk of the candle series assigned to one worker. The worker tries every
// cursor in [Start, End) and lets matches extend up to, but not including, Limit.
type Span struct {
	Start int
	End   int
	Limit int
}

// Factory turns pattern matches into trades for one strategy configuration.
type Factory struct {
	cfg       Config
	find      patterns.Finder
	direction Direction
}

// NewFactory validates the configuration and prepares its pattern finder.
func NewFactory(cfg Config) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	find, err := patterns.NewFinder(cfg.Pattern)
	if err != nil {
		return nil, err
	}
	return &Factory{cfg: cfg, find: find, direction: cfg.Direction()}, nil
}

// Config returns the factory's strategy configuration.
func (f *Factory) Config() Config {
	return f.cfg
}

// Next tries a match at cursor. It returns the trade, if any, and the cursor to resume
// from: one past the pattern on a match, cursor+1 otherwise.
func (f *Factory) Next(candles []types.Candle, cursor, limit int) (*Trade, int) {
	m, ok := f.find(candles, cursor, limit)
	if !ok {
		return nil, cursor + 1
	}
	leg := m.LegHeight()
	if leg <= 0 {
		// flat legs give stop == entry == target
		return nil, cursor + 1
	}
	return f.newTrade(m, leg, candles[m.EndIndex]), m.EndIndex + 1
}

// Generate scans a span and returns its trades in ascending time order.
func (f *Factory) Generate(ctx context.Context, candles []types.Candle, span Span) ([]*Trade, error) {
	trades := make([]*Trade, 0)
	end := span.End
	if end > len(candles) {
		end = len(candles)
	}

	steps := 0
	for cursor := span.Start; cursor < end; {
		if steps%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		steps++

		var trade *Trade
		trade, cursor = f.Next(candles, cursor, span.Limit)
		if trade != nil {
			trades = append(trades, trade)
		}
	}
	return trades, nil
}

func (f *Factory) newTrade(m patterns.Match, leg float64, opening types.Candle) *Trade {
	t := &Trade{
		Strategy:      f.cfg.Name,
		Direction:     f.direction,
		EntryPrice:    m.Neckline,
		OpenTime:      m.EndTime,
		PatternStart:  m.StartIndex,
		PatternEnd:    m.EndIndex,
		CloseIndex:    -1,
		OpeningCandle: opening,
		Status:        StatusNotOpened,
	}
	if f.direction == Long {
		t.StopLoss = m.Neckline - leg*f.cfg.StopLoss
		t.TakeProfit = m.Neckline + leg*f.cfg.TakeProfit
	} else {
		t.StopLoss = m.Neckline + leg*f.cfg.StopLoss
		t.TakeProfit = m.Neckline - leg*f.cfg.TakeProfit
	}
	return t
}
