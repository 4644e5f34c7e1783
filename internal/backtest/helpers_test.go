package backtest

import (
	"math"
	"math/rand"

	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// flatCandles returns n one-second candles trading in [99, 101].
func flatCandles(n int) []types.Candle {
	candles := make([]types.Candle, n)
	for i := range candles {
		ts := int64(i) * 1000
		candles[i] = types.Candle{
			OpenTime:  ts,
			Open:      100,
			High:      101,
			Low:       99,
			Close:     100,
			CloseTime: ts + 999,
		}
	}
	return candles
}

// randomWalk returns n candles following a seeded random walk.
func randomWalk(seed int64, n int) []types.Candle {
	rng := rand.New(rand.NewSource(seed))
	candles := make([]types.Candle, n)
	price := 100.0
	for i := range candles {
		next := price + rng.Float64()*2 - 1
		if next < 1 {
			next = 1
		}
		ts := int64(i) * 60_000
		candles[i] = types.Candle{
			OpenTime:  ts,
			Open:      price,
			Close:     next,
			High:      math.Max(price, next) + rng.Float64()*0.5,
			Low:       math.Min(price, next) - rng.Float64()*0.5,
			CloseTime: ts + 59_999,
		}
		price = next
	}
	return candles
}

// openTrade returns a long trade opening on candles[at] with the given levels.
func openTrade(candles []types.Candle, at int, sl, tp float64) *strategy.Trade {
	return &strategy.Trade{
		Strategy:     "test",
		EntryPrice:   100,
		StopLoss:     sl,
		TakeProfit:   tp,
		OpenTime:     candles[at].CloseTime,
		PatternStart: at,
		PatternEnd:   at,
		CloseIndex:   -1,
		Status:       strategy.StatusNotOpened,
	}
}
