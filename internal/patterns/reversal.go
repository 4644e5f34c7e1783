package patterns

import "github.com/ducminhle1904/pattern-backtester/pkg/types"

// FindReversal looks for a trend run starting at cursor immediately followed by a counter
// trend run. The bullish form (bearish trend, bullish counter trend) is the default.
func FindReversal(candles []types.Candle, cursor, limit int, cfg ReversalConfig) (Match, bool) {
	trend, counter := Predicate(Bearish), Predicate(Bullish)
	peak := func(c types.Candle) float64 { return c.Low }
	if cfg.Bearish {
		trend, counter = Bullish, Bearish
		peak = func(c types.Candle) float64 { return c.High }
	}

	limit = boundedLimit(candles, cursor, limit, cfg.Window())
	if cursor < 0 || cursor >= limit {
		return Match{}, false
	}
	scan := candles[:limit]

	if !RunAt(scan, cursor, cfg.TrendSize, trend) {
		return Match{}, false
	}
	counterStart := cursor + cfg.TrendSize
	if !RunAt(scan, counterStart, cfg.CounterTrendSize, counter) {
		return Match{}, false
	}

	end := counterStart + cfg.CounterTrendSize - 1
	return Match{
		Kind:       cfg.Kind(),
		StartIndex: cursor,
		EndIndex:   end,
		StartTime:  scan[cursor].OpenTime,
		EndTime:    scan[end].CloseTime,
		Extremity:  peak(scan[counterStart-1]),
		Neckline:   scan[end].Close,
	}, true
}
