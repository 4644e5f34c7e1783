package patterns

import "github.com/ducminhle1904/pattern-backtester/pkg/types"

// Predicate tests a single candle.
type Predicate func(c types.Candle) bool

// Bullish matches candles that closed above their open.
func Bullish(c types.Candle) bool { return c.IsBullish() }

// Bearish matches candles that closed below their open.
func Bearish(c types.Candle) bool { return c.IsBearish() }

// NotBreakingDown matches candles whose low stays at or above price.
func NotBreakingDown(price float64) Predicate {
	return func(c types.Candle) bool { return !(c.Low < price) }
}

// NotBreakingUp matches candles whose high stays at or below price.
func NotBreakingUp(price float64) Predicate {
	return func(c types.Candle) bool { return !(c.High > price) }
}

// BreakingUp matches candles whose high exceeds price.
func BreakingUp(price float64) Predicate {
	return func(c types.Candle) bool { return c.High > price }
}

// BreakingDown matches candles whose low falls below price.
func BreakingDown(price float64) Predicate {
	return func(c types.Candle) bool { return c.Low < price }
}

// FindRun returns the start index of the first run of n consecutive candles, at or after from,
// where every candle satisfies all predicates. A single failing predicate resets the run.
func FindRun(candles []types.Candle, from, n int, preds ...Predicate) (int, bool) {
	if n <= 0 {
		n = 1
	}
	if from < 0 {
		from = 0
	}

	count := 0
	for i := from; i < len(candles); i++ {
		if satisfiesAll(candles[i], preds) {
			count++
		} else {
			count = 0
		}
		if count >= n {
			return i - (n - 1), true
		}
	}
	return 0, false
}

// RunAt reports whether a run of n candles satisfying all predicates starts exactly at index at.
func RunAt(candles []types.Candle, at, n int, preds ...Predicate) bool {
	if n <= 0 {
		n = 1
	}
	if at < 0 || at+n > len(candles) {
		return false
	}
	for i := at; i < at+n; i++ {
		if !satisfiesAll(candles[i], preds) {
			return false
		}
	}
	return true
}

func satisfiesAll(c types.Candle, preds []Predicate) bool {
	for _, p := range preds {
		if !p(c) {
			return false
		}
	}
	return true
}

// boundedLimit clamps the scan limit to the slice length and to the pattern window.
func boundedLimit(candles []types.Candle, cursor, limit, window int) int {
	if limit <= 0 || limit > len(candles) {
		limit = len(candles)
	}
	if window > 0 && cursor+window < limit {
		limit = cursor + window
	}
	return limit
}
