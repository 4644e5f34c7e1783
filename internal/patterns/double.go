package patterns

import "github.com/ducminhle1904/pattern-backtester/pkg/types"

// doubleSide describes one orientation of a double bottom/top. The M side is the price
// mirror of the W side.
type doubleSide struct {
	kind      Kind
	trend     Predicate
	reversal  Predicate
	extremity func(types.Candle) float64
	neckline  func(types.Candle) float64
	holds     func(price float64) Predicate
	breaks    func(price float64) Predicate
}

var (
	wSide = doubleSide{
		kind:      KindW,
		trend:     Bearish,
		reversal:  Bullish,
		extremity: func(c types.Candle) float64 { return c.Low },
		neckline:  func(c types.Candle) float64 { return c.High },
		holds:     NotBreakingDown,
		breaks:    BreakingUp,
	}
	mSide = doubleSide{
		kind:      KindM,
		trend:     Bullish,
		reversal:  Bearish,
		extremity: func(c types.Candle) float64 { return c.High },
		neckline:  func(c types.Candle) float64 { return c.Low },
		holds:     NotBreakingUp,
		breaks:    BreakingDown,
	}
)

// FindW looks for a double bottom whose downtrend starts at cursor.
func FindW(candles []types.Candle, cursor, limit int, cfg WConfig) (Match, bool) {
	return findDouble(candles, cursor, limit, wSide, cfg.Repetitions, cfg.LegRepetitions, cfg.Range)
}

// FindM looks for a double top whose uptrend starts at cursor.
func FindM(candles []types.Candle, cursor, limit int, cfg MConfig) (Match, bool) {
	return findDouble(candles, cursor, limit, mSide, cfg.Repetitions, cfg.LegRepetitions, cfg.Range)
}

func findDouble(candles []types.Candle, cursor, limit int, side doubleSide, rep, leg, window int) (Match, bool) {
	if leg <= 0 {
		leg = rep
	}
	limit = boundedLimit(candles, cursor, limit, window)
	if cursor < 0 || cursor >= limit {
		return Match{}, false
	}
	scan := candles[:limit]

	// 1. trend leading into the first bottom
	if !RunAt(scan, cursor, rep, side.trend) {
		return Match{}, false
	}

	// 2. first reversal leg
	first, ok := FindRun(scan, cursor+rep, leg, side.reversal)
	if !ok {
		return Match{}, false
	}
	extremity := side.extremity(scan[first])

	// 3. pullback forming the neckline
	pullback, ok := FindRun(scan, first+leg, leg, side.trend)
	if !ok {
		return Match{}, false
	}
	neckline := side.neckline(scan[pullback])

	// 4. second reversal leg holding above (below) the first extremity
	second, ok := FindRun(scan, pullback+leg, leg, side.reversal, side.holds(extremity))
	if !ok {
		return Match{}, false
	}

	// 5. breakout through the neckline
	breakout, ok := FindRun(scan, second+leg, 1, side.breaks(neckline))
	if !ok {
		return Match{}, false
	}

	return Match{
		Kind:       side.kind,
		StartIndex: cursor,
		EndIndex:   breakout,
		StartTime:  scan[cursor].OpenTime,
		EndTime:    scan[breakout].CloseTime,
		Extremity:  extremity,
		Neckline:   neckline,
	}, true
}
