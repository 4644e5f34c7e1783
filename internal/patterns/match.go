package patterns

import "math"

// Match is a detected pattern. Indexes point into the scanned candle slice.
type Match struct {
	Kind       Kind
	StartIndex int
	EndIndex   int
	StartTime  int64
	EndTime    int64

	// Extremity is lower_price for W, higher_price for M and peak_price for reversals.
	Extremity float64
	// Neckline is the breakout level, or the end_price of a reversal.
	Neckline float64
}

// LegHeight is the absolute distance between the extremity and the neckline.
func (m Match) LegHeight() float64 {
	return math.Abs(m.Neckline - m.Extremity)
}

// Span is the number of candles covered by the match.
func (m Match) Span() int {
	return m.EndIndex - m.StartIndex + 1
}
