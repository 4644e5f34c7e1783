package strategy

import (
	"fmt"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// Status is the lifecycle state of a trade. States only move forward:
// NotOpened -> Running -> Won | Lost | Unknown.
type Status int

const (
	StatusNotOpened Status = iota
	StatusRunning
	StatusWon
	StatusLost
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusNotOpened:
		return "NOT_OPENED"
	case StatusRunning:
		return "RUNNING"
	case StatusWon:
		return "WIN"
	case StatusLost:
		return "LOST"
	case StatusUnknown:
		return "UNKNOWN"
	default:
		return "INVALID"
	}
}

// IsClosed reports whether the status is terminal.
func (s Status) IsClosed() bool {
	return s == StatusWon || s == StatusLost || s == StatusUnknown
}

// Direction is the side a trade is taken on.
type Direction int

const (
	Long Direction = iota
	Short
)

func (d Direction) String() string {
	if d == Short {
		return "SHORT"
	}
	return "LONG"
}

// Trade is a hypothetical position synthesized from a pattern match.
type Trade struct {
	Strategy   string    `json:"strategy"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"sl"`
	TakeProfit float64   `json:"tp"`
	OpenTime   int64     `json:"open_time"`
	CloseTime  int64     `json:"close_time"`

	// PatternStart and PatternEnd index the candles the pattern was detected on.
	// The opening candle is the pattern's last candle.
	PatternStart int `json:"pattern_start"`
	PatternEnd   int `json:"pattern_end"`
	// CloseIndex is the candle the trade closed on, -1 while open.
	CloseIndex int `json:"close_index"`

	OpeningCandle types.Candle  `json:"opening_candle"`
	ClosingCandle *types.Candle `json:"closing_candle,omitempty"`

	Status Status `json:"status"`
}

// transition moves the trade to next, rejecting any move that skips or revisits a state.
func (t *Trade) transition(next Status) error {
	valid := false
	switch t.Status {
	case StatusNotOpened:
		valid = next == StatusRunning
	case StatusRunning:
		valid = next.IsClosed()
	}
	if !valid {
		return fmt.Errorf("invalid trade transition %s -> %s (opened at %d)", t.Status, next, t.OpenTime)
	}
	t.Status = next
	return nil
}

// Open starts the trade on its opening candle.
func (t *Trade) Open() error {
	return t.transition(StatusRunning)
}

// Evaluate checks a running trade against one candle and closes it when its range
// touches the stop or the target. A candle containing both closes the trade as Unknown.
// It returns the resulting status.
func (t *Trade) Evaluate(c types.Candle, index int) (Status, error) {
	if t.Status != StatusRunning {
		return t.Status, nil
	}

	hitTP := c.Contains(t.TakeProfit)
	hitSL := c.Contains(t.StopLoss)

	var next Status
	switch {
	case hitTP && hitSL:
		next = StatusUnknown
	case hitTP:
		next = StatusWon
	case hitSL:
		next = StatusLost
	default:
		return StatusRunning, nil
	}

	if err := t.transition(next); err != nil {
		return t.Status, err
	}
	t.CloseTime = c.CloseTime
	t.CloseIndex = index
	closing := c
	t.ClosingCandle = &closing
	return next, nil
}
