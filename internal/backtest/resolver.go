package backtest

import (
	"sort"

	bterrors "github.com/ducminhle1904/pattern-backtester/internal/errors"
	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// Ledger is the equity accumulator of one strategy run. Only the resolver writes to it.
type Ledger struct {
	StartMoney float64
	Equity     float64
	// Curve holds the equity after every win or loss, in close order.
	Curve []float64

	// Depleted is set the first time equity reaches zero or below. Equity keeps
	// compounding on the non-positive base afterwards.
	Depleted   bool
	DepletedAt int64

	Won      int
	Lost     int
	Unknown  int
	Unclosed int
}

// NewLedger creates a ledger holding startMoney.
func NewLedger(startMoney float64) *Ledger {
	return &Ledger{
		StartMoney: startMoney,
		Equity:     startMoney,
		Curve:      make([]float64, 0),
	}
}

// Closed is the number of trades that reached a terminal status.
func (l *Ledger) Closed() int {
	return l.Won + l.Lost + l.Unknown
}

func (l *Ledger) record(status strategy.Status, cfg strategy.Config, at int64) {
	switch status {
	case strategy.StatusWon:
		l.Won++
		l.Equity += l.Equity * cfg.Risk * cfg.TakeProfit
	case strategy.StatusLost:
		l.Lost++
		l.Equity -= l.Equity * cfg.Risk * cfg.StopLoss
	case strategy.StatusUnknown:
		l.Unknown++
		return
	default:
		return
	}

	l.Curve = append(l.Curve, l.Equity)
	if !l.Depleted && l.Equity <= 0 {
		l.Depleted = true
		l.DepletedAt = at
	}
}

// Resolver replays trades over a candle series one candle at a time.
type Resolver struct {
	cfg     strategy.Config
	trades  []*strategy.Trade
	pending int
	active  []*strategy.Trade
	ledger  *Ledger
}

// NewResolver prepares a resolver. Trades are ordered by open time; the slice is sorted in place.
func NewResolver(cfg strategy.Config, trades []*strategy.Trade) *Resolver {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].OpenTime < trades[j].OpenTime
	})
	return &Resolver{
		cfg:    cfg,
		trades: trades,
		active: make([]*strategy.Trade, 0),
		ledger: NewLedger(cfg.StartMoney),
	}
}

// Step advances every trade over candle c at position index. Running trades are checked
// for exits before trades opening on c are started, so the opening candle never closes a trade.
func (r *Resolver) Step(index int, c types.Candle) error {
	kept := r.active[:0]
	for _, t := range r.active {
		status, err := t.Evaluate(c, index)
		if err != nil {
			return err
		}
		if status.IsClosed() {
			r.ledger.record(status, r.cfg, c.CloseTime)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(r.active); i++ {
		r.active[i] = nil
	}
	r.active = kept

	for r.pending < len(r.trades) && r.trades[r.pending].OpenTime <= c.CloseTime {
		t := r.trades[r.pending]
		r.pending++
		if t.OpenTime != c.CloseTime {
			// open time is not a candle close of this series
			continue
		}
		if err := t.Open(); err != nil {
			return err
		}
		r.active = append(r.active, t)
	}
	return nil
}

// Finish counts the trades left open and returns the ledger.
func (r *Resolver) Finish() *Ledger {
	unclosed := 0
	for _, t := range r.trades {
		if !t.Status.IsClosed() {
			unclosed++
		}
	}
	r.ledger.Unclosed = unclosed
	return r.ledger
}

// Resolve runs a single forward pass over candles and returns the resulting ledger.
func Resolve(candles []types.Candle, trades []*strategy.Trade, cfg strategy.Config) (*Ledger, error) {
	if err := ValidateSeries(candles); err != nil {
		return nil, err
	}

	r := NewResolver(cfg, trades)
	for i, c := range candles {
		if err := r.Step(i, c); err != nil {
			return nil, bterrors.NewStrategyError("resolver", "step", err).
				WithMessage("trade state machine rejected a transition").
				WithContext("strategy", cfg.Name).
				WithContext("candle_index", i)
		}
	}
	return r.Finish(), nil
}

// ValidateSeries checks that candles are non-empty, ascending and non-overlapping.
func ValidateSeries(candles []types.Candle) error {
	if len(candles) == 0 {
		return bterrors.NewValidationError("resolver", "validate_series", "candle series is empty")
	}
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1], candles[i]
		if cur.OpenTime <= prev.OpenTime || cur.OpenTime <= prev.CloseTime {
			return bterrors.NewValidationError("resolver", "validate_series",
				"candle series is unsorted or overlapping").
				WithContext("index", i).
				WithContext("previous_close_time", prev.CloseTime).
				WithContext("open_time", cur.OpenTime)
		}
	}
	return nil
}
