package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ducminhle1904/pattern-backtester/internal/patterns"
	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
)

// Ratios are percentages of closed trades. They are only defined when at least one
// trade closed.
type Ratios struct {
	WinRatio     float64 `json:"win_ratio"`
	LoseRatio    float64 `json:"lose_ratio"`
	UnknownRatio float64 `json:"unknown_ratio"`
	// Efficiency is the win ratio relative to the breakeven win percentage, 100 at breakeven.
	Efficiency float64 `json:"efficiency"`
}

// StrategyResult summarizes one strategy run of a sweep.
type StrategyResult struct {
	RunID    string          `json:"run_id,omitempty"`
	Name     string          `json:"name"`
	Strategy strategy.Config `json:"strategy"`
	Pattern  patterns.Params `json:"pattern"`

	TotalTrades   int `json:"total_trades"`
	TotalWin      int `json:"total_win"`
	TotalLost     int `json:"total_lost"`
	TotalUnknown  int `json:"total_unknown"`
	TotalClosed   int `json:"total_closed"`
	TotalUnclosed int `json:"total_unclosed"`

	Ratios              *Ratios `json:"ratios,omitempty"`
	RiskRewardRatio     float64 `json:"risk_reward_ratio"`
	NeededWinPercentage float64 `json:"needed_win_percentage"`

	StartMoney     float64 `json:"start_money"`
	FinalMoney     float64 `json:"final_money"`
	TotalReturn    float64 `json:"total_return"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	EquityDepleted bool    `json:"equity_depleted"`
	DepletedAt     int64   `json:"depleted_at,omitempty"`

	MoneyEvolution []float64     `json:"money_evolution,omitempty"`
	Duration       time.Duration `json:"duration_ns"`
}

// BuildResult reduces a resolved ledger into a StrategyResult.
func BuildResult(cfg strategy.Config, ledger *Ledger, totalTrades int) StrategyResult {
	needed := NeededWinPercentage(cfg.TakeProfit, cfg.StopLoss)

	result := StrategyResult{
		Name:                cfg.Name,
		Strategy:            cfg,
		Pattern:             patterns.Describe(cfg.Pattern),
		TotalTrades:         totalTrades,
		TotalWin:            ledger.Won,
		TotalLost:           ledger.Lost,
		TotalUnknown:        ledger.Unknown,
		TotalClosed:         ledger.Closed(),
		TotalUnclosed:       ledger.Unclosed,
		RiskRewardRatio:     round2(cfg.TakeProfit / cfg.StopLoss),
		NeededWinPercentage: round2(needed),
		StartMoney:          ledger.StartMoney,
		FinalMoney:          ledger.Equity,
		MaxDrawdown:         round2(MaxDrawdown(ledger.StartMoney, ledger.Curve)),
		EquityDepleted:      ledger.Depleted,
		DepletedAt:          ledger.DepletedAt,
		MoneyEvolution:      ledger.Curve,
	}
	if ledger.StartMoney != 0 {
		result.TotalReturn = round2((ledger.Equity - ledger.StartMoney) / ledger.StartMoney * 100)
	}

	if closed := ledger.Closed(); closed > 0 {
		win := percentOf(ledger.Won, closed)
		result.Ratios = &Ratios{
			WinRatio:     round2(win),
			LoseRatio:    round2(percentOf(ledger.Lost, closed)),
			UnknownRatio: round2(percentOf(ledger.Unknown, closed)),
			Efficiency:   round2(win / needed * 100),
		}
	}
	return result
}

// NeededWinPercentage is the win rate that breaks even at the given tp/sl multipliers.
func NeededWinPercentage(tp, sl float64) float64 {
	return 1 / (1 + tp/sl) * 100
}

// MaxDrawdown returns the largest peak-to-trough equity decline in percent.
func MaxDrawdown(start float64, curve []float64) float64 {
	peak := start
	maxDD := 0.0
	for _, equity := range curve {
		if equity > peak {
			peak = equity
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - equity) / peak * 100; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// WithoutCurve returns a copy with the equity curve dropped.
func (r StrategyResult) WithoutCurve() StrategyResult {
	r.MoneyEvolution = nil
	return r
}

// RestorePattern rebuilds Strategy.Pattern from Pattern after the result was decoded.
func (r *StrategyResult) RestorePattern() error {
	cfg, err := patterns.FromParams(r.Pattern)
	if err != nil {
		return err
	}
	r.Strategy.Pattern = cfg
	return nil
}

// RankResults sorts results by final money, best first. Ties keep sweep order.
func RankResults(results []StrategyResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalMoney > results[j].FinalMoney
	})
}

func percentOf(n, total int) float64 {
	return float64(n) / float64(total) * 100
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
