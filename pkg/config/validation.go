package config

import (
	"fmt"
	"strings"
)

// SweepValidator implements validation for sweep configurations
type SweepValidator struct{}

// NewSweepValidator creates a new sweep validator
func NewSweepValidator() *SweepValidator {
	return &SweepValidator{}
}

// Validate checks every range of the grid and the surrounding settings
func (v *SweepValidator) Validate(cfg *SweepConfig) error {
	if cfg == nil {
		return fmt.Errorf("sweep configuration is required")
	}
	if strings.TrimSpace(cfg.Symbol) == "" && cfg.DataFile == "" {
		return fmt.Errorf("either symbol or data_file must be set")
	}
	if _, err := cfg.MarketType(); err != nil {
		return err
	}
	if cfg.StartMoney < 0 {
		return fmt.Errorf("start money must be positive, got: %.2f", cfg.StartMoney)
	}

	if err := v.validateMoneyRanges(cfg); err != nil {
		return err
	}

	if cfg.DoublePatterns == nil && cfg.Reversals == nil {
		return fmt.Errorf("at least one of double_patterns or reversals must be configured")
	}
	if err := v.validateDoubleGrid(cfg.DoublePatterns); err != nil {
		return err
	}
	if err := v.validateReversalGrid(cfg.Reversals); err != nil {
		return err
	}

	if cfg.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got: %d", cfg.Workers)
	}
	if timeout, err := cfg.Timeout(); err != nil {
		return err
	} else if timeout < 0 {
		return fmt.Errorf("worker_timeout must be non-negative, got: %s", timeout)
	}
	if cfg.Output.MinClosedTrades < 0 {
		return fmt.Errorf("output.min_closed_trades must be non-negative, got: %d", cfg.Output.MinClosedTrades)
	}

	if size := cfg.GridSize(); size == 0 {
		return fmt.Errorf("parameter grid is empty")
	} else if size > MaxGridSize {
		return fmt.Errorf("parameter grid has %d strategies, more than the %d limit", size, MaxGridSize)
	}
	return nil
}

func (v *SweepValidator) validateMoneyRanges(cfg *SweepConfig) error {
	if err := cfg.TakeProfit.Validate("tp"); err != nil {
		return err
	}
	if cfg.TakeProfit.Min <= 0 {
		return fmt.Errorf("tp: multipliers must be positive, got min: %.4f", cfg.TakeProfit.Min)
	}
	if err := cfg.StopLoss.Validate("sl"); err != nil {
		return err
	}
	if cfg.StopLoss.Min <= 0 {
		return fmt.Errorf("sl: multipliers must be positive, got min: %.4f", cfg.StopLoss.Min)
	}
	if err := cfg.RiskPercent.Validate("risk_percent"); err != nil {
		return err
	}
	if cfg.RiskPercent.Min <= 0 || cfg.RiskPercent.Max > 100 {
		return fmt.Errorf("risk_percent must be within (0, 100], got: %.2f..%.2f", cfg.RiskPercent.Min, cfg.RiskPercent.Max)
	}
	return nil
}

func (v *SweepValidator) validateDoubleGrid(g *DoublePatternGrid) error {
	if g == nil {
		return nil
	}
	if len(g.Patterns) == 0 {
		return fmt.Errorf("double_patterns: at least one pattern is required")
	}
	if err := g.Repetitions.Validate("klines_repetitions"); err != nil {
		return err
	}
	if g.Repetitions.Min < 1 {
		return fmt.Errorf("klines_repetitions: min must be at least 1, got: %d", g.Repetitions.Min)
	}
	if err := g.LegRepetitions.Validate("leg_repetitions"); err != nil {
		return err
	}
	return g.Range.Validate("klines_range")
}

func (v *SweepValidator) validateReversalGrid(g *ReversalGrid) error {
	if g == nil {
		return nil
	}
	if len(g.Patterns) == 0 {
		return fmt.Errorf("reversals: at least one pattern is required")
	}
	if err := g.TrendSize.Validate("trend_size"); err != nil {
		return err
	}
	if g.TrendSize.Min < 1 {
		return fmt.Errorf("trend_size: min must be at least 1, got: %d", g.TrendSize.Min)
	}
	if err := g.CounterTrendSize.Validate("counter_trend_size"); err != nil {
		return err
	}
	if g.CounterTrendSize.Min < 1 {
		return fmt.Errorf("counter_trend_size: min must be at least 1, got: %d", g.CounterTrendSize.Min)
	}
	return nil
}
