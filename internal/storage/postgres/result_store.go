package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
	"github.com/ducminhle1904/pattern-backtester/internal/patterns"
	"github.com/ducminhle1904/pattern-backtester/internal/storage"
	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
)

// ResultStore implements storage.ResultStore using PostgreSQL.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

var _ storage.ResultStore = (*ResultStore)(nil)

var resultColumns = []string{
	"run_id", "position", "name", "pattern",
	"klines_repetitions", "leg_repetitions", "klines_range", "trend_size", "counter_trend_size",
	"tp_multiplier", "sl_multiplier", "risk", "market_type",
	"total_trades", "total_win", "total_lost", "total_unknown", "total_unclosed",
	"win_ratio", "lose_ratio", "unknown_ratio", "efficiency",
	"risk_reward_ratio", "needed_win_percentage",
	"start_money", "final_money", "total_return", "max_drawdown",
	"equity_depleted", "depleted_at", "money_evolution", "duration_ns",
}

// SaveRun inserts the run and copies its results in one transaction.
func (s *ResultStore) SaveRun(ctx context.Context, run *storage.Run, results []backtest.StrategyResult) error {
	if err := run.Validate(); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sweep_runs (id, symbol, interval, market_type, candles, from_ms, to_ms, strategies, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, run.ID, run.Symbol, run.Interval, run.Market, run.Candles, run.From, run.To, run.Strategies, run.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert run: %w", err)
	}

	rows := make([][]any, len(results))
	for i, res := range results {
		rows[i] = resultRow(run.ID, i, res)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"strategy_results"}, resultColumns, pgx.CopyFromRows(rows)); err != nil {
		return fmt.Errorf("copy strategy results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func resultRow(runID string, position int, res backtest.StrategyResult) []any {
	var win, lose, unknown, efficiency *float64
	if r := res.Ratios; r != nil {
		win, lose, unknown, efficiency = &r.WinRatio, &r.LoseRatio, &r.UnknownRatio, &r.Efficiency
	}
	curve := res.MoneyEvolution
	if curve == nil {
		curve = []float64{}
	}
	p := res.Pattern
	return []any{
		runID, position, res.Name, string(p.Kind),
		p.Repetitions, p.LegRepetitions, p.Range, p.TrendSize, p.CounterTrendSize,
		res.Strategy.TakeProfit, res.Strategy.StopLoss, res.Strategy.Risk, string(res.Strategy.Market),
		res.TotalTrades, res.TotalWin, res.TotalLost, res.TotalUnknown, res.TotalUnclosed,
		win, lose, unknown, efficiency,
		res.RiskRewardRatio, res.NeededWinPercentage,
		res.StartMoney, res.FinalMoney, res.TotalReturn, res.MaxDrawdown,
		res.EquityDepleted, res.DepletedAt, curve, res.Duration.Nanoseconds(),
	}
}

// GetRun retrieves a run by id. Returns ErrNotFound if it does not exist.
func (s *ResultStore) GetRun(ctx context.Context, runID string) (*storage.Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, symbol, interval, market_type, candles, from_ms, to_ms, strategies, created_at
		FROM sweep_runs WHERE id = $1
	`, runID)

	run, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// GetResults retrieves the results of a run, best final money first.
func (s *ResultStore) GetResults(ctx context.Context, runID string) ([]backtest.StrategyResult, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT name, pattern,
			klines_repetitions, leg_repetitions, klines_range, trend_size, counter_trend_size,
			tp_multiplier, sl_multiplier, risk, market_type,
			total_trades, total_win, total_lost, total_unknown, total_unclosed,
			win_ratio, lose_ratio, unknown_ratio, efficiency,
			risk_reward_ratio, needed_win_percentage,
			start_money, final_money, total_return, max_drawdown,
			equity_depleted, depleted_at, money_evolution, duration_ns
		FROM strategy_results
		WHERE run_id = $1
		ORDER BY final_money DESC, position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query strategy results: %w", err)
	}
	defer rows.Close()

	results := make([]backtest.StrategyResult, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		res.RunID = runID
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy results: %w", err)
	}
	return results, nil
}

// ListRuns retrieves all runs, newest first.
func (s *ResultStore) ListRuns(ctx context.Context) ([]*storage.Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, interval, market_type, candles, from_ms, to_ms, strategies, created_at
		FROM sweep_runs
		ORDER BY created_at DESC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]*storage.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Close closes the underlying pool.
func (s *ResultStore) Close() error {
	s.pool.Close()
	return nil
}

func scanRun(row pgx.Row) (*storage.Run, error) {
	var run storage.Run
	var createdAt time.Time
	err := row.Scan(&run.ID, &run.Symbol, &run.Interval, &run.Market, &run.Candles,
		&run.From, &run.To, &run.Strategies, &createdAt)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = createdAt.UTC()
	return &run, nil
}

func scanResult(row pgx.Row) (backtest.StrategyResult, error) {
	var (
		res                            backtest.StrategyResult
		kind, market                   string
		win, lose, unknown, efficiency *float64
		durationNs                     int64
	)
	err := row.Scan(&res.Name, &kind,
		&res.Pattern.Repetitions, &res.Pattern.LegRepetitions, &res.Pattern.Range,
		&res.Pattern.TrendSize, &res.Pattern.CounterTrendSize,
		&res.Strategy.TakeProfit, &res.Strategy.StopLoss, &res.Strategy.Risk, &market,
		&res.TotalTrades, &res.TotalWin, &res.TotalLost, &res.TotalUnknown, &res.TotalUnclosed,
		&win, &lose, &unknown, &efficiency,
		&res.RiskRewardRatio, &res.NeededWinPercentage,
		&res.StartMoney, &res.FinalMoney, &res.TotalReturn, &res.MaxDrawdown,
		&res.EquityDepleted, &res.DepletedAt, &res.MoneyEvolution, &durationNs,
	)
	if err != nil {
		return res, fmt.Errorf("scan strategy result: %w", err)
	}

	res.Pattern.Kind = patterns.Kind(kind)
	res.Strategy.Name = res.Name
	res.Strategy.Market = strategy.MarketType(market)
	res.Strategy.StartMoney = res.StartMoney
	res.TotalClosed = res.TotalWin + res.TotalLost + res.TotalUnknown
	res.Duration = time.Duration(durationNs)
	if win != nil {
		res.Ratios = &backtest.Ratios{WinRatio: *win, LoseRatio: deref(lose), UnknownRatio: deref(unknown), Efficiency: deref(efficiency)}
	}
	if err := res.RestorePattern(); err != nil {
		return res, err
	}
	return res, nil
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
