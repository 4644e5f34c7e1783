package backtest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"

	bterrors "github.com/ducminhle1904/pattern-backtester/internal/errors"
	"github.com/ducminhle1904/pattern-backtester/internal/logger"
	"github.com/ducminhle1904/pattern-backtester/internal/monitoring"
	"github.com/ducminhle1904/pattern-backtester/internal/strategy"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// DefaultWorkerTimeout bounds how long one strategy may spend generating trades.
const DefaultWorkerTimeout = 10 * time.Minute

// Sweeper backtests a list of strategy configurations one after another, generating
// the trades of each configuration in parallel chunks.
type Sweeper struct {
	Workers int
	// WorkerTimeout fails the sweep when the chunk workers of one strategy overrun it.
	// Zero disables the timeout.
	WorkerTimeout time.Duration
	// StrictChunks cuts patterns at chunk boundaries instead of stitching them.
	StrictChunks bool
	Verbose      bool
	// ProgressEvery logs progress every n strategies when Verbose is set.
	ProgressEvery int
	// RunID tags the results of the next Run. A random id is used when empty.
	RunID string

	Logger *logger.Logger
	Status *monitoring.StatusTracker
}

// NewSweeper creates a sweeper with the given worker count and the default timeout
func NewSweeper(workers int) *Sweeper {
	return &Sweeper{
		Workers:       workers,
		WorkerTimeout: DefaultWorkerTimeout,
		ProgressEvery: 10,
	}
}

// Run backtests every configuration over candles and returns one result per tradable
// configuration, in input order.
func (s *Sweeper) Run(ctx context.Context, candles []types.Candle, configs []strategy.Config) ([]StrategyResult, error) {
	if err := ValidateSeries(candles); err != nil {
		return nil, err
	}
	for i, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, bterrors.NewConfigurationError("sweep", "validate", err.Error()).
				WithContext("config_index", i)
		}
	}

	runID := s.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	pool := NewWorkerPool(ctx, s.Workers, s.Workers*2)
	pool.Start()

	failed := true
	defer func() {
		if failed {
			pool.Abort()
			return
		}
		pool.Stop()
	}()

	if s.Status != nil {
		s.Status.Begin(runID, len(configs))
	}
	if s.Verbose {
		log.Printf("🔄 Sweep %s: %d strategies over %d candles with %d workers",
			runID, len(configs), len(candles), pool.WorkerCount())
	}

	progress := NewProgressTracker(len(configs))
	results := make([]StrategyResult, 0, len(configs))
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("sweep cancelled: %w", err)
		}

		if !cfg.Tradable() {
			if s.Verbose {
				log.Printf("⚠️ Skipping %s: short strategies cannot trade on %s markets", cfg.Label(), cfg.Market)
			}
			progress.Increment()
			continue
		}

		result, err := s.runStrategy(ctx, pool, candles, cfg)
		if err != nil {
			s.recordFailure(cfg, err)
			return nil, err
		}
		result.RunID = runID
		results = append(results, result)

		progress.Increment()
		if s.Status != nil {
			s.Status.Complete(cfg.Label())
		}
		s.logProgress(progress)
	}

	failed = false
	if s.Status != nil {
		s.Status.Finish()
	}
	if s.Verbose {
		_, _, _, elapsed := progress.GetProgress()
		log.Printf("✅ Sweep %s finished: %d results in %s", runID, len(results), elapsed.Round(time.Millisecond))
	}
	return results, nil
}

func (s *Sweeper) runStrategy(ctx context.Context, pool *WorkerPool, candles []types.Candle, cfg strategy.Config) (StrategyResult, error) {
	start := time.Now()

	factory, err := strategy.NewFactory(cfg)
	if err != nil {
		return StrategyResult{}, bterrors.NewConfigurationError("sweep", "new_factory", err.Error())
	}

	trades, err := s.generate(ctx, pool, candles, factory)
	if err != nil {
		return StrategyResult{}, err
	}

	ledger, err := Resolve(candles, trades, cfg)
	if err != nil {
		return StrategyResult{}, err
	}

	result := BuildResult(cfg, ledger, len(trades))
	result.Duration = time.Since(start)

	monitoring.RecordStrategy(cfg.Name, result.Duration, result.FinalMoney)
	monitoring.RecordTrades(cfg.Name, "win", ledger.Won)
	monitoring.RecordTrades(cfg.Name, "lost", ledger.Lost)
	monitoring.RecordTrades(cfg.Name, "unknown", ledger.Unknown)
	monitoring.RecordTrades(cfg.Name, "unclosed", ledger.Unclosed)

	if s.Logger != nil {
		winRatio := "n/a"
		if result.Ratios != nil {
			winRatio = fmt.Sprintf("%.2f%%", result.Ratios.WinRatio)
		}
		s.Logger.LogStrategyResult(cfg.Label(), ledger.Won, ledger.Lost, ledger.Unknown, ledger.Unclosed,
			winRatio, result.FinalMoney, result.EquityDepleted)
	}
	if ledger.Depleted && s.Verbose {
		log.Printf("⚠️ %s: equity reached %.2f, later trades compound on a non-positive base", cfg.Label(), ledger.Equity)
	}
	return result, nil
}

// generate runs the factory over every chunk in parallel and merges the chunk trades
// back into scan order.
func (s *Sweeper) generate(ctx context.Context, pool *WorkerPool, candles []types.Candle, factory *strategy.Factory) ([]*strategy.Trade, error) {
	cfg := factory.Config()
	spans := SplitSpans(len(candles), pool.WorkerCount(), cfg.Pattern.Window(), s.StrictChunks)

	jobCtx, cancel := s.jobContext(ctx)
	defer cancel()

	for i, span := range spans {
		job := ChunkJob{Index: i, Span: span, Factory: factory, Candles: candles, Ctx: jobCtx}
		if err := pool.SubmitJob(job); err != nil {
			return nil, s.joinError(err, cfg)
		}
	}

	chunks := make([][]*strategy.Trade, len(spans))
	for received := 0; received < len(spans); received++ {
		select {
		case res, ok := <-pool.GetResults():
			if !ok {
				return nil, bterrors.NewBacktestError(bterrors.ErrorCategoryFatal, "sweep", "join",
					"worker pool closed before all chunks finished")
			}
			if res.Error != nil {
				return nil, s.joinError(res.Error, cfg)
			}
			chunks[res.Index] = res.Trades
		case <-jobCtx.Done():
			return nil, s.joinError(jobCtx.Err(), cfg)
		}
	}

	if s.StrictChunks {
		merged := make([]*strategy.Trade, 0)
		for _, c := range chunks {
			merged = append(merged, c...)
		}
		return merged, nil
	}
	return stitchChunks(candles, factory, spans, chunks), nil
}

func (s *Sweeper) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.WorkerTimeout > 0 {
		return context.WithTimeout(ctx, s.WorkerTimeout)
	}
	return context.WithCancel(ctx)
}

func (s *Sweeper) joinError(err error, cfg strategy.Config) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return bterrors.NewTimeoutError("sweep", "join", err).
			WithMessage(fmt.Sprintf("chunk workers did not finish within %s", s.WorkerTimeout)).
			WithContext("strategy", cfg.Label())
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("sweep cancelled: %w", err)
	default:
		return bterrors.NewStrategyError("sweep", "generate", err).
			WithContext("strategy", cfg.Label())
	}
}

func (s *Sweeper) recordFailure(cfg strategy.Config, err error) {
	monitoring.RecordError(string(bterrors.CategoryOf(err)))
	if s.Status != nil {
		s.Status.Fail(err)
	}
	if s.Logger != nil {
		s.Logger.LogError(cfg.Label(), err)
	}
	log.Printf("❌ Strategy %s failed: %v", cfg.Label(), err)
}

func (s *Sweeper) logProgress(progress *ProgressTracker) {
	if !s.Verbose || s.ProgressEvery <= 0 {
		return
	}
	completed, total, pct, _ := progress.GetProgress()
	if completed%s.ProgressEvery != 0 && completed != total {
		return
	}
	log.Printf("📊 Progress: %d/%d (%.1f%%), ETA %s",
		completed, total, pct, progress.EstimateTimeRemaining().Round(time.Second))
}

// stitchChunks merges per-chunk trades so the result equals a single scan over the whole
// series. A chunk scan starts at its span start, while a single scan may still be inside
// a pattern that began in the previous chunk. Positions from that frontier are rescanned
// until the rescan reaches a cursor the chunk scan also visited; from there both scans agree.
func stitchChunks(candles []types.Candle, factory *strategy.Factory, spans []strategy.Span, chunks [][]*strategy.Trade) []*strategy.Trade {
	merged := make([]*strategy.Trade, 0)
	frontier := 0

	for k, span := range spans {
		trades := chunks[k]
		cursor := span.Start
		if frontier > cursor {
			cursor = frontier
		}

		for cursor < span.End && !chunkVisited(trades, cursor) {
			var t *strategy.Trade
			t, cursor = factory.Next(candles, cursor, span.Limit)
			if t != nil {
				merged = append(merged, t)
			}
		}

		if cursor < span.End {
			from := sort.Search(len(trades), func(i int) bool {
				return trades[i].PatternStart >= cursor
			})
			merged = append(merged, trades[from:]...)
		}

		frontier = span.End
		if n := len(merged); n > 0 && merged[n-1].PatternEnd+1 > frontier {
			frontier = merged[n-1].PatternEnd + 1
		}
	}
	return merged
}

// chunkVisited reports whether a chunk scan tried a match at cursor, i.e. cursor is not
// strictly inside one of the chunk's patterns.
func chunkVisited(trades []*strategy.Trade, cursor int) bool {
	i := sort.Search(len(trades), func(i int) bool {
		return trades[i].PatternStart >= cursor
	})
	if i == 0 {
		return true
	}
	return cursor > trades[i-1].PatternEnd
}
