package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/ducminhle1904/pattern-backtester/cmd/common"
	"github.com/ducminhle1904/pattern-backtester/internal/backtest"
	bterrors "github.com/ducminhle1904/pattern-backtester/internal/errors"
	"github.com/ducminhle1904/pattern-backtester/internal/exchange/bybit"
	"github.com/ducminhle1904/pattern-backtester/internal/logger"
	"github.com/ducminhle1904/pattern-backtester/internal/monitoring"
	"github.com/ducminhle1904/pattern-backtester/internal/notifications"
	"github.com/ducminhle1904/pattern-backtester/internal/storage"
	filestore "github.com/ducminhle1904/pattern-backtester/internal/storage/file"
	"github.com/ducminhle1904/pattern-backtester/internal/storage/memory"
	"github.com/ducminhle1904/pattern-backtester/internal/storage/postgres"
	"github.com/ducminhle1904/pattern-backtester/pkg/config"
	"github.com/ducminhle1904/pattern-backtester/pkg/data"
	"github.com/ducminhle1904/pattern-backtester/pkg/reporting"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		common.Error("%v", err)
		if bterrors.IsCategory(err, bterrors.ErrorCategoryConfiguration) || bterrors.IsCategory(err, bterrors.ErrorCategoryValidation) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, fs, err := parseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	if common.CheckHelpAndVersion("backtest", fs, opts.common, newUsage()) {
		return nil
	}
	common.SetupLogger(opts.common)
	if err := opts.validate(); err != nil {
		return bterrors.NewConfigurationError("cli", "parse_flags", err.Error())
	}

	env, err := config.LoadEnv(*opts.common.EnvFile)
	if err != nil {
		return bterrors.WrapError(err, bterrors.ErrorCategoryConfiguration, "cli", "load_env")
	}

	manager := config.NewSweepConfigManager()
	cfg, err := manager.LoadConfig(opts.configFile, env)
	if err != nil {
		return err
	}
	opts.apply(cfg)
	if err := manager.ValidateConfig(cfg); err != nil {
		return err
	}

	timeout, err := cfg.Timeout()
	if err != nil {
		return bterrors.NewConfigurationError("cli", "worker_timeout", err.Error())
	}

	candles, err := loadCandles(ctx, opts, cfg, env)
	if err != nil {
		return err
	}

	strategies, err := cfg.Expand()
	if err != nil {
		return err
	}
	if len(strategies) == 0 {
		return bterrors.NewConfigurationError("cli", "expand", "the parameter grid produced no tradable strategy")
	}

	runID := uuid.NewString()
	status := monitoring.NewStatusTracker()
	if opts.metricsAddr != "" {
		shutdown := serveMonitoring(opts.metricsAddr, status)
		defer shutdown()
	}

	runLog, err := logger.NewLogger(opts.logDir, cfg.Symbol, cfg.Interval)
	if err != nil {
		common.Warn("Could not open run log: %v", err)
		runLog = nil
	}
	if runLog != nil {
		defer runLog.Close()
		runLog.Info("run %s: %d strategies over %d candles", runID, len(strategies), len(candles))
	}

	sweeper := backtest.NewSweeper(cfg.Workers)
	sweeper.WorkerTimeout = timeout
	sweeper.StrictChunks = cfg.StrictChunks
	sweeper.Verbose = !*opts.common.Silent
	sweeper.RunID = runID
	sweeper.Status = status
	if runLog != nil {
		sweeper.Logger = runLog
	}

	reporter := reporting.NewDefaultReporter(reporting.ReportingConfig{
		EnableConsole:   !*opts.common.Silent,
		OutputDirectory: cfg.Output.Dir,
		MinClosedTrades: cfg.Output.MinClosedTrades,
		Top:             cfg.Output.Top,
		ExcelEnabled:    cfg.Output.Excel,
		CSVEnabled:      cfg.Output.CSV,
	}).WithConsole(reporting.NewConsoleReporter(stdout))

	reporter.PrintSweepInfo(reporting.SweepInfo{
		RunID:      runID,
		Symbol:     cfg.Symbol,
		Interval:   cfg.Interval,
		Market:     cfg.Market,
		Candles:    len(candles),
		Strategies: len(strategies),
		Workers:    cfg.Workers,
		From:       candles[0].OpenedAt(),
		To:         candles[len(candles)-1].ClosedAt(),
	})

	notifier := newNotifier(env)

	started := time.Now()
	results, err := sweeper.Run(ctx, candles, strategies)
	if err != nil {
		notify(ctx, notifier, notifications.LevelError,
			fmt.Sprintf("Sweep `%s` on %s %s failed: %v", runID, cfg.Symbol, cfg.Interval, err))
		return err
	}
	common.Success("Backtested %d strategies in %s", len(results), time.Since(started).Round(time.Millisecond))
	notify(ctx, notifier, notifications.LevelSuccess, sweepSummary(runID, cfg, results, time.Since(started)))

	if opts.consoleOnly {
		reporting.NewConsoleReporter(stdout).OutputResults(results, cfg.Output.Top)
	} else {
		paths, err := reporter.Report(results, time.Now())
		if err != nil {
			return bterrors.WrapError(err, bterrors.ErrorCategoryStorage, "cli", "write_reports")
		}
		common.Success("Results written to %s", paths.Full)
	}

	return persist(ctx, opts, env, &storage.Run{
		ID:         runID,
		Symbol:     cfg.Symbol,
		Interval:   cfg.Interval,
		Market:     cfg.Market,
		Candles:    len(candles),
		From:       candles[0].OpenTime,
		To:         candles[len(candles)-1].CloseTime,
		Strategies: len(strategies),
		CreatedAt:  time.Now().UTC(),
	}, results)
}

// loadCandles reads the candle series from a file or Bybit and trims it to the requested window
func loadCandles(ctx context.Context, opts *options, cfg *config.SweepConfig, env config.Env) ([]types.Candle, error) {
	from, err := common.ParseDate(opts.from)
	if err != nil {
		return nil, bterrors.NewConfigurationError("cli", "parse_from", err.Error())
	}
	to, err := common.ParseDate(opts.to)
	if err != nil {
		return nil, bterrors.NewConfigurationError("cli", "parse_to", err.Error())
	}

	var candles []types.Candle
	dm := data.NewDataManager()

	if opts.download {
		candles, err = downloadCandles(ctx, cfg, env, from, to)
		if err != nil {
			return nil, err
		}
	} else {
		path := strings.TrimSpace(cfg.DataFile)
		if path == "" {
			path = dm.FindDataFile(*opts.common.DataRoot, cfg.Exchange, cfg.Symbol, cfg.Interval)
		}
		common.Info("Loading candles from %s", path)
		candles, err = dm.LoadHistoricalData(path)
		if err != nil {
			return nil, bterrors.NewDataError("cli", "load_data", err).WithContext("path", path)
		}
		if !from.IsZero() || !to.IsZero() {
			candles = dm.FilterDataByDateRange(candles, from, to)
		}
	}

	if s := strings.TrimSpace(cfg.Period); s != "" {
		period, ok := data.ParseTrailingPeriod(s)
		if !ok {
			return nil, bterrors.NewConfigurationError("cli", "parse_period", fmt.Sprintf("invalid period %q", s))
		}
		candles = dm.FilterDataByPeriod(candles, period)
	}

	if len(candles) == 0 {
		return nil, bterrors.NewDataError("cli", "load_data", errors.New("no candles left after filtering"))
	}
	common.Info("Loaded %d candles from %s to %s", len(candles),
		candles[0].OpenedAt().Format(time.RFC3339), candles[len(candles)-1].ClosedAt().Format(time.RFC3339))
	return candles, nil
}

func downloadCandles(ctx context.Context, cfg *config.SweepConfig, env config.Env, from, to time.Time) ([]types.Candle, error) {
	interval, err := bybit.ParseInterval(cfg.Interval)
	if err != nil {
		return nil, bterrors.NewConfigurationError("cli", "parse_interval", err.Error())
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	client := bybit.NewClient(bybit.Config{APIKey: env.BybitAPIKey, APISecret: env.BybitAPISecret})
	provider := data.NewBybitProvider(client, cfg.Category, interval, from, to)
	common.Progress("Downloading %s %s klines from %s (%s)", cfg.Symbol, interval, provider.GetName(), client.GetEnvironment())

	candles, err := provider.Load(ctx, cfg.Symbol)
	if err != nil {
		return nil, err
	}
	if err := provider.ValidateData(candles); err != nil {
		return nil, bterrors.NewDataError("cli", "validate_download", err)
	}
	return candles, nil
}

func openStore(ctx context.Context, opts *options, env config.Env) (storage.ResultStore, error) {
	switch opts.store {
	case StoreMemory:
		return memory.NewResultStore(), nil
	case StoreFile:
		return filestore.NewResultStore(opts.storeDir)
	case StorePostgres:
		if env.DatabaseURL == "" {
			return nil, bterrors.NewConfigurationError("cli", "open_store",
				fmt.Sprintf("%s must be set to use the postgres store", config.EnvDatabaseURL))
		}
		pool, err := postgres.NewPool(ctx, env.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return postgres.NewResultStore(pool), nil
	default:
		return nil, nil
	}
}

func persist(ctx context.Context, opts *options, env config.Env, run *storage.Run, results []backtest.StrategyResult) error {
	store, err := openStore(ctx, opts, env)
	if err != nil {
		return bterrors.WrapError(err, bterrors.ErrorCategoryStorage, "cli", "open_store")
	}
	if store == nil {
		return nil
	}
	defer store.Close()

	if err := store.SaveRun(ctx, run, results); err != nil {
		return bterrors.NewStorageError("cli", "save_run", err).WithContext("run_id", run.ID)
	}
	common.Success("Stored run %s (%s store)", run.ID, opts.store)
	return nil
}

func newNotifier(env config.Env) notifications.Notifier {
	if !env.HasTelegram() {
		return notifications.Nop{}
	}
	return notifications.NewTelegramNotifier(env.TelegramToken, env.TelegramChatID)
}

// notify never fails the run; a lost alert is only logged
func notify(ctx context.Context, n notifications.Notifier, level, message string) {
	if err := n.SendAlert(ctx, level, message); err != nil {
		common.Warn("Could not send %s alert: %v", level, err)
	}
}

func sweepSummary(runID string, cfg *config.SweepConfig, results []backtest.StrategyResult, elapsed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sweep `%s` on %s %s finished in %s\n", runID, cfg.Symbol, cfg.Interval, elapsed.Round(time.Second))
	fmt.Fprintf(&b, "Strategies: %d", len(results))
	if len(results) == 0 {
		return b.String()
	}

	best := results[0]
	for _, r := range results[1:] {
		if r.FinalMoney > best.FinalMoney {
			best = r
		}
	}
	fmt.Fprintf(&b, "\nBest: %s\nFinal money: %.2f (%+.2f%%)", best.Strategy.Label(), best.FinalMoney, best.TotalReturn)
	return b.String()
}

// serveMonitoring exposes Prometheus metrics and the sweep status until the returned func is called
func serveMonitoring(addr string, status *monitoring.StatusTracker) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/status", status)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("❌ Monitoring server stopped: %v", err)
		}
	}()
	common.Info("Serving metrics on http://%s/metrics and status on /status", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
