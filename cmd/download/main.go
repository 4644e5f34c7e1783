package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/pattern-backtester/cmd/common"
	"github.com/ducminhle1904/pattern-backtester/internal/exchange/bybit"
	"github.com/ducminhle1904/pattern-backtester/pkg/config"
	"github.com/ducminhle1904/pattern-backtester/pkg/data"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		common.Error("%v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	commonFlags := common.RegisterCommonFlags(fs)

	var (
		symbol   = fs.String("symbol", "BTCUSDT", "Trading symbol")
		interval = fs.String("interval", config.DefaultInterval, "Candle interval, e.g. 1m, 5m, 1h, D")
		category = fs.String("category", config.DefaultCategory, "Bybit category (spot, linear, inverse)")
		exchange = fs.String("exchange", config.DefaultExchange, "Exchange folder below -data-root")
		fromStr  = fs.String("from", "", "Start date (defaults to 30 days before -to)")
		toStr    = fs.String("to", "", "End date (defaults to now)")
		output   = fs.String("output", "", "Output CSV path (defaults to <data-root>/<exchange>/<category>/<SYMBOL>/<minutes>/candles.csv)")
		testnet  = fs.Bool("testnet", false, "Use the Bybit testnet")
	)

	if err := fs.Parse(args); err != nil {
		return err
	}
	usage := common.NewUsageFormatter("download", "Download Bybit klines into the candle CSV layout").
		AddExample("download -symbol ETHUSDT -interval 5m -from 2024-01-01 -to 2024-03-01", "Download two months of 5m candles")
	if common.CheckHelpAndVersion("download", fs, commonFlags, usage) {
		return nil
	}
	common.SetupLogger(commonFlags)

	v := common.NewFlagValidator().ValidateRequired("symbol", *symbol)
	kline, err := bybit.ParseInterval(*interval)
	if err != nil {
		v.AddError(err.Error())
	}
	from, err := common.ParseDate(*fromStr)
	if err != nil {
		v.AddError(err.Error())
	}
	to, err := common.ParseDate(*toStr)
	if err != nil {
		v.AddError(err.Error())
	}
	if err := v.GetError(); err != nil {
		return err
	}

	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	env, err := config.LoadEnv(*commonFlags.EnvFile)
	if err != nil {
		return err
	}
	client := bybit.NewClient(bybit.Config{
		APIKey:    env.BybitAPIKey,
		APISecret: env.BybitAPISecret,
		Testnet:   *testnet,
	})

	sym := strings.ToUpper(strings.TrimSpace(*symbol))
	common.Progress("Downloading %s %s %s klines from %s to %s (%s)", *category, sym, kline,
		from.Format(time.RFC3339), to.Format(time.RFC3339), client.GetEnvironment())

	candles, err := client.GetKlineRange(ctx, bybit.KlineParams{
		Category: *category,
		Symbol:   sym,
		Interval: kline,
	}, from, to)
	if err != nil {
		return err
	}
	if len(candles) == 0 {
		return fmt.Errorf("bybit returned no %s klines in the requested range", sym)
	}

	path := *output
	if path == "" {
		path = data.NewDataManager().CandlePath(*commonFlags.DataRoot, *exchange, *category, sym, *interval)
	}
	if err := data.WriteCandlesCSV(path, candles); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	common.Success("Wrote %d candles to %s", len(candles), path)
	return nil
}
