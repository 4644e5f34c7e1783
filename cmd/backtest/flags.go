package main

import (
	"flag"
	"io"
	"strings"
	"time"

	"github.com/ducminhle1904/pattern-backtester/cmd/common"
	"github.com/ducminhle1904/pattern-backtester/pkg/config"
)

// Store backends
const (
	StoreNone     = "none"
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

type options struct {
	common *common.CommonFlags

	configFile string
	dataFile   string
	symbol     string
	interval   string
	exchange   string
	category   string
	market     string
	period     string
	from       string
	to         string
	download   bool

	workers       int
	workerTimeout string
	strictChunks  bool

	outputDir   string
	top         int
	excel       bool
	csv         bool
	consoleOnly bool

	store       string
	storeDir    string
	logDir      string
	metricsAddr string

	// set records which flags were given on the command line
	set map[string]bool
}

func newUsage() *common.UsageFormatter {
	return common.NewUsageFormatter("backtest", "Sweep chart pattern strategies over historical candles").
		AddExample("backtest -config configs/w_m_sweep.json", "Run the sweep described by a configuration file").
		AddExample("backtest -symbol ETHUSDT -interval 5m -period 30d -excel", "Sweep the default grid over the last 30 days of local 5m candles").
		AddExample("backtest -config configs/reversals.json -download -from 2024-01-01 -to 2024-02-01", "Download candles from Bybit before sweeping").
		AddExample("backtest -config configs/w_m_sweep.json -store postgres -metrics-addr :9090", "Persist results and expose metrics while running")
}

func parseFlags(args []string, output io.Writer) (*options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	fs.SetOutput(output)

	o := &options{common: common.RegisterCommonFlags(fs)}

	fs.StringVar(&o.configFile, "config", "", "Path to sweep configuration file (a bare name resolves to configs/<name>.json)")
	fs.StringVar(&o.dataFile, "data", "", "Path to historical data file (overrides -symbol/-interval lookup)")
	fs.StringVar(&o.symbol, "symbol", "", "Trading symbol, e.g. BTCUSDT")
	fs.StringVar(&o.interval, "interval", "", "Candle interval, e.g. 1m, 5m, 1h")
	fs.StringVar(&o.exchange, "exchange", config.DefaultExchange, "Exchange folder below -data-root")
	fs.StringVar(&o.category, "category", config.DefaultCategory, "Bybit category (spot, linear, inverse)")
	fs.StringVar(&o.market, "market", "", "Market type: futures trades both sides, spot skips short patterns")
	fs.StringVar(&o.period, "period", "", "Limit data to trailing window (e.g. 7d, 30d, 4w)")
	fs.StringVar(&o.from, "from", "", "Start date (YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339)")
	fs.StringVar(&o.to, "to", "", "End date (YYYY-MM-DD, YYYY-MM-DD HH:MM or RFC3339)")
	fs.BoolVar(&o.download, "download", false, "Download candles from Bybit instead of reading a file")

	fs.IntVar(&o.workers, "workers", 0, "Chunk workers per strategy (0 = number of CPUs)")
	fs.StringVar(&o.workerTimeout, "worker-timeout", "", "Maximum time one strategy may spend generating trades, e.g. 10m")
	fs.BoolVar(&o.strictChunks, "strict-chunks", false, "Cut patterns at chunk boundaries instead of stitching them")

	fs.StringVar(&o.outputDir, "output", "", "Results directory")
	fs.IntVar(&o.top, "top", 0, "Number of strategies shown in the console ranking (0 = all)")
	fs.BoolVar(&o.excel, "excel", false, "Also write an .xlsx workbook")
	fs.BoolVar(&o.csv, "csv", false, "Also write a CSV summary")
	fs.BoolVar(&o.consoleOnly, "console-only", false, "Only display results in console, do not write files")

	fs.StringVar(&o.store, "store", StoreNone, "Result store: none, memory, file or postgres")
	fs.StringVar(&o.storeDir, "store-dir", "runs", "Directory of the file result store")
	fs.StringVar(&o.logDir, "log-dir", "logs", "Directory for per-run log files")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve /metrics and /status on this address while sweeping, e.g. :9090")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.configFile != "" && !strings.ContainsAny(o.configFile, `/\`) && !strings.HasSuffix(o.configFile, ".json") {
		o.configFile = "configs/" + o.configFile + ".json"
	}
	return o, fs, nil
}

func (o *options) validate() error {
	v := common.NewFlagValidator()
	v.ValidateInt("workers", o.workers, 0, 1024)
	v.ValidateChoice("store", o.store, []string{StoreNone, StoreMemory, StoreFile, StorePostgres})
	v.ValidateFile("config", o.configFile, false)
	if !o.download {
		v.ValidateFile("data", o.dataFile, false)
	}
	if o.period != "" && (o.from != "" || o.to != "") {
		v.AddError("-period cannot be combined with -from/-to")
	}
	if o.workerTimeout != "" {
		if _, err := time.ParseDuration(o.workerTimeout); err != nil {
			v.AddError("worker-timeout must be a duration such as 10m, got: " + o.workerTimeout)
		}
	}
	return v.GetError()
}

// apply copies explicitly given flags over the configuration file values
func (o *options) apply(cfg *config.SweepConfig) {
	if o.set["symbol"] {
		cfg.Symbol = strings.ToUpper(o.symbol)
	}
	if o.set["interval"] {
		cfg.Interval = o.interval
	}
	if o.set["data"] {
		cfg.DataFile = o.dataFile
	}
	if o.set["exchange"] {
		cfg.Exchange = o.exchange
	}
	if o.set["category"] {
		cfg.Category = o.category
	}
	if o.set["market"] {
		cfg.Market = o.market
	}
	if o.set["period"] {
		cfg.Period = o.period
	}
	if o.set["workers"] {
		cfg.Workers = o.workers
	}
	if o.set["worker-timeout"] {
		cfg.WorkerTimeout = o.workerTimeout
	}
	if o.set["strict-chunks"] {
		cfg.StrictChunks = o.strictChunks
	}
	if o.set["output"] {
		cfg.Output.Dir = o.outputDir
	}
	if o.set["top"] {
		cfg.Output.Top = o.top
	}
	if o.set["excel"] {
		cfg.Output.Excel = o.excel
	}
	if o.set["csv"] {
		cfg.Output.CSV = o.csv
	}
}
