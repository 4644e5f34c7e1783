package data

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ducminhle1904/pattern-backtester/internal/exchange/bybit"
)

// CandleFileName is the file name of a cached candle series
const CandleFileName = "candles.csv"

// exchangeCategories lists the market categories searched per exchange, most common first
var exchangeCategories = map[string][]string{
	"bybit":   {"spot", "linear", "inverse"},
	"binance": {"spot", "futures"},
}

// DefaultFileLocator finds cached series under a data root laid out as
// {dataRoot}/{exchange}/{category}/{SYMBOL}/{intervalMinutes}/candles.csv
type DefaultFileLocator struct{}

func NewDefaultFileLocator() *DefaultFileLocator {
	return &DefaultFileLocator{}
}

// ConvertIntervalToMinutes maps any interval ParseInterval accepts to its length in
// minutes. Monthly and unknown intervals are returned unchanged.
func (f *DefaultFileLocator) ConvertIntervalToMinutes(interval string) string {
	iv, err := bybit.ParseInterval(interval)
	if err != nil {
		return interval
	}
	d := iv.Duration()
	if d <= 0 {
		return string(iv)
	}
	return strconv.Itoa(int(d.Minutes()))
}

// CandlePath is where a series of one category is cached
func (f *DefaultFileLocator) CandlePath(dataRoot, exchange, category, symbol, interval string) string {
	return filepath.Join(dataRoot, strings.ToLower(exchange), category, strings.ToUpper(symbol),
		f.ConvertIntervalToMinutes(interval), CandleFileName)
}

// FindDataFile returns the first cached series found across the exchange's
// categories, or an empty string.
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	categories, ok := exchangeCategories[strings.ToLower(exchange)]
	if !ok {
		categories = []string{"spot", "futures", "linear", "inverse"}
	}

	tried := make([]string, 0, len(categories))
	for _, category := range categories {
		path := f.CandlePath(dataRoot, exchange, category, symbol, interval)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
		tried = append(tried, path)
	}

	log.Printf("⚠️ No cached %s %s series on %s, tried: %s", strings.ToUpper(symbol), interval, exchange,
		strings.Join(tried, ", "))
	return ""
}
