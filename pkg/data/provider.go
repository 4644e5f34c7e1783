package data

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// DataManager combines all data operations in a convenient interface
type DataManager struct {
	csv     DataProvider
	json    DataProvider
	filter  *DefaultDataFilter
	locator *DefaultFileLocator
}

// NewDataManager creates a new data manager with cached CSV and JSON providers
func NewDataManager() *DataManager {
	return &DataManager{
		csv:     NewCachedProvider(NewCSVProvider()),
		json:    NewCachedProvider(NewBinanceJSONProvider()),
		filter:  NewDefaultDataFilter(),
		locator: NewDefaultFileLocator(),
	}
}

// ProviderFor picks the provider by file extension. Anything but .json is read as CSV.
func (dm *DataManager) ProviderFor(filename string) DataProvider {
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		return dm.json
	}
	return dm.csv
}

// LoadHistoricalData loads, normalizes and validates a candle file
func (dm *DataManager) LoadHistoricalData(filename string) ([]types.Candle, error) {
	provider := dm.ProviderFor(filename)
	data, err := provider.LoadData(filename)
	if err != nil {
		return nil, err
	}
	data = dm.filter.Normalize(data)
	if err := provider.ValidateData(data); err != nil {
		return nil, err
	}
	return data, nil
}

// FilterDataByPeriod keeps the trailing period of data
func (dm *DataManager) FilterDataByPeriod(data []types.Candle, period time.Duration) []types.Candle {
	return dm.filter.FilterByPeriod(data, period)
}

// FilterDataByDateRange keeps candles opened within [start, end]
func (dm *DataManager) FilterDataByDateRange(data []types.Candle, start, end time.Time) []types.Candle {
	return dm.filter.FilterByDateRange(data, start, end)
}

// FindDataFile locates a cached series
func (dm *DataManager) FindDataFile(dataRoot, exchange, symbol, interval string) string {
	return dm.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// CandlePath is the cache path of a series
func (dm *DataManager) CandlePath(dataRoot, exchange, category, symbol, interval string) string {
	return dm.locator.CandlePath(dataRoot, exchange, category, symbol, interval)
}

// ParseTrailingPeriod parses period strings like "7d", "30d", "180d" or Go durations
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		nStr := strings.TrimSuffix(s, "d")
		if nStr == "" {
			return 0, false
		}
		n, err := strconv.Atoi(nStr)
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}
