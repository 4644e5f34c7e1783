package data

import (
	"time"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// DataProvider interface for loading historical candles from various sources
type DataProvider interface {
	// LoadData loads historical candles from the specified source
	LoadData(source string) ([]types.Candle, error)

	// ValidateData validates the integrity of the loaded candles
	ValidateData(data []types.Candle) error

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache interface for caching loaded candles
type DataCache interface {
	Get(key string) ([]types.Candle, bool)
	Set(key string, data []types.Candle)
	Clear()
	Size() int
}

// DataFilter interface for filtering and transforming candles
type DataFilter interface {
	// FilterByPeriod keeps the trailing period of the series
	FilterByPeriod(data []types.Candle, period time.Duration) []types.Candle

	// FilterByDateRange keeps candles opened within [start, end]
	FilterByDateRange(data []types.Candle, start, end time.Time) []types.Candle

	// ValidateTimeSequence ensures candles are ascending and non-overlapping
	ValidateTimeSequence(data []types.Candle) error
}

// CSVColumnMapping defines the column positions for different CSV formats.
// A negative column is absent from the file.
type CSVColumnMapping struct {
	OpenTimeCol    int
	OpenCol        int
	HighCol        int
	LowCol         int
	CloseCol       int
	VolumeCol      int
	CloseTimeCol   int
	QuoteVolumeCol int
	TradeCountCol  int
	MinColumns     int
	// DateFormat parses the time columns. Empty means unix milliseconds.
	DateFormat string
}

// Predefined CSV formats
var (
	// CandleCSVFormat is the cache format written by WriteCandlesCSV
	CandleCSVFormat = CSVColumnMapping{
		OpenTimeCol:    0,
		OpenCol:        1,
		HighCol:        2,
		LowCol:         3,
		CloseCol:       4,
		VolumeCol:      5,
		CloseTimeCol:   6,
		QuoteVolumeCol: 7,
		TradeCountCol:  8,
		MinColumns:     7,
	}

	DefaultCSVFormat = CSVColumnMapping{
		OpenTimeCol:    0,
		OpenCol:        1,
		HighCol:        2,
		LowCol:         3,
		CloseCol:       4,
		VolumeCol:      5,
		CloseTimeCol:   -1,
		QuoteVolumeCol: -1,
		TradeCountCol:  -1,
		MinColumns:     6,
		DateFormat:     "2006-01-02 15:04:05",
	}

	BybitCSVFormat = CSVColumnMapping{
		OpenTimeCol:    0,
		OpenCol:        1,
		HighCol:        2,
		LowCol:         3,
		CloseCol:       4,
		VolumeCol:      5,
		CloseTimeCol:   -1,
		QuoteVolumeCol: 6,
		TradeCountCol:  -1,
		MinColumns:     6,
		DateFormat:     "2006-01-02 15:04:05",
	}
)

// CandleCSVHeader is the header row of CandleCSVFormat files
var CandleCSVHeader = []string{
	"open_time", "open", "high", "low", "close", "volume", "close_time", "quote_asset_volume", "number_of_trades",
}

// FileLocator interface for finding data files
type FileLocator interface {
	// FindDataFile attempts to locate data files for a specific exchange and symbol
	FindDataFile(dataRoot, exchange, symbol, interval string) string

	// ConvertIntervalToMinutes converts interval strings like "5m", "1h", "4h" to minute numbers
	ConvertIntervalToMinutes(interval string) string
}
