package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// CSVProvider implements DataProvider for CSV files
type CSVProvider struct {
	format   CSVColumnMapping
	detect   bool
	location *time.Location
}

// NewCSVProvider creates a CSV data provider that picks the format from the header row
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{
		format:   DefaultCSVFormat,
		detect:   true,
		location: time.UTC,
	}
}

// NewCSVProviderWithFormat creates a new CSV data provider with a fixed format
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{
		format:   format,
		location: time.UTC,
	}
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical candles from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.Candle, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return p.Read(file)
}

// Read parses candles from CSV content. The first row is a header.
func (p *CSVProvider) Read(r io.Reader) ([]types.Candle, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty CSV: missing header")
		}
		return nil, err
	}

	format := p.format
	if p.detect {
		format = DetectCSVFormat(header)
	}

	var data []types.Candle
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading CSV at line %d: %v", lineNum, err)
		}
		lineNum++

		if len(record) < format.MinColumns {
			log.Printf("⚠️ Insufficient columns at line %d (expected %d, got %d), skipping", lineNum, format.MinColumns, len(record))
			continue
		}

		candle, err := p.parseRecord(record, format)
		if err != nil {
			log.Printf("⚠️ Invalid candle at line %d, skipping: %v", lineNum, err)
			continue
		}
		data = append(data, candle)
	}

	if format.CloseTimeCol < 0 {
		deriveCloseTimes(data)
	}
	return data, nil
}

func (p *CSVProvider) parseRecord(record []string, format CSVColumnMapping) (types.Candle, error) {
	openTime, err := p.parseTime(record[format.OpenTimeCol], format.DateFormat)
	if err != nil {
		return types.Candle{}, fmt.Errorf("open time %q: %w", record[format.OpenTimeCol], err)
	}

	summary := types.KlineSummary{
		OpenTime:  openTime,
		Open:      record[format.OpenCol],
		High:      record[format.HighCol],
		Low:       record[format.LowCol],
		Close:     record[format.CloseCol],
		Volume:    column(record, format.VolumeCol),
		CloseTime: openTime,
	}
	if format.CloseTimeCol >= 0 {
		closeTime, err := p.parseTime(record[format.CloseTimeCol], format.DateFormat)
		if err != nil {
			return types.Candle{}, fmt.Errorf("close time %q: %w", record[format.CloseTimeCol], err)
		}
		summary.CloseTime = closeTime
	}
	summary.QuoteAssetVolume = column(record, format.QuoteVolumeCol)
	if raw := column(record, format.TradeCountCol); raw != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil {
			summary.NumberOfTrades = n
		}
	}

	return summary.Normalize()
}

func (p *CSVProvider) parseTime(raw, layout string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if layout == "" {
		return strconv.ParseInt(raw, 10, 64)
	}
	t, err := time.ParseInLocation(layout, raw, p.location)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}

func column(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// DetectCSVFormat picks a column mapping from a header row
func DetectCSVFormat(header []string) CSVColumnMapping {
	if len(header) == 0 {
		return DefaultCSVFormat
	}
	first := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[0], "\ufeff")))
	if first == "open_time" {
		return CandleCSVFormat
	}
	for _, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), "turnover") {
			return BybitCSVFormat
		}
	}
	return DefaultCSVFormat
}

// deriveCloseTimes fills close times for formats that only carry the open time. The
// kline length is the smallest gap between consecutive opens, so missing candles do
// not stretch their neighbours.
func deriveCloseTimes(data []types.Candle) {
	var step int64
	for i := 1; i < len(data); i++ {
		if gap := data[i].OpenTime - data[i-1].OpenTime; gap > 0 && (step == 0 || gap < step) {
			step = gap
		}
	}
	if step == 0 {
		return
	}
	for i := range data {
		data[i].CloseTime = data[i].OpenTime + step - 1
	}
}

// ValidateData validates the integrity of loaded candles
func (p *CSVProvider) ValidateData(data []types.Candle) error {
	return validateCandles(data)
}

func validateCandles(data []types.Candle) error {
	if len(data) == 0 {
		return fmt.Errorf("no data provided")
	}
	for i, candle := range data {
		if err := candle.Validate(); err != nil {
			return fmt.Errorf("index %d: %w", i, err)
		}
	}
	return NewDefaultDataFilter().ValidateTimeSequence(data)
}
