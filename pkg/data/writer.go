package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// WriteCandlesCSV writes candles in CandleCSVFormat, creating parent directories
func WriteCandlesCSV(path string, candles []types.Candle) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := EncodeCandlesCSV(file, candles); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// EncodeCandlesCSV writes a header row and one row per candle
func EncodeCandlesCSV(w io.Writer, candles []types.Candle) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(CandleCSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, c := range candles {
		record := []string{
			strconv.FormatInt(c.OpenTime, 10),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
			strconv.FormatInt(c.CloseTime, 10),
			formatFloat(c.QuoteVolume),
			strconv.FormatInt(c.TradeCount, 10),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write candle %d: %w", c.OpenTime, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
