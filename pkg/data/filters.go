package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// DefaultDataFilter implements DataFilter for common filtering operations
type DefaultDataFilter struct{}

// NewDefaultDataFilter creates a new default data filter
func NewDefaultDataFilter() *DefaultDataFilter {
	return &DefaultDataFilter{}
}

// FilterByPeriod keeps the candles opened within period of the last candle's open
func (f *DefaultDataFilter) FilterByPeriod(data []types.Candle, period time.Duration) []types.Candle {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoff := data[len(data)-1].OpenTime - period.Milliseconds()
	startIdx := sort.Search(len(data), func(i int) bool {
		return data[i].OpenTime >= cutoff
	})
	return data[startIdx:]
}

// FilterByDateRange keeps candles opened within [start, end]
func (f *DefaultDataFilter) FilterByDateRange(data []types.Candle, start, end time.Time) []types.Candle {
	if len(data) == 0 {
		return data
	}

	from, to := start.UnixMilli(), end.UnixMilli()
	var filtered []types.Candle
	for _, candle := range data {
		if candle.OpenTime >= from && candle.OpenTime <= to {
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// ValidateTimeSequence ensures candles are ascending and do not overlap
func (f *DefaultDataFilter) ValidateTimeSequence(data []types.Candle) error {
	for i := 1; i < len(data); i++ {
		prev, cur := data[i-1], data[i]
		if cur.OpenTime == prev.OpenTime {
			return fmt.Errorf("duplicate open time at index %d: %s",
				i, cur.OpenedAt().Format(time.RFC3339))
		}
		if cur.OpenTime < prev.OpenTime {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, cur.OpenedAt().Format(time.RFC3339), prev.OpenedAt().Format(time.RFC3339))
		}
		if cur.OpenTime <= prev.CloseTime {
			return fmt.Errorf("candle at index %d opens at %d before the previous candle closes at %d",
				i, cur.OpenTime, prev.CloseTime)
		}
	}
	return nil
}

// SortByOpenTime returns an ascending copy of data
func (f *DefaultDataFilter) SortByOpenTime(data []types.Candle) []types.Candle {
	sorted := make([]types.Candle, len(data))
	copy(sorted, data)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OpenTime < sorted[j].OpenTime
	})
	return sorted
}

// RemoveDuplicates drops candles sharing an open time, keeping the first occurrence
func (f *DefaultDataFilter) RemoveDuplicates(data []types.Candle) []types.Candle {
	if len(data) <= 1 {
		return data
	}

	filtered := make([]types.Candle, 0, len(data))
	seen := make(map[int64]bool, len(data))
	for _, candle := range data {
		if !seen[candle.OpenTime] {
			seen[candle.OpenTime] = true
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// Normalize sorts and de-duplicates data so it forms a valid series
func (f *DefaultDataFilter) Normalize(data []types.Candle) []types.Candle {
	return f.RemoveDuplicates(f.SortByOpenTime(data))
}
