package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Candle is a normalized kline. Times are unix milliseconds.
type Candle struct {
	OpenTime    int64   `json:"open_time"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	CloseTime   int64   `json:"close_time"`
	QuoteVolume float64 `json:"quote_asset_volume"`
	TradeCount  int64   `json:"number_of_trades"`
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// Contains reports whether price lies within [Low, High].
func (c Candle) Contains(price float64) bool {
	return c.Low <= price && price <= c.High
}

// OpenedAt returns the open time as a time.Time in UTC.
func (c Candle) OpenedAt() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// ClosedAt returns the close time as a time.Time in UTC.
func (c Candle) ClosedAt() time.Time {
	return time.UnixMilli(c.CloseTime).UTC()
}

// KlineSummary is a raw exchange kline with prices still in their string wire form.
type KlineSummary struct {
	OpenTime                 int64  `json:"open_time"`
	Open                     string `json:"open"`
	High                     string `json:"high"`
	Low                      string `json:"low"`
	Close                    string `json:"close"`
	Volume                   string `json:"volume"`
	CloseTime                int64  `json:"close_time"`
	QuoteAssetVolume         string `json:"quote_asset_volume"`
	NumberOfTrades           int64  `json:"number_of_trades"`
	TakerBuyBaseAssetVolume  string `json:"taker_buy_base_asset_volume"`
	TakerBuyQuoteAssetVolume string `json:"taker_buy_quote_asset_volume"`
}

// Normalize parses the summary into a Candle and rejects inconsistent price data.
func (k KlineSummary) Normalize() (Candle, error) {
	open, err := parsePrice("open", k.Open)
	if err != nil {
		return Candle{}, err
	}
	high, err := parsePrice("high", k.High)
	if err != nil {
		return Candle{}, err
	}
	low, err := parsePrice("low", k.Low)
	if err != nil {
		return Candle{}, err
	}
	closePrice, err := parsePrice("close", k.Close)
	if err != nil {
		return Candle{}, err
	}

	c := Candle{
		OpenTime:    k.OpenTime,
		Open:        open,
		High:        high,
		Low:         low,
		Close:       closePrice,
		Volume:      parseOptional(k.Volume),
		CloseTime:   k.CloseTime,
		QuoteVolume: parseOptional(k.QuoteAssetVolume),
		TradeCount:  k.NumberOfTrades,
	}
	if err := c.Validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

// Validate checks price ordering and the open/close time relation of a single candle.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("invalid candle at %d: prices must be finite", c.OpenTime)
		}
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("invalid candle at %d: prices must be positive", c.OpenTime)
	}
	if c.High < c.Low {
		return fmt.Errorf("invalid candle at %d: high (%.8f) below low (%.8f)", c.OpenTime, c.High, c.Low)
	}
	if c.High < c.Open || c.High < c.Close {
		return fmt.Errorf("invalid candle at %d: high (%.8f) must be >= open (%.8f) and close (%.8f)",
			c.OpenTime, c.High, c.Open, c.Close)
	}
	if c.Low > c.Open || c.Low > c.Close {
		return fmt.Errorf("invalid candle at %d: low (%.8f) must be <= open (%.8f) and close (%.8f)",
			c.OpenTime, c.Low, c.Open, c.Close)
	}
	if c.CloseTime < c.OpenTime {
		return fmt.Errorf("invalid candle at %d: close time %d precedes open time", c.OpenTime, c.CloseTime)
	}
	return nil
}

func parsePrice(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s price %q: %w", field, raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid %s price %q: not a finite number", field, raw)
	}
	return v, nil
}

// pass-through metadata is not used by detection, a bad value becomes zero
func parseOptional(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
