package data

import (
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// BinanceJSONProvider reads a JSON array of Binance klines. Each element is either an
// object keyed like types.KlineSummary or the raw REST array
// [open_time, open, high, low, close, volume, close_time, quote_volume, trades, ...].
type BinanceJSONProvider struct{}

// NewBinanceJSONProvider creates a new Binance kline JSON provider
func NewBinanceJSONProvider() *BinanceJSONProvider {
	return &BinanceJSONProvider{}
}

// GetName returns the name of the data provider
func (p *BinanceJSONProvider) GetName() string {
	return "Binance JSON Provider"
}

// LoadData loads candles from a kline JSON file
func (p *BinanceJSONProvider) LoadData(source string) ([]types.Candle, error) {
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	return ParseBinanceKlines(raw)
}

// ValidateData validates the integrity of loaded candles
func (p *BinanceJSONProvider) ValidateData(data []types.Candle) error {
	return validateCandles(data)
}

// ParseBinanceKlines decodes kline JSON. Unlike the CSV reader it rejects the whole
// document on the first malformed kline.
func ParseBinanceKlines(raw []byte) ([]types.Candle, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("kline file is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, fmt.Errorf("kline file must hold a JSON array, got %s", root.Type)
	}

	items := root.Array()
	candles := make([]types.Candle, 0, len(items))
	for i, item := range items {
		summary, err := klineSummary(item)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		candle, err := summary.Normalize()
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func klineSummary(item gjson.Result) (types.KlineSummary, error) {
	switch {
	case item.IsObject():
		if !item.Get("open_time").Exists() || !item.Get("close_time").Exists() {
			return types.KlineSummary{}, fmt.Errorf("missing open_time or close_time")
		}
		return types.KlineSummary{
			OpenTime:                 item.Get("open_time").Int(),
			Open:                     item.Get("open").String(),
			High:                     item.Get("high").String(),
			Low:                      item.Get("low").String(),
			Close:                    item.Get("close").String(),
			Volume:                   item.Get("volume").String(),
			CloseTime:                item.Get("close_time").Int(),
			QuoteAssetVolume:         item.Get("quote_asset_volume").String(),
			NumberOfTrades:           item.Get("number_of_trades").Int(),
			TakerBuyBaseAssetVolume:  item.Get("taker_buy_base_asset_volume").String(),
			TakerBuyQuoteAssetVolume: item.Get("taker_buy_quote_asset_volume").String(),
		}, nil

	case item.IsArray():
		fields := item.Array()
		if len(fields) < 7 {
			return types.KlineSummary{}, fmt.Errorf("expected at least 7 fields, got %d", len(fields))
		}
		summary := types.KlineSummary{
			OpenTime:  fields[0].Int(),
			Open:      fields[1].String(),
			High:      fields[2].String(),
			Low:       fields[3].String(),
			Close:     fields[4].String(),
			Volume:    fields[5].String(),
			CloseTime: fields[6].Int(),
		}
		if len(fields) > 8 {
			summary.QuoteAssetVolume = fields[7].String()
			summary.NumberOfTrades = fields[8].Int()
		}
		return summary, nil
	}
	return types.KlineSummary{}, fmt.Errorf("unexpected kline type %s", item.Type)
}
