package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/tidwall/gjson"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval3m  KlineInterval = "3"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval2h  KlineInterval = "120"
	Interval4h  KlineInterval = "240"
	Interval6h  KlineInterval = "360"
	Interval12h KlineInterval = "720"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
	Interval1M  KlineInterval = "M"
)

// MaxKlinesPerRequest is the page size limit of the kline endpoint
const MaxKlinesPerRequest = 1000

// ParseInterval accepts both Bybit codes ("5", "60", "D") and the usual short
// forms ("5m", "1h", "1d").
func ParseInterval(s string) (KlineInterval, error) {
	s = strings.TrimSpace(s)
	if s == "M" || s == "1M" {
		return Interval1M, nil
	}

	switch iv := KlineInterval(strings.ToUpper(s)); iv {
	case Interval1m, Interval3m, Interval5m, Interval15m, Interval30m,
		Interval1h, Interval2h, Interval4h, Interval6h, Interval12h, Interval1d, Interval1w:
		return iv, nil
	}

	short := map[string]KlineInterval{
		"1m": Interval1m, "3m": Interval3m, "5m": Interval5m, "15m": Interval15m, "30m": Interval30m,
		"1h": Interval1h, "2h": Interval2h, "4h": Interval4h, "6h": Interval6h, "12h": Interval12h,
		"1d": Interval1d, "1w": Interval1w,
	}
	if iv, ok := short[strings.ToLower(s)]; ok {
		return iv, nil
	}
	return "", fmt.Errorf("unsupported kline interval %q", s)
}

// Duration returns the length of one kline. Monthly klines have no fixed length and return 0.
func (i KlineInterval) Duration() time.Duration {
	switch i {
	case Interval1d:
		return 24 * time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	case Interval1M:
		return 0
	}
	minutes, err := strconv.Atoi(string(i))
	if err != nil {
		return 0
	}
	return time.Duration(minutes) * time.Minute
}

// CloseTime returns the close time in milliseconds of the kline opened at openTime.
// The close is the last millisecond before the next kline opens.
func (i KlineInterval) CloseTime(openTime int64) int64 {
	if i == Interval1M {
		return time.UnixMilli(openTime).UTC().AddDate(0, 1, 0).UnixMilli() - 1
	}
	return openTime + i.Duration().Milliseconds() - 1
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Category string        // "spot", "linear", "inverse"
	Symbol   string        // Trading pair symbol (e.g., "BTCUSDT")
	Interval KlineInterval // Time interval
	Start    *time.Time    // Start time (optional)
	End      *time.Time    // End time (optional)
	Limit    int           // Number of records to return (max 1000, default 200)
}

// GetKlines fetches one page of klines, oldest first
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]types.Candle, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > MaxKlinesPerRequest {
		params.Limit = MaxKlinesPerRequest
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	var candles []types.Candle
	err := c.RetryWithConfig(ctx, func() error {
		if err := c.waitForSlot(ctx); err != nil {
			return err
		}
		result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
		if err != nil {
			return fmt.Errorf("failed to get klines: %w", err)
		}
		candles, err = c.parseKlineResponse(result, params.Interval)
		return err
	}, c.retry)
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// GetKlineRange downloads every kline between start and end, paging backwards from end
// until start is reached. The result is ascending and free of duplicates.
func (c *Client) GetKlineRange(ctx context.Context, params KlineParams, start, end time.Time) ([]types.Candle, error) {
	return collectRange(ctx, c.GetKlines, params, start, end)
}

type pageFunc func(ctx context.Context, params KlineParams) ([]types.Candle, error)

func collectRange(ctx context.Context, fetch pageFunc, params KlineParams, start, end time.Time) ([]types.Candle, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("invalid range: end %s is not after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	params.Limit = MaxKlinesPerRequest
	params.Start = &start

	byOpen := make(map[int64]types.Candle)
	cursor := end
	for page := 1; ; page++ {
		pageEnd := cursor
		params.End = &pageEnd

		candles, err := fetch(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("page %d ending %s: %w", page, pageEnd.Format(time.RFC3339), err)
		}
		if len(candles) == 0 {
			break
		}

		oldest := candles[0].OpenTime
		for _, candle := range candles {
			if candle.OpenTime < start.UnixMilli() || candle.OpenTime > end.UnixMilli() {
				continue
			}
			byOpen[candle.OpenTime] = candle
			if candle.OpenTime < oldest {
				oldest = candle.OpenTime
			}
		}
		log.Printf("📥 %s %s: page %d, %d klines back to %s", params.Symbol, params.Interval,
			page, len(byOpen), time.UnixMilli(oldest).UTC().Format(time.RFC3339))

		if len(candles) < params.Limit || oldest <= start.UnixMilli() {
			break
		}
		next := time.UnixMilli(oldest - 1)
		if !next.Before(cursor) {
			break
		}
		cursor = next
	}

	result := make([]types.Candle, 0, len(byOpen))
	for _, candle := range byOpen {
		result = append(result, candle)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].OpenTime < result[j].OpenTime
	})
	return result, nil
}

// parseKlineResponse parses the API response into candles
func (c *Client) parseKlineResponse(response interface{}, interval KlineInterval) ([]types.Candle, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type %T", response)
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return ParseKlineList(resultBytes, interval)
}

// ParseKlineList decodes the result object of the kline endpoint. Bybit lists klines
// newest first as [startTime, open, high, low, close, volume, turnover]; the candles
// are returned oldest first.
func ParseKlineList(result []byte, interval KlineInterval) ([]types.Candle, error) {
	if !gjson.ValidBytes(result) {
		return nil, fmt.Errorf("kline result is not valid JSON")
	}
	list := gjson.GetBytes(result, "list")
	if !list.IsArray() {
		return nil, fmt.Errorf("kline result has no list")
	}

	var candles []types.Candle
	var parseErr error
	list.ForEach(func(_, item gjson.Result) bool {
		fields := item.Array()
		if len(fields) < 7 {
			return true
		}
		openTime := fields[0].Int()
		summary := types.KlineSummary{
			OpenTime:         openTime,
			Open:             fields[1].String(),
			High:             fields[2].String(),
			Low:              fields[3].String(),
			Close:            fields[4].String(),
			Volume:           fields[5].String(),
			QuoteAssetVolume: fields[6].String(),
			CloseTime:        interval.CloseTime(openTime),
		}
		candle, err := summary.Normalize()
		if err != nil {
			parseErr = err
			return false
		}
		candles = append(candles, candle)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
	return candles, nil
}
