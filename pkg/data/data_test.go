package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/pattern-backtester/internal/exchange/bybit"
	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

func series(n int) []types.Candle {
	out := make([]types.Candle, n)
	for i := range out {
		open := int64(i) * 60_000
		price := 100 + float64(i)
		out[i] = types.Candle{
			OpenTime: open, CloseTime: open + 59_999,
			Open: price, High: price + 2, Low: price - 1, Close: price + 1,
			Volume: 10, QuoteVolume: 1000, TradeCount: 7,
		}
	}
	return out
}

func TestCSV_RoundTripThroughWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bybit", "linear", "BTCUSDT", "1", CandleFileName)
	want := series(5)
	require.NoError(t, WriteCandlesCSV(path, want))

	got, err := NewCSVProvider().LoadData(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCSV_DateFormatDerivesCloseTimes(t *testing.T) {
	in := `timestamp,open,high,low,close,volume
2024-01-01 00:00:00,100,101,99,100.5,1
2024-01-01 00:05:00,100.5,102,100,101,1
2024-01-01 00:15:00,101,103,100.5,102,1
`
	got, err := NewCSVProvider().Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 3)

	open := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	assert.Equal(t, open, got[0].OpenTime)
	// the gap between the second and third candle must not stretch the second one
	assert.Equal(t, open+5*60_000-1, got[0].CloseTime)
	assert.Equal(t, got[1].OpenTime+5*60_000-1, got[1].CloseTime)
}

func TestCSV_BybitFormatDetected(t *testing.T) {
	in := "timestamp,open,high,low,close,volume,turnover\n2024-01-01 00:00:00,1,2,0.5,1.5,3,4.5\n"
	got, err := NewCSVProvider().Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4.5, got[0].QuoteVolume)
	assert.Equal(t, got[0].OpenTime, got[0].CloseTime, "a single candle has no derivable length")
}

func TestCSV_SkipsNonFiniteRows(t *testing.T) {
	in := `open_time,open,high,low,close,volume,close_time
0,100,101,99,100.5,1,59999
60000,NaN,NaN,NaN,NaN,1,119999
120000,100.5,Inf,100,101,1,179999
180000,101,103,-inf,102,1,239999
240000,101,102,100,101.5,1,299999
`
	got, err := NewCSVProvider().Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(0), got[0].OpenTime)
	assert.Equal(t, int64(240000), got[1].OpenTime)
}

func TestCSV_SkipsMalformedRows(t *testing.T) {
	in := `open_time,open,high,low,close,volume,close_time
0,10,11,9,10,1,59999
60000,abc,11,9,10,1,119999
120000,10,9,11,10,1,179999
180000,10,11
240000,10,11,9,10,1,299999
`
	got, err := NewCSVProvider().Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(240_000), got[1].OpenTime)
}

func TestCSV_Errors(t *testing.T) {
	_, err := NewCSVProvider().Read(strings.NewReader(""))
	assert.Error(t, err)

	_, err = NewCSVProvider().LoadData(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "missing files must not fall back to generated data")
}

func TestCSV_FixedFormat(t *testing.T) {
	p := NewCSVProviderWithFormat(CandleCSVFormat)
	got, err := p.Read(strings.NewReader("whatever\n0,10,11,9,10,1,59999\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestDetectCSVFormat(t *testing.T) {
	assert.Equal(t, CandleCSVFormat, DetectCSVFormat(CandleCSVHeader))
	assert.Equal(t, CandleCSVFormat, DetectCSVFormat([]string{"\ufeffopen_time", "open"}))
	assert.Equal(t, BybitCSVFormat, DetectCSVFormat([]string{"timestamp", "open", "high", "low", "close", "volume", "turnover"}))
	assert.Equal(t, DefaultCSVFormat, DetectCSVFormat([]string{"timestamp", "open"}))
	assert.Equal(t, DefaultCSVFormat, DetectCSVFormat(nil))
}

func TestValidateData(t *testing.T) {
	p := NewCSVProvider()
	assert.NoError(t, p.ValidateData(series(3)))
	assert.Error(t, p.ValidateData(nil))

	bad := series(3)
	bad[1].High = bad[1].Low - 1
	assert.Error(t, p.ValidateData(bad))

	overlapping := series(3)
	overlapping[1].CloseTime = overlapping[2].OpenTime
	assert.Error(t, p.ValidateData(overlapping))
}

func TestBinanceJSON_ObjectForm(t *testing.T) {
	raw := []byte(`[
		{"open_time":0,"open":"10","high":"11","low":"9","close":"10.5","volume":"3","close_time":59999,
		 "quote_asset_volume":"30","number_of_trades":4,"taker_buy_base_asset_volume":"1","taker_buy_quote_asset_volume":"10"},
		{"open_time":60000,"open":10.5,"high":12,"low":10,"close":11,"volume":2,"close_time":119999}
	]`)
	got, err := ParseBinanceKlines(raw)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(59_999), got[0].CloseTime)
	assert.Equal(t, 30.0, got[0].QuoteVolume)
	assert.Equal(t, int64(4), got[0].TradeCount)
	assert.Equal(t, 12.0, got[1].High)
}

func TestBinanceJSON_ArrayForm(t *testing.T) {
	raw := []byte(`[[0,"10","11","9","10.5","3",59999,"30",4,"1","10","0"]]`)
	got, err := ParseBinanceKlines(raw)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10.5, got[0].Close)
	assert.Equal(t, int64(4), got[0].TradeCount)
}

func TestBinanceJSON_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":        `{{`,
		"not an array":    `{"open_time":0}`,
		"missing times":   `[{"open":"1","high":"1","low":"1","close":"1"}]`,
		"short array":     `[[0,"1","1"]]`,
		"bad price":       `[[0,"x","1","1","1","1",59999]]`,
		"high below low":  `[[0,"1","1","2","1","1",59999]]`,
		"unexpected type": `[42]`,
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBinanceKlines([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestBinanceJSON_LoadData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "klines.json")
	require.NoError(t, os.WriteFile(path, []byte(`[[0,"10","11","9","10.5","3",59999]]`), 0o644))

	got, err := NewBinanceJSONProvider().LoadData(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type countingProvider struct {
	calls int
	data  []types.Candle
}

func (p *countingProvider) LoadData(string) ([]types.Candle, error) {
	p.calls++
	return p.data, nil
}
func (p *countingProvider) ValidateData([]types.Candle) error { return nil }
func (p *countingProvider) GetName() string                   { return "counting" }

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{data: series(2)}
	p := NewCachedProvider(inner)

	first, err := p.LoadData("a")
	require.NoError(t, err)
	first[0].Close = -1

	second, err := p.LoadData("a")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.NotEqual(t, -1.0, second[0].Close, "cache must hand out copies")
	assert.Equal(t, 1, p.GetCacheSize())
	assert.Equal(t, "Cached counting", p.GetName())

	p.ClearCache()
	_, err = p.LoadData("a")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProvider_ReloadsRewrittenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), CandleFileName)
	require.NoError(t, WriteCandlesCSV(path, series(2)))

	p := NewCachedProvider(NewCSVProvider())
	first, err := p.LoadData(path)
	require.NoError(t, err)
	require.Len(t, first, 2)

	require.NoError(t, WriteCandlesCSV(path, series(5)))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := p.LoadData(path)
	require.NoError(t, err)
	assert.Len(t, second, 5)
}

func TestMemoryCache_Eviction(t *testing.T) {
	c := NewMemoryCache(2)
	c.Set("a", series(1))
	c.Set("b", series(1))
	c.Set("c", series(1))

	assert.Equal(t, 2, c.Size())
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestFilters(t *testing.T) {
	f := NewDefaultDataFilter()
	data := series(10)

	last3 := f.FilterByPeriod(data, 2*time.Minute)
	require.Len(t, last3, 3)
	assert.Equal(t, data[7], last3[0])
	assert.Equal(t, data, f.FilterByPeriod(data, 0))

	ranged := f.FilterByDateRange(data, time.UnixMilli(2*60_000), time.UnixMilli(4*60_000))
	require.Len(t, ranged, 3)
	assert.Equal(t, data[2], ranged[0])

	shuffled := []types.Candle{data[2], data[0], data[1], data[0]}
	normalized := f.Normalize(shuffled)
	assert.Equal(t, data[:3], normalized)
	assert.NoError(t, f.ValidateTimeSequence(normalized))
	assert.Error(t, f.ValidateTimeSequence(shuffled))
}

func TestFileLocator(t *testing.T) {
	l := NewDefaultFileLocator()
	assert.Equal(t, "5", l.ConvertIntervalToMinutes("5m"))
	assert.Equal(t, "240", l.ConvertIntervalToMinutes("4h"))
	assert.Equal(t, "1440", l.ConvertIntervalToMinutes("1d"))
	assert.Equal(t, "15", l.ConvertIntervalToMinutes("15"))
	assert.Equal(t, "x", l.ConvertIntervalToMinutes("x"))

	root := t.TempDir()
	assert.Empty(t, l.FindDataFile(root, "bybit", "btcusdt", "5m"))

	path := l.CandlePath(root, "Bybit", "linear", "btcusdt", "5m")
	assert.Equal(t, filepath.Join(root, "bybit", "linear", "BTCUSDT", "5", CandleFileName), path)
	require.NoError(t, WriteCandlesCSV(path, series(1)))
	assert.Equal(t, path, l.FindDataFile(root, "bybit", "btcusdt", "5m"))
}

func TestDataManager_LoadHistoricalData(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "candles.csv")
	data := series(4)
	require.NoError(t, WriteCandlesCSV(csvPath, []types.Candle{data[3], data[1], data[0], data[2], data[1]}))

	dm := NewDataManager()
	got, err := dm.LoadHistoricalData(csvPath)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	jsonPath := filepath.Join(dir, "klines.JSON")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[[0,"10","11","9","10.5","3",59999]]`), 0o644))
	got, err = dm.LoadHistoricalData(jsonPath)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestParseTrailingPeriod(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"30days", 30 * 24 * time.Hour, true},
		{"168h", 168 * time.Hour, true},
		{"0d", 0, false},
		{"d", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTrailingPeriod(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

type fakeRangeClient struct {
	params bybit.KlineParams
	data   []types.Candle
	err    error
}

func (f *fakeRangeClient) GetKlineRange(_ context.Context, params bybit.KlineParams, _, _ time.Time) ([]types.Candle, error) {
	f.params = params
	return f.data, f.err
}

func TestBybitProvider(t *testing.T) {
	client := &fakeRangeClient{data: series(3)}
	p := NewBybitProvider(client, "", bybit.Interval1m, time.UnixMilli(0), time.UnixMilli(180_000))

	got, err := p.LoadData(" btcusdt ")
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, "BTCUSDT", client.params.Symbol)
	assert.Equal(t, "linear", client.params.Category)
	assert.Equal(t, "Bybit linear", p.GetName())
	assert.NoError(t, p.ValidateData(got))

	_, err = p.LoadData("")
	assert.Error(t, err)

	client.data = nil
	_, err = p.LoadData("BTCUSDT")
	assert.Error(t, err)

	client.err = errors.New("boom")
	_, err = p.LoadData("BTCUSDT")
	assert.ErrorContains(t, err, "boom")
}
