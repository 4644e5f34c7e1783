package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandle_Direction(t *testing.T) {
	up := Candle{Open: 10, Close: 11, High: 11.5, Low: 9.5}
	down := Candle{Open: 11, Close: 10, High: 11.5, Low: 9.5}
	flat := Candle{Open: 10, Close: 10, High: 10.5, Low: 9.5}

	assert.True(t, up.IsBullish())
	assert.False(t, up.IsBearish())
	assert.True(t, down.IsBearish())
	assert.False(t, down.IsBullish())
	assert.False(t, flat.IsBullish())
	assert.False(t, flat.IsBearish())
}

func TestCandle_Contains(t *testing.T) {
	c := Candle{Open: 10, Close: 11, High: 12, Low: 9}

	assert.True(t, c.Contains(9), "low bound is inclusive")
	assert.True(t, c.Contains(12), "high bound is inclusive")
	assert.True(t, c.Contains(10.5))
	assert.False(t, c.Contains(8.99))
	assert.False(t, c.Contains(12.01))
}

func TestCandle_ValidateRejectsNonFinite(t *testing.T) {
	tests := []struct {
		name string
		c    Candle
	}{
		{"NaN open", Candle{Open: math.NaN(), High: 2, Low: 1, Close: 1.5}},
		{"NaN everywhere", Candle{Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: math.NaN()}},
		{"infinite high", Candle{Open: 1.5, High: math.Inf(1), Low: 1, Close: 1.5}},
		{"infinite close", Candle{Open: 1.5, High: math.Inf(1), Low: 1, Close: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.c.Validate())
		})
	}
}

func TestKlineSummary_Normalize(t *testing.T) {
	k := KlineSummary{
		OpenTime:         1000,
		Open:             "100.5",
		High:             "101",
		Low:              "99.75",
		Close:            "100",
		Volume:           "12.5",
		CloseTime:        1999,
		QuoteAssetVolume: "",
		NumberOfTrades:   42,
	}

	c, err := k.Normalize()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), c.OpenTime)
	assert.Equal(t, int64(1999), c.CloseTime)
	assert.Equal(t, 100.5, c.Open)
	assert.Equal(t, 101.0, c.High)
	assert.Equal(t, 99.75, c.Low)
	assert.Equal(t, 100.0, c.Close)
	assert.Equal(t, 12.5, c.Volume)
	assert.Equal(t, 0.0, c.QuoteVolume)
	assert.Equal(t, int64(42), c.TradeCount)
}

func TestKlineSummary_NormalizeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		k    KlineSummary
	}{
		{"unparseable open", KlineSummary{Open: "abc", High: "2", Low: "1", Close: "1.5"}},
		{"missing close", KlineSummary{Open: "1.5", High: "2", Low: "1", Close: ""}},
		{"high below low", KlineSummary{Open: "1.5", High: "1", Low: "2", Close: "1.5"}},
		{"close above high", KlineSummary{Open: "1.5", High: "2", Low: "1", Close: "3"}},
		{"negative price", KlineSummary{Open: "-1", High: "2", Low: "1", Close: "1.5"}},
		{"close before open time", KlineSummary{OpenTime: 10, CloseTime: 5, Open: "1.5", High: "2", Low: "1", Close: "1.5"}},
		{"NaN prices", KlineSummary{Open: "NaN", High: "NaN", Low: "NaN", Close: "NaN"}},
		{"lowercase nan close", KlineSummary{Open: "1.5", High: "2", Low: "1", Close: "nan"}},
		{"infinite high", KlineSummary{Open: "1.5", High: "Inf", Low: "1", Close: "1.5"}},
		{"negative infinite low", KlineSummary{Open: "1.5", High: "2", Low: "-Inf", Close: "1.5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.k.Normalize()
			assert.Error(t, err)
		})
	}
}
