package indicators

import (
	"testing"
	"time"

	"github.com/rustyeddy/papertrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	got, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{2, 3, 4}, got, 1e-9)

	got, err = SMA([]float64{7}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{7}, got)

	_, err = SMA([]float64{1, 2}, 3)
	assert.Error(t, err)
	_, err = SMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestEMA(t *testing.T) {
	got, err := EMA([]float64{2, 4, 6, 8}, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 4.0, got[0], 1e-9)
	// 4 + (8-4)*0.5
	assert.InDelta(t, 6.0, got[1], 1e-9)

	_, err = EMA(nil, 3)
	assert.Error(t, err)
}

func TestSimpleMAStreaming(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []market.Candle{
		{Close: 102, Time: base},
		{Close: 105, Time: base.AddDate(0, 0, 1)},
		{Close: 106, Time: base.AddDate(0, 0, 2)},
		{Close: 108, Time: base.AddDate(0, 0, 3)},
	}

	ma := NewMA(3)
	assert.Equal(t, "MA(3)", ma.Name())
	assert.Equal(t, 3, ma.Warmup())
	assert.False(t, ma.Ready())
	assert.Equal(t, 0.0, ma.Value())

	ma.Update(candles[0])
	ma.Update(candles[1])
	assert.False(t, ma.Ready())

	ma.Update(candles[2])
	assert.True(t, ma.Ready())
	assert.InDelta(t, (102.0+105.0+106.0)/3.0, ma.Value(), 0.001)

	ma.Update(candles[3])
	assert.InDelta(t, (105.0+106.0+108.0)/3.0, ma.Value(), 0.001)

	ma.Reset()
	assert.False(t, ma.Ready())
	assert.Equal(t, 0.0, ma.Value())
}

func TestExponentialMAStreaming(t *testing.T) {
	ema := NewEMA(2)
	assert.Equal(t, "EMA(2)", ema.Name())

	ema.Update(market.Candle{Close: 10})
	assert.False(t, ema.Ready())
	ema.Update(market.Candle{Close: 20})
	assert.True(t, ema.Ready())
	assert.InDelta(t, 15.0, ema.Value(), 1e-9)

	// multiplier 2/3
	ema.Update(market.Candle{Close: 30})
	assert.InDelta(t, 25.0, ema.Value(), 1e-9)

	ema.Reset()
	assert.False(t, ema.Ready())
}

func TestStreamingMatchesBatch(t *testing.T) {
	closes := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	batch, err := SMA(closes, 4)
	require.NoError(t, err)

	ma := NewMA(4)
	var stream []float64
	for _, c := range closes {
		ma.Update(market.Candle{Close: c})
		if ma.Ready() {
			stream = append(stream, ma.Value())
		}
	}
	assert.InDeltaSlice(t, batch, stream, 1e-9)
}
