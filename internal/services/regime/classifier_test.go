package regime

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TradeGate/internal/domain/models"
)

// seriesFromReturns builds a price series from a deterministic sequence of
// simple returns, starting at 100.
func seriesFromReturns(t *testing.T, rets []float64) *models.PriceSeries {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	bars := []models.Bar{{Date: base, Open: price, High: price, Low: price, Close: price, Volume: 1000}}
	for i, r := range rets {
		price *= 1 + r
		bars = append(bars, models.Bar{
			Date: base.AddDate(0, 0, i+1),
			Open: price, High: price, Low: price, Close: price, Volume: 1000,
		})
	}
	s, err := models.NewPriceSeries("TEST", bars)
	require.NoError(t, err)
	return s
}

func repeat(pattern []float64, n int) []float64 {
	out := make([]float64, 0, n)
	for len(out) < n {
		out = append(out, pattern...)
	}
	return out[:n]
}

func TestShortSeriesIsInsufficientData(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	s := seriesFromReturns(t, repeat([]float64{0.001}, 40))

	_, err := c.Classify(s)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInsufficientData), "short history must never yield a best-guess regime")
}

func TestNilSeriesIsInsufficientData(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	_, err := c.Classify(nil)
	require.True(t, errors.Is(err, ErrInsufficientData))
}

func TestHighVolatilityOverridesTrend(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	// ~60% annualized: daily sigma around 0.60/sqrt(252) with an upward
	// drift that would otherwise read as a trend.
	sigma := 0.60 / math.Sqrt(252)
	s := seriesFromReturns(t, repeat([]float64{sigma * 1.7, -sigma * 1.2}, 120))

	cls, err := c.Classify(s)
	require.NoError(t, err)
	require.Equal(t, models.RegimeVolatile, cls.Regime)
	require.Greater(t, cls.Volatility, 0.40)
}

func TestSteadyDriftIsTrendingUp(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	s := seriesFromReturns(t, repeat([]float64{0.005}, 120))

	cls, err := c.Classify(s)
	require.NoError(t, err)
	require.Equal(t, models.RegimeTrendingUp, cls.Regime)
	require.Greater(t, cls.TrendStrength, 0.30)
}

func TestSteadyDeclineIsTrendingDown(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	s := seriesFromReturns(t, repeat([]float64{-0.005}, 120))

	cls, err := c.Classify(s)
	require.NoError(t, err)
	require.Equal(t, models.RegimeTrendingDown, cls.Regime)
}

func TestAlternatingReturnsAreMeanReverting(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	s := seriesFromReturns(t, repeat([]float64{0.005, -0.005}, 120))

	cls, err := c.Classify(s)
	require.NoError(t, err)
	require.Equal(t, models.RegimeMeanReverting, cls.Regime)
	require.Less(t, cls.MeanReversionScore, -0.25)
}

func TestQuietUncorrelatedMarketIsSideways(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	// Zero net move, zero lag-1 autocorrelation by construction.
	s := seriesFromReturns(t, repeat([]float64{0.002, 0.002, -0.002, -0.002}, 120))

	cls, err := c.Classify(s)
	require.NoError(t, err)
	require.Equal(t, models.RegimeSideways, cls.Regime)
}

func TestDeterministicReplay(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	s := seriesFromReturns(t, repeat([]float64{0.004, -0.003, 0.002}, 150))

	a, err := c.Classify(s)
	require.NoError(t, err)
	b, err := c.Classify(s)
	require.NoError(t, err)
	require.Equal(t, a, b)
}
