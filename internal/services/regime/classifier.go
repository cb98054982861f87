package regime

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"TradeGate/internal/domain/models"
)

// ErrInsufficientData is returned when the price history is shorter than the
// configured lookback. Fatal to the evaluation: an unclassified regime is
// never treated as safe.
var ErrInsufficientData = errors.New("regime: insufficient price history")

const barsPerYear = 252.0

// Thresholds configure the classification cut-offs.
type Thresholds struct {
	MinLookbackBars int
	Volatility      float64
	TrendStrength   float64
	MeanReversion   float64
}

// DefaultThresholds returns the documented defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinLookbackBars: 80,
		Volatility:      0.40,
		TrendStrength:   0.30,
		MeanReversion:   0.25,
	}
}

// Classifier is a pure function over a price series. No randomness, no I/O;
// the same series always yields the same classification.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a classifier with the given thresholds.
func NewClassifier(th Thresholds) *Classifier {
	if th.MinLookbackBars <= 1 {
		th = DefaultThresholds()
	}
	return &Classifier{th: th}
}

// Classify computes volatility, trend strength and mean-reversion score over
// the trailing lookback window and applies the precedence rules:
// VOLATILE overrides trend, trend overrides mean reversion, SIDEWAYS is the
// residual class.
func (c *Classifier) Classify(series *models.PriceSeries) (models.RegimeClassification, error) {
	lookback := c.th.MinLookbackBars
	if series == nil || series.Len() < lookback+1 {
		n := 0
		if series != nil {
			n = series.Len()
		}
		return models.RegimeClassification{}, fmt.Errorf("%w: have %d bars, need %d", ErrInsufficientData, n, lookback+1)
	}

	closes := series.Closes()
	window := closes[len(closes)-lookback-1:]
	rets := logReturns(window)

	vol := annualizedVolatility(rets)
	trend := trendStrength(window)
	meanRev := lag1Autocorrelation(rets)
	trailing := window[len(window)-1]/window[0] - 1

	cls := models.RegimeClassification{
		AssetID:            series.AssetID,
		AsOfDate:           series.Bars[series.Len()-1].Date,
		Volatility:         vol,
		TrendStrength:      trend,
		MeanReversionScore: meanRev,
	}

	switch {
	case vol >= c.th.Volatility:
		// A trending but violently volatile market is dangerous, not
		// tradeable-on-trend.
		cls.Regime = models.RegimeVolatile
	case trend >= c.th.TrendStrength && trailing > 0:
		cls.Regime = models.RegimeTrendingUp
	case trend >= c.th.TrendStrength && trailing < 0:
		cls.Regime = models.RegimeTrendingDown
	case meanRev <= -c.th.MeanReversion:
		cls.Regime = models.RegimeMeanReverting
	default:
		cls.Regime = models.RegimeSideways
	}

	return cls, nil
}

// logReturns computes r_t = ln(C_t / C_{t-1}) over the window.
func logReturns(closes []float64) []float64 {
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev, cur := closes[i-1], closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// annualizedVolatility is the sample standard deviation of log returns
// scaled by the square root of bars per year.
func annualizedVolatility(rets []float64) float64 {
	if len(rets) < 2 {
		return 0
	}
	return stat.StdDev(rets, nil) * math.Sqrt(barsPerYear)
}

// trendStrength is |net move| / gross move over the window, a
// directional-movement style ratio in [0, 1].
func trendStrength(closes []float64) float64 {
	var net, gross float64
	for i := 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		net += d
		gross += math.Abs(d)
	}
	if gross == 0 {
		return 0
	}
	return math.Abs(net) / gross
}

// lag1Autocorrelation of returns; strongly negative values indicate
// mean-reverting behavior.
func lag1Autocorrelation(rets []float64) float64 {
	if len(rets) < 3 {
		return 0
	}
	x := rets[:len(rets)-1]
	y := rets[1:]
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}
