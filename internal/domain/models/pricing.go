package models

import (
	"fmt"
	"time"
)

// Bar is a single OHLCV observation.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is a chronological OHLCV history for one asset.
// Treated as immutable once constructed.
type PriceSeries struct {
	AssetID string
	Bars    []Bar
}

// NewPriceSeries validates chronological ordering and returns the series.
func NewPriceSeries(assetID string, bars []Bar) (*PriceSeries, error) {
	for i := 1; i < len(bars); i++ {
		if !bars[i].Date.After(bars[i-1].Date) {
			return nil, fmt.Errorf("price series %s: bars out of order at index %d", assetID, i)
		}
	}
	return &PriceSeries{AssetID: assetID, Bars: bars}, nil
}

// Len returns the number of bars.
func (p *PriceSeries) Len() int { return len(p.Bars) }

// Closes returns the close column.
func (p *PriceSeries) Closes() []float64 {
	out := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		out[i] = b.Close
	}
	return out
}

// HighLowClose returns the high, low and close columns, used for ATR.
func (p *PriceSeries) HighLowClose() ([]float64, []float64, []float64) {
	h := make([]float64, len(p.Bars))
	l := make([]float64, len(p.Bars))
	c := make([]float64, len(p.Bars))
	for i, b := range p.Bars {
		h[i], l[i], c[i] = b.High, b.Low, b.Close
	}
	return h, l, c
}
