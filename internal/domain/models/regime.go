package models

import "time"

// Regime is a discrete classification of current market behavior.
type Regime string

const (
	RegimeTrendingUp    Regime = "TRENDING_UP"
	RegimeTrendingDown  Regime = "TRENDING_DOWN"
	RegimeMeanReverting Regime = "MEAN_REVERTING"
	RegimeVolatile      Regime = "VOLATILE"
	RegimeSideways      Regime = "SIDEWAYS"
)

// RegimeClassification is the classifier output for one asset/date.
// Produced fresh per evaluation, never mutated.
type RegimeClassification struct {
	AssetID            string    `json:"asset_id"`
	AsOfDate           time.Time `json:"as_of_date"`
	Regime             Regime    `json:"regime"`
	Volatility         float64   `json:"volatility"`
	TrendStrength      float64   `json:"trend_strength"`
	MeanReversionScore float64   `json:"mean_reversion_score"`
}
