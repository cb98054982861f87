package models

import "time"

// Requests for the decision HTTP endpoints. Defined in domain for consistency and reuse.

// BarRequest mirrors Bar for transport.
type BarRequest struct {
	Date   time.Time `json:"date" validate:"required"`
	Open   float64   `json:"open" validate:"gt=0"`
	High   float64   `json:"high" validate:"gt=0"`
	Low    float64   `json:"low" validate:"gt=0"`
	Close  float64   `json:"close" validate:"gt=0"`
	Volume float64   `json:"volume" validate:"gte=0"`
}

// FactRequest mirrors GroundTruthFact for transport.
type FactRequest struct {
	MetricName string    `json:"metric_name" validate:"required"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	ScopeDate  time.Time `json:"scope_date"`
}

// LedgerRequest mirrors LedgerSnapshot for transport.
type LedgerRequest struct {
	Position           string  `json:"position" default:"FLAT" validate:"oneof=FLAT LONG SHORT"`
	AllocationFraction float64 `json:"allocation_fraction" validate:"gte=0,lte=1"`
	OpenHeat           float64 `json:"open_heat" validate:"gte=0,lte=1"`
	Equity             float64 `json:"equity" validate:"gte=0"`
	HighWaterMark      float64 `json:"high_water_mark" validate:"gte=0"`
}

// EvaluateRequest runs the full pipeline for one asset/date.
type EvaluateRequest struct {
	AssetID string        `json:"asset_id" validate:"required"`
	Date    time.Time     `json:"date" validate:"required"`
	Bars    []BarRequest   `json:"bars" validate:"required,min=2,max=10000,dive"`
	Facts   []FactRequest  `json:"facts" validate:"dive"`
	Ledger  *LedgerRequest `json:"ledger,omitempty" validate:"omitempty"`
}

// OutcomesRequest reads back stored outcomes.
type OutcomesRequest struct {
	AssetID string `query:"asset_id" json:"asset_id" validate:"required"`
	Limit   int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}
