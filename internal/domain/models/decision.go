package models

import "time"

// Action is the trading action carried by proposals and outcomes.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// ReasonCode is the terminal outcome classification. Every rejection carries
// one specific code; APPROVED is the only success code.
type ReasonCode string

const (
	ReasonApproved          ReasonCode = "APPROVED"
	ReasonSchemaInvalid     ReasonCode = "SCHEMA_INVALID"
	ReasonFactCheckFailed   ReasonCode = "FACT_CHECK_FAILED"
	ReasonInvalidTransition ReasonCode = "INVALID_POSITION_TRANSITION"
	ReasonRiskLimitExceeded ReasonCode = "RISK_LIMIT_EXCEEDED"
	ReasonCircuitBreaker    ReasonCode = "CIRCUIT_BREAKER"
	ReasonInsufficientData  ReasonCode = "INSUFFICIENT_DATA"
)

// ParsedFields is the structured contract expected from the generating agent.
// Validation tags drive the schema gate.
type ParsedFields struct {
	Action       Action   `json:"action" validate:"required,oneof=BUY SELL HOLD"`
	Confidence   float64  `json:"confidence" validate:"gte=0,lte=1" default:"0.5"`
	KeyClaims    []string `json:"key_claims" validate:"required,min=1,max=16,dive,min=1"`
	RiskFraction float64  `json:"risk_fraction" validate:"gte=0,lte=1"`
}

// AgentOutputEnvelope wraps one agent response attempt. Only the schema gate
// mutates it: RetryCount increments, everything else is replaced wholesale
// on each regeneration.
type AgentOutputEnvelope struct {
	RawText     string       `json:"raw_text"`
	Parsed      ParsedFields `json:"parsed"`
	SchemaValid bool         `json:"schema_valid"`
	RetryCount  int          `json:"retry_count"`
}

// Claims returns the envelope's key claims as validation inputs.
func (e *AgentOutputEnvelope) Claims() []Claim {
	out := make([]Claim, 0, len(e.Parsed.KeyClaims))
	for _, text := range e.Parsed.KeyClaims {
		out = append(out, Claim{Text: text})
	}
	return out
}

// TradeProposal is a schema-valid candidate decision entering the risk gate.
type TradeProposal struct {
	AssetID              string    `json:"asset_id"`
	Date                 time.Time `json:"date"`
	Action               Action    `json:"action"`
	ProposedRiskFraction float64   `json:"proposed_risk_fraction"`
	SupportingClaims     []Claim   `json:"supporting_claims"`
	Regime               Regime    `json:"regime"`
}

// Position is the ledger-reported position state for one asset.
type Position string

const (
	PositionFlat  Position = "FLAT"
	PositionLong  Position = "LONG"
	PositionShort Position = "SHORT"
)

// LedgerSnapshot is a point-in-time, read-only view of the portfolio ledger
// as the risk gate consumes it.
type LedgerSnapshot struct {
	Position           Position `json:"position"`
	AllocationFraction float64  `json:"allocation_fraction"`
	OpenHeat           float64  `json:"open_heat"`
	Equity             float64  `json:"equity"`
	HighWaterMark      float64  `json:"high_water_mark"`
}

// Drawdown returns the trailing drawdown from the high-water mark.
func (s LedgerSnapshot) Drawdown() float64 {
	if s.HighWaterMark <= 0 {
		return 0
	}
	dd := (s.HighWaterMark - s.Equity) / s.HighWaterMark
	if dd < 0 {
		return 0
	}
	return dd
}

// RiskDecision is the risk gate verdict on a proposal.
type RiskDecision struct {
	Approved             bool       `json:"approved"`
	AdjustedRiskFraction float64    `json:"adjusted_risk_fraction"`
	RejectionReason      ReasonCode `json:"rejection_reason,omitempty"`
	Detail               string     `json:"detail,omitempty"`
}

// StageTiming records elapsed time for one pipeline stage.
type StageTiming struct {
	Stage   string        `json:"stage"`
	Elapsed time.Duration `json:"elapsed"`
}

// AuditTrail accumulates everything a terminal outcome must explain.
type AuditTrail struct {
	EvaluationID   string                `json:"evaluation_id"`
	Regime         *RegimeClassification `json:"regime,omitempty"`
	RetryCount     int                   `json:"retry_count"`
	SchemaErrors   []string              `json:"schema_errors,omitempty"`
	Contradictions []ValidationResult    `json:"contradictions,omitempty"`
	RiskDetail     string                `json:"risk_detail,omitempty"`
	Stages         []StageTiming         `json:"stages"`
}

// PipelineOutcome is the single terminal record returned to the caller.
// Always fully populated; there is no missing-decision representation.
type PipelineOutcome struct {
	AssetID      string     `json:"asset_id"`
	Date         time.Time  `json:"date"`
	Action       Action     `json:"action"`
	RiskFraction float64    `json:"risk_fraction"`
	ReasonCode   ReasonCode `json:"reason_code"`
	AuditTrail   AuditTrail `json:"audit_trail"`
}

// Approved reports whether the outcome cleared every gate.
func (o PipelineOutcome) Approved() bool { return o.ReasonCode == ReasonApproved }
