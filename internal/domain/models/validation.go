package models

import "time"

// Claim is a single extracted textual assertion from the agent's final output.
type Claim struct {
	Text string `json:"text"`
}

// GroundTruthFact is a caller-supplied reference value for one metric.
// Read-only input to validation.
type GroundTruthFact struct {
	MetricName string    `json:"metric_name"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	ScopeDate  time.Time `json:"scope_date"`
}

// Verdict is a natural-language-inference label.
type Verdict string

const (
	VerdictEntailment    Verdict = "ENTAILMENT"
	VerdictContradiction Verdict = "CONTRADICTION"
	VerdictNeutral       Verdict = "NEUTRAL"
)

// ValidationSource identifies which layer produced a verdict.
type ValidationSource string

const (
	SourceNumeric  ValidationSource = "NUMERIC"
	SourceSemantic ValidationSource = "SEMANTIC"
	SourceFallback ValidationSource = "FALLBACK"
)

// ValidationResult is the per-claim validation verdict.
type ValidationResult struct {
	Claim      Claim            `json:"claim"`
	Verdict    Verdict          `json:"verdict"`
	Confidence float64          `json:"confidence"`
	Evidence   string           `json:"evidence"`
	Source     ValidationSource `json:"source"`
}

// FactReport aggregates per-claim results for one evaluation.
type FactReport struct {
	Results  []ValidationResult `json:"results"`
	AllValid bool               `json:"all_valid"`
}

// Contradictions returns the results whose verdict is CONTRADICTION,
// retained for the audit trail.
func (r FactReport) Contradictions() []ValidationResult {
	var out []ValidationResult
	for _, res := range r.Results {
		if res.Verdict == VerdictContradiction {
			out = append(out, res)
		}
	}
	return out
}
