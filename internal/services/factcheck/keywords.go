package factcheck

import (
	"fmt"
	"sort"
	"strings"

	"TradeGate/internal/domain/models"
)

const fallbackConfidence = 0.55

// keywordFallback is the degraded-mode semantic check used when the
// entailment classifier is unavailable: the claim's directional stems are
// compared against the sign of the relevant ground-truth fact.
func keywordFallback(claim models.Claim, facts map[string]models.GroundTruthFact) models.ValidationResult {
	res := models.ValidationResult{
		Claim:      claim,
		Verdict:    models.VerdictNeutral,
		Confidence: 0.30,
		Source:     models.SourceFallback,
		Evidence:   "entailment classifier unavailable; no directional signal in claim",
	}

	dir := DirectionOf(strings.ToLower(claim.Text))
	if dir == 0 {
		return res
	}
	fact, ok := ResolveMetric(claim.Text, facts)
	if !ok {
		res.Evidence = "entailment classifier unavailable; no matching ground-truth metric"
		return res
	}

	factDir := 1
	if fact.Value < 0 {
		factDir = -1
	}
	res.Confidence = fallbackConfidence
	if dir == factDir {
		res.Verdict = models.VerdictEntailment
		res.Evidence = fmt.Sprintf("keyword fallback: claim direction matches sign of %s=%v", fact.MetricName, fact.Value)
	} else {
		res.Verdict = models.VerdictContradiction
		res.Evidence = fmt.Sprintf("keyword fallback: claim direction contradicts sign of %s=%v", fact.MetricName, fact.Value)
	}
	return res
}

// buildPremise renders the ground-truth map as an NLI premise sentence.
func buildPremise(facts map[string]models.GroundTruthFact) string {
	if len(facts) == 0 {
		return "no reference financial facts are available"
	}
	names := make([]string, 0, len(facts))
	for name := range facts {
		names = append(names, name)
	}
	// Stable order so the same claim always presents the same premise.
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		f := facts[name]
		unit := f.Unit
		if unit == "" {
			unit = "abs"
		}
		parts = append(parts, fmt.Sprintf("%s is %v (%s)", strings.ReplaceAll(f.MetricName, "_", " "), f.Value, unit))
	}
	return strings.Join(parts, "; ")
}
