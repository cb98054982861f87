package factcheck

import (
	"context"
	"fmt"
	"time"

	domrepo "TradeGate/internal/domain/repository"
	domsvc "TradeGate/internal/domain/service"

	"TradeGate/internal/domain/models"
	icache "TradeGate/internal/service/cache"
	applogger "TradeGate/pkg/logger"
)

// Validator runs the two-layer fact check over the claims of a final
// structured output. The numeric hard-check always precedes the semantic
// entailment check and can short-circuit it: an entailment model is never
// allowed to average away a gross numeric lie.
type Validator struct {
	clf       domsvc.EntailmentClassifier // nil means permanently degraded
	cache     *icache.ValidationCache
	tolerance float64
	l         *applogger.Logger
	metrics   domrepo.Metrics
}

// NewValidator creates a validator with the given numeric tolerance.
func NewValidator(clf domsvc.EntailmentClassifier, cache *icache.ValidationCache, tolerance float64) *Validator {
	if tolerance <= 0 {
		tolerance = 0.10
	}
	return &Validator{clf: clf, cache: cache, tolerance: tolerance}
}

// SetLogger injects a structured logger.
func (v *Validator) SetLogger(l *applogger.Logger) { v.l = l }

// SetMetrics injects the metrics recorder.
func (v *Validator) SetMetrics(m domrepo.Metrics) { v.metrics = m }

// ValidateClaims validates the ordered claim list against ground truth for
// the evaluation date. Results are memoized per (claim_text, day); a cache
// hit performs zero classifier invocations.
func (v *Validator) ValidateClaims(ctx context.Context, claims []models.Claim, facts map[string]models.GroundTruthFact, asOf time.Time) models.FactReport {
	report := models.FactReport{AllValid: true}
	for _, claim := range claims {
		res := v.validateOne(ctx, claim, facts, asOf)
		report.Results = append(report.Results, res)
		if res.Verdict == models.VerdictContradiction {
			report.AllValid = false
		}
	}
	return report
}

func (v *Validator) validateOne(ctx context.Context, claim models.Claim, facts map[string]models.GroundTruthFact, asOf time.Time) models.ValidationResult {
	if v.cache != nil {
		if cached, ok := v.cache.Get(claim.Text, asOf); ok {
			if v.metrics != nil {
				v.metrics.RecordCacheLookup(true)
			}
			return cached
		}
		if v.metrics != nil {
			v.metrics.RecordCacheLookup(false)
		}
	}

	res := v.check(ctx, claim, facts)
	if v.cache != nil {
		v.cache.Put(claim.Text, asOf, res)
	}
	return res
}

func (v *Validator) check(ctx context.Context, claim models.Claim, facts map[string]models.GroundTruthFact) models.ValidationResult {
	// Layer 1: numeric hard-check.
	if nc, ok := ExtractNumeric(claim.Text); ok {
		if fact, found := ResolveMetric(claim.Text, facts); found {
			if d := Divergence(nc, fact); d >= 0 && d > v.tolerance {
				return models.ValidationResult{
					Claim:      claim,
					Verdict:    models.VerdictContradiction,
					Confidence: 1.0,
					Source:     models.SourceNumeric,
					Evidence: fmt.Sprintf("claimed %v against ground truth %s=%v (%s); relative divergence %.4f exceeds tolerance %.4f",
						nc.Signed(), fact.MetricName, fact.Value, fact.Unit, d, v.tolerance),
				}
			}
		}
		// Metric absent from the map: unverifiable numerically, downgrade
		// to the semantic layer only.
	}

	// Layer 2: semantic entailment, degraded to keyword matching when the
	// classifier is unavailable.
	if v.clf == nil {
		return keywordFallback(claim, facts)
	}
	verdict, confidence, err := v.clf.Classify(ctx, buildPremise(facts), claim.Text)
	if err != nil {
		if v.l != nil {
			v.l.Warn("fact validator degraded to keyword fallback", applogger.Error(err))
		}
		if v.metrics != nil {
			v.metrics.RecordFallback()
		}
		return keywordFallback(claim, facts)
	}
	return models.ValidationResult{
		Claim:      claim,
		Verdict:    verdict,
		Confidence: confidence,
		Source:     models.SourceSemantic,
		Evidence:   "nli classifier verdict against supplied ground truth",
	}
}
