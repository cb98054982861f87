package factcheck

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TradeGate/internal/domain/models"
	icache "TradeGate/internal/service/cache"
)

type stubClassifier struct {
	verdict    models.Verdict
	confidence float64
	err        error
	calls      int
}

func (s *stubClassifier) Classify(_ context.Context, _, _ string) (models.Verdict, float64, error) {
	s.calls++
	if s.err != nil {
		return "", 0, s.err
	}
	return s.verdict, s.confidence, nil
}

func growthFacts() map[string]models.GroundTruthFact {
	return map[string]models.GroundTruthFact{
		"revenue_growth_yoy": {MetricName: "revenue_growth_yoy", Value: 0.08, ScopeDate: asOf},
	}
}

var asOf = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func TestGrossNumericLieIsContradiction(t *testing.T) {
	clf := &stubClassifier{verdict: models.VerdictEntailment, confidence: 0.99}
	v := NewValidator(clf, icache.NewValidationCache(16), 0.10)

	report := v.ValidateClaims(context.Background(),
		[]models.Claim{{Text: "Revenue grew 500%"}}, growthFacts(), asOf)

	require.False(t, report.AllValid)
	res := report.Results[0]
	require.Equal(t, models.VerdictContradiction, res.Verdict)
	require.Equal(t, models.SourceNumeric, res.Source)
	require.Contains(t, res.Evidence, "revenue_growth_yoy")
	// The numeric layer short-circuits: the entailment model is never asked.
	require.Zero(t, clf.calls)
}

func TestNumericContradictionIndependentOfClassifier(t *testing.T) {
	// Same claim, classifier down entirely: verdict must not change.
	v := NewValidator(nil, icache.NewValidationCache(16), 0.10)
	report := v.ValidateClaims(context.Background(),
		[]models.Claim{{Text: "Revenue grew 500%"}}, growthFacts(), asOf)
	require.Equal(t, models.VerdictContradiction, report.Results[0].Verdict)
	require.Equal(t, models.SourceNumeric, report.Results[0].Source)
}

func TestDirectionalLieIsContradiction(t *testing.T) {
	// Right magnitude, wrong direction: "fell 8%" against +0.08 compares as
	// -0.08, divergence 2.0. The numeric layer must catch it before the
	// entailment model can be fooled.
	clf := &stubClassifier{verdict: models.VerdictEntailment, confidence: 0.99}
	v := NewValidator(clf, icache.NewValidationCache(16), 0.10)

	report := v.ValidateClaims(context.Background(),
		[]models.Claim{{Text: "Revenue fell 8%"}}, growthFacts(), asOf)

	require.False(t, report.AllValid)
	res := report.Results[0]
	require.Equal(t, models.VerdictContradiction, res.Verdict)
	require.Equal(t, models.SourceNumeric, res.Source)
	require.Zero(t, clf.calls)
}

func TestNumericWithinToleranceDelegatesToSemantic(t *testing.T) {
	clf := &stubClassifier{verdict: models.VerdictEntailment, confidence: 0.91}
	v := NewValidator(clf, icache.NewValidationCache(16), 0.10)

	report := v.ValidateClaims(context.Background(),
		[]models.Claim{{Text: "Revenue grew 8%"}}, growthFacts(), asOf)

	require.True(t, report.AllValid)
	require.Equal(t, models.VerdictEntailment, report.Results[0].Verdict)
	require.Equal(t, models.SourceSemantic, report.Results[0].Source)
	require.Equal(t, 1, clf.calls)
}

func TestCacheHitSkipsClassifier(t *testing.T) {
	clf := &stubClassifier{verdict: models.VerdictNeutral, confidence: 0.6}
	v := NewValidator(clf, icache.NewValidationCache(16), 0.10)
	claims := []models.Claim{{Text: "management expects continued momentum"}}

	first := v.ValidateClaims(context.Background(), claims, growthFacts(), asOf)
	second := v.ValidateClaims(context.Background(), claims, growthFacts(), asOf)

	require.Equal(t, first.Results[0], second.Results[0])
	require.Equal(t, 1, clf.calls, "second validation must be a cache hit")
}

func TestCacheIsDateScoped(t *testing.T) {
	clf := &stubClassifier{verdict: models.VerdictNeutral, confidence: 0.6}
	v := NewValidator(clf, icache.NewValidationCache(16), 0.10)
	claims := []models.Claim{{Text: "management expects continued momentum"}}

	v.ValidateClaims(context.Background(), claims, growthFacts(), asOf)
	v.ValidateClaims(context.Background(), claims, growthFacts(), asOf.Add(24*time.Hour))

	require.Equal(t, 2, clf.calls, "a new date must never be served the prior day's verdict")
}

func TestClassifierErrorFallsBackToKeywords(t *testing.T) {
	clf := &stubClassifier{err: errors.New("connection refused")}
	v := NewValidator(clf, icache.NewValidationCache(16), 0.10)

	report := v.ValidateClaims(context.Background(),
		[]models.Claim{{Text: "revenue growth is improving"}}, growthFacts(), asOf)

	res := report.Results[0]
	require.Equal(t, models.SourceFallback, res.Source)
	require.Equal(t, models.VerdictEntailment, res.Verdict)
	require.Less(t, res.Confidence, 0.7, "fallback runs at reduced confidence")
}

func TestFallbackDirectionMismatchContradicts(t *testing.T) {
	v := NewValidator(nil, icache.NewValidationCache(16), 0.10)
	facts := map[string]models.GroundTruthFact{
		"revenue_growth_yoy": {MetricName: "revenue_growth_yoy", Value: -0.12},
	}

	report := v.ValidateClaims(context.Background(),
		[]models.Claim{{Text: "revenue keeps growing strongly"}}, facts, asOf)

	require.Equal(t, models.VerdictContradiction, report.Results[0].Verdict)
	require.Equal(t, models.SourceFallback, report.Results[0].Source)
}

func TestUnverifiableMetricGoesSemanticOnly(t *testing.T) {
	clf := &stubClassifier{verdict: models.VerdictNeutral, confidence: 0.5}
	v := NewValidator(clf, icache.NewValidationCache(16), 0.10)

	// 40% appears in the claim but no fact matches the metric.
	report := v.ValidateClaims(context.Background(),
		[]models.Claim{{Text: "churn fell 40%"}}, growthFacts(), asOf)

	require.Equal(t, models.SourceSemantic, report.Results[0].Source)
	require.Equal(t, 1, clf.calls)
}

func TestExtractNumericPercent(t *testing.T) {
	nc, ok := ExtractNumeric("Revenue grew 500%")
	require.True(t, ok)
	require.True(t, nc.IsPercent)
	require.InDelta(t, 5.0, nc.Value, 1e-9)
	require.Equal(t, 1, nc.Direction)
}

func TestExtractNumericCurrency(t *testing.T) {
	nc, ok := ExtractNumeric("quarterly revenue fell to $1.2 billion")
	require.True(t, ok)
	require.False(t, nc.IsPercent)
	require.InDelta(t, 1.2e9, nc.Value, 1)
	require.Equal(t, -1, nc.Direction)
}

func TestExtractNumericNone(t *testing.T) {
	_, ok := ExtractNumeric("the outlook remains constructive")
	require.False(t, ok)
}

func TestDivergenceScenarioA(t *testing.T) {
	nc, ok := ExtractNumeric("Revenue grew 500%")
	require.True(t, ok)
	fact := models.GroundTruthFact{MetricName: "revenue_growth_yoy", Value: 0.08}
	d := Divergence(nc, fact)
	require.InDelta(t, 61.5, d, 0.01)
	require.True(t, math.Abs(d-61.5) < 0.01)
}

func TestDivergenceAppliesImpliedDirection(t *testing.T) {
	nc, ok := ExtractNumeric("Revenue fell 8%")
	require.True(t, ok)
	require.Equal(t, -1, nc.Direction)
	require.InDelta(t, -0.08, nc.Signed(), 1e-9)

	fact := models.GroundTruthFact{MetricName: "revenue_growth_yoy", Value: 0.08}
	require.InDelta(t, 2.0, Divergence(nc, fact), 0.01)
}

func TestDivergenceExplicitSignNotDoubled(t *testing.T) {
	// A literal that already carries its sign must not be negated again.
	nc, ok := ExtractNumeric("revenue growth dropped to -8%")
	require.True(t, ok)
	require.InDelta(t, -0.08, nc.Signed(), 1e-9)

	fact := models.GroundTruthFact{MetricName: "revenue_growth_yoy", Value: -0.08}
	require.InDelta(t, 0, Divergence(nc, fact), 1e-9)
}

func TestDivergencePercentUnitTruth(t *testing.T) {
	nc, _ := ExtractNumeric("margin improved 9%")
	fact := models.GroundTruthFact{MetricName: "gross_margin", Value: 9.5, Unit: "percent"}
	d := Divergence(nc, fact)
	require.InDelta(t, 0.0526, d, 0.001)
}
