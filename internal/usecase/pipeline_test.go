package usecase

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TradeGate/internal/domain/models"
	icache "TradeGate/internal/service/cache"
	"TradeGate/internal/service/ledger"
	"TradeGate/internal/services/factcheck"
	"TradeGate/internal/services/regime"
	"TradeGate/internal/services/risk"
	"TradeGate/internal/services/schema"
)

var evalDate = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

type scriptedAgent struct {
	responses []string
	calls     int
}

func (a *scriptedAgent) Generate(_ context.Context, _ string, _ models.RegimeClassification) (string, error) {
	return a.next(), nil
}

func (a *scriptedAgent) Regenerate(_ context.Context, _ string, _ string, _ string) (string, error) {
	return a.next(), nil
}

func (a *scriptedAgent) next() string {
	if a.calls >= len(a.responses) {
		return a.responses[len(a.responses)-1]
	}
	r := a.responses[a.calls]
	a.calls++
	return r
}

type stubClassifier struct {
	verdict models.Verdict
	calls   int
}

func (s *stubClassifier) Classify(_ context.Context, _, _ string) (models.Verdict, float64, error) {
	s.calls++
	return s.verdict, 0.9, nil
}

func agentJSON(action string, claim string, riskFraction float64) string {
	return fmt.Sprintf(`{"action":%q,"confidence":0.9,"key_claims":[%q],"risk_fraction":%g}`,
		action, claim, riskFraction)
}

// driftSeries produces n chronological bars with a small constant drift and
// tight ranges, comfortably below the volatility threshold.
func driftSeries(t *testing.T, n int, drift float64) *models.PriceSeries {
	t.Helper()
	bars := make([]models.Bar, n)
	price := 100.0
	for i := range bars {
		price *= math.Exp(drift)
		bars[i] = models.Bar{
			Date:   evalDate.AddDate(0, 0, -n+i),
			Open:   price,
			High:   price * 1.002,
			Low:    price * 0.998,
			Close:  price,
			Volume: 1000,
		}
	}
	series, err := models.NewPriceSeries("ACME", bars)
	require.NoError(t, err)
	return series
}

// choppySeries alternates returns of +/-sigma, giving ~sigma*sqrt(252)
// annualized volatility.
func choppySeries(t *testing.T, n int, sigma float64) *models.PriceSeries {
	t.Helper()
	bars := make([]models.Bar, n)
	price := 100.0
	for i := range bars {
		r := sigma
		if i%2 == 1 {
			r = -sigma
		}
		price *= math.Exp(r)
		bars[i] = models.Bar{
			Date:   evalDate.AddDate(0, 0, -n+i),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1000,
		}
	}
	series, err := models.NewPriceSeries("ACME", bars)
	require.NoError(t, err)
	return series
}

func flatLedger() *models.LedgerSnapshot {
	return &models.LedgerSnapshot{
		Position:      models.PositionFlat,
		Equity:        100_000,
		HighWaterMark: 100_000,
	}
}

func newTestPipeline(agent *scriptedAgent, clf *stubClassifier) *Pipeline {
	classifier := regime.NewClassifier(regime.DefaultThresholds())
	gate := schema.NewGate(agent, 2)
	validator := factcheck.NewValidator(clf, icache.NewValidationCache(64), 0.10)
	riskGate := risk.NewGate(risk.DefaultLimits())
	return NewPipeline(classifier, gate, validator, riskGate, ledger.NewMemory(0), 2*time.Second, 0.02)
}

func TestEvaluateGrossLieYieldsFactCheckFailed(t *testing.T) {
	agent := &scriptedAgent{responses: []string{agentJSON("BUY", "Revenue grew 500%", 0.02)}}
	clf := &stubClassifier{verdict: models.VerdictEntailment}
	p := newTestPipeline(agent, clf)

	out, err := p.Evaluate(context.Background(), EvaluationInput{
		Series: driftSeries(t, 100, 0.0001),
		Date:   evalDate,
		Facts: map[string]models.GroundTruthFact{
			"revenue_growth_yoy": {MetricName: "revenue_growth_yoy", Value: 0.08, ScopeDate: evalDate},
		},
		Ledger: flatLedger(),
	})
	require.NoError(t, err)

	require.Equal(t, models.ReasonFactCheckFailed, out.ReasonCode)
	require.Equal(t, models.ActionHold, out.Action)
	require.Zero(t, out.RiskFraction)
	require.NotEmpty(t, out.AuditTrail.Contradictions)
	require.Equal(t, models.SourceNumeric, out.AuditTrail.Contradictions[0].Source)
	// Numeric short-circuit: the gross lie never reaches the NLI model.
	require.Zero(t, clf.calls)
}

func TestEvaluateVolatileSeriesClassifiedVolatile(t *testing.T) {
	agent := &scriptedAgent{responses: []string{agentJSON("HOLD", "markets remain turbulent", 0)}}
	clf := &stubClassifier{verdict: models.VerdictEntailment}
	p := newTestPipeline(agent, clf)

	// Daily sigma of 0.0378 annualizes to roughly 60%.
	out, err := p.Evaluate(context.Background(), EvaluationInput{
		Series: choppySeries(t, 100, 0.0378),
		Date:   evalDate,
		Ledger: flatLedger(),
	})
	require.NoError(t, err)

	require.NotNil(t, out.AuditTrail.Regime)
	require.Equal(t, models.RegimeVolatile, out.AuditTrail.Regime.Regime)
}

func TestEvaluateSellWhileFlatRejected(t *testing.T) {
	agent := &scriptedAgent{responses: []string{agentJSON("SELL", "momentum has faded", 0.02)}}
	clf := &stubClassifier{verdict: models.VerdictEntailment}
	p := newTestPipeline(agent, clf)

	out, err := p.Evaluate(context.Background(), EvaluationInput{
		Series: driftSeries(t, 100, 0.0001),
		Date:   evalDate,
		Ledger: flatLedger(),
	})
	require.NoError(t, err)

	require.Equal(t, models.ReasonInvalidTransition, out.ReasonCode)
	require.Equal(t, models.ActionHold, out.Action)
	require.Zero(t, out.RiskFraction)
}

func TestEvaluateSchemaRetriesExhausted(t *testing.T) {
	agent := &scriptedAgent{responses: []string{"not json at all 12", "{{{{", `{"action":"MAYBE"}`}}
	clf := &stubClassifier{verdict: models.VerdictEntailment}
	p := newTestPipeline(agent, clf)

	out, err := p.Evaluate(context.Background(), EvaluationInput{
		Series: driftSeries(t, 100, 0.0001),
		Date:   evalDate,
		Ledger: flatLedger(),
	})
	require.NoError(t, err)

	require.NotNil(t, out)
	require.Equal(t, models.ReasonSchemaInvalid, out.ReasonCode)
	require.Equal(t, models.ActionHold, out.Action)
	require.Equal(t, 2, out.AuditTrail.RetryCount)
	require.NotEmpty(t, out.AuditTrail.SchemaErrors)
	// The failed generation never reaches fact validation.
	require.Zero(t, clf.calls)
}

func TestEvaluateHeatCapsApprovedSize(t *testing.T) {
	agent := &scriptedAgent{responses: []string{agentJSON("BUY", "earnings momentum is improving", 0.02)}}
	clf := &stubClassifier{verdict: models.VerdictEntailment}
	p := newTestPipeline(agent, clf)

	snap := flatLedger()
	snap.OpenHeat = 0.09

	out, err := p.Evaluate(context.Background(), EvaluationInput{
		Series: driftSeries(t, 100, 0.0001),
		Date:   evalDate,
		Ledger: snap,
	})
	require.NoError(t, err)

	require.Equal(t, models.ReasonApproved, out.ReasonCode)
	require.Equal(t, models.ActionBuy, out.Action)
	require.InDelta(t, 0.01, out.RiskFraction, 1e-9)
}

func TestEvaluateShortSeriesShortCircuitsBeforeAgent(t *testing.T) {
	agent := &scriptedAgent{responses: []string{agentJSON("BUY", "whatever", 0.02)}}
	clf := &stubClassifier{verdict: models.VerdictEntailment}
	p := newTestPipeline(agent, clf)

	out, err := p.Evaluate(context.Background(), EvaluationInput{
		Series: driftSeries(t, 10, 0.0001),
		Date:   evalDate,
		Ledger: flatLedger(),
	})
	require.NoError(t, err)

	require.Equal(t, models.ReasonInsufficientData, out.ReasonCode)
	require.Equal(t, models.ActionHold, out.Action)
	require.Zero(t, agent.calls)
	require.Zero(t, clf.calls)
}

type failingLedger struct{}

func (failingLedger) Snapshot(context.Context, string) (models.LedgerSnapshot, error) {
	return models.LedgerSnapshot{}, fmt.Errorf("ledger store unreachable")
}

func TestEvaluateLedgerFailureSurfacesAsError(t *testing.T) {
	agent := &scriptedAgent{responses: []string{agentJSON("BUY", "earnings momentum is improving", 0.02)}}
	clf := &stubClassifier{verdict: models.VerdictEntailment}
	classifier := regime.NewClassifier(regime.DefaultThresholds())
	gate := schema.NewGate(agent, 2)
	validator := factcheck.NewValidator(clf, icache.NewValidationCache(64), 0.10)
	riskGate := risk.NewGate(risk.DefaultLimits())
	p := NewPipeline(classifier, gate, validator, riskGate, failingLedger{}, 2*time.Second, 0.02)

	// No request-level ledger snapshot, so the stored ledger is consulted.
	out, err := p.Evaluate(context.Background(), EvaluationInput{
		Series: driftSeries(t, 100, 0.0001),
		Date:   evalDate,
	})

	// An infrastructure read failure is not a risk rejection.
	require.Error(t, err)
	require.Nil(t, out)
	require.ErrorContains(t, err, "ledger store unreachable")
}

func TestEvaluateAlwaysReturnsStageTimings(t *testing.T) {
	agent := &scriptedAgent{responses: []string{agentJSON("BUY", "earnings momentum is improving", 0.02)}}
	clf := &stubClassifier{verdict: models.VerdictEntailment}
	p := newTestPipeline(agent, clf)

	out, err := p.Evaluate(context.Background(), EvaluationInput{
		Series: driftSeries(t, 100, 0.0001),
		Date:   evalDate,
		Ledger: flatLedger(),
	})
	require.NoError(t, err)

	require.NotEmpty(t, out.AuditTrail.EvaluationID)
	stages := make([]string, 0, len(out.AuditTrail.Stages))
	for _, s := range out.AuditTrail.Stages {
		stages = append(stages, s.Stage)
	}
	require.Equal(t, []string{"regime", "schema", "factcheck", "risk"}, stages)
}
