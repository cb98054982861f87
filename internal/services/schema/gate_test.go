package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"TradeGate/internal/domain/models"
)

// scriptedAgent returns canned responses in order, recording the schema
// errors it was asked to repair.
type scriptedAgent struct {
	responses []string
	idx       int
	seenErrs  []string
}

func (a *scriptedAgent) Generate(_ context.Context, _ string, _ models.RegimeClassification) (string, error) {
	return a.next(), nil
}

func (a *scriptedAgent) Regenerate(_ context.Context, _ string, _ string, schemaErr string) (string, error) {
	a.seenErrs = append(a.seenErrs, schemaErr)
	return a.next(), nil
}

func (a *scriptedAgent) next() string {
	if a.idx >= len(a.responses) {
		return ""
	}
	r := a.responses[a.idx]
	a.idx++
	return r
}

var cls = models.RegimeClassification{AssetID: "AAPL", Regime: models.RegimeSideways}

func TestValidFirstAttempt(t *testing.T) {
	agent := &scriptedAgent{responses: []string{
		`{"action":"BUY","confidence":0.8,"key_claims":["Revenue grew 8%"],"risk_fraction":0.02}`,
	}}
	gate := NewGate(agent, 2)

	env, errs := gate.Run(context.Background(), "AAPL", cls)
	require.True(t, env.SchemaValid)
	require.Zero(t, env.RetryCount)
	require.Empty(t, errs)
	require.Equal(t, models.ActionBuy, env.Parsed.Action)
	require.Equal(t, []string{"Revenue grew 8%"}, env.Parsed.KeyClaims)
}

func TestMalformedJSONIsRepaired(t *testing.T) {
	// Trailing comma and unquoted keys are typical LLM output defects.
	agent := &scriptedAgent{responses: []string{
		`{action: "HOLD", confidence: 0.4, key_claims: ["flat quarter"],}`,
	}}
	gate := NewGate(agent, 2)

	env, _ := gate.Run(context.Background(), "AAPL", cls)
	require.True(t, env.SchemaValid)
	require.Equal(t, models.ActionHold, env.Parsed.Action)
}

func TestRegenerationCarriesValidationError(t *testing.T) {
	agent := &scriptedAgent{responses: []string{
		`{"action":"SHORT","confidence":0.8,"key_claims":["x"]}`,
		`{"action":"SELL","confidence":0.8,"key_claims":["x"]}`,
	}}
	gate := NewGate(agent, 2)

	env, errs := gate.Run(context.Background(), "AAPL", cls)
	require.True(t, env.SchemaValid)
	require.Equal(t, 1, env.RetryCount)
	require.Len(t, errs, 1)
	require.Len(t, agent.seenErrs, 1)
	require.Contains(t, agent.seenErrs[0], "Action")
}

func TestRetriesExhaustedYieldsInvalidEnvelope(t *testing.T) {
	agent := &scriptedAgent{responses: []string{
		`not json at all {{{`,
		`{"action":"MAYBE","confidence":2,"key_claims":[]}`,
		`still broken`,
	}}
	gate := NewGate(agent, 2)

	env, errs := gate.Run(context.Background(), "AAPL", cls)
	require.NotNil(t, env, "the gate is total: never a nil envelope")
	require.False(t, env.SchemaValid)
	require.Equal(t, 2, env.RetryCount)
	require.Len(t, errs, 3)
}

func TestConfidenceDefaultApplied(t *testing.T) {
	agent := &scriptedAgent{responses: []string{
		`{"action":"HOLD","key_claims":["no view"]}`,
	}}
	gate := NewGate(agent, 2)

	env, _ := gate.Run(context.Background(), "AAPL", cls)
	require.True(t, env.SchemaValid)
	require.InDelta(t, 0.5, env.Parsed.Confidence, 1e-9)
}
