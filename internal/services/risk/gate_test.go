package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TradeGate/internal/domain/models"
)

func proposal(action models.Action, frac float64) models.TradeProposal {
	return models.TradeProposal{
		AssetID:              "AAPL",
		Date:                 time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		Action:               action,
		ProposedRiskFraction: frac,
	}
}

func flatSnap() models.LedgerSnapshot {
	return models.LedgerSnapshot{
		Position:      models.PositionFlat,
		Equity:        100_000,
		HighWaterMark: 100_000,
	}
}

func TestSellWhileFlatRejected(t *testing.T) {
	g := NewGate(DefaultLimits())
	d := g.Evaluate(proposal(models.ActionSell, 0.02), flatSnap(), 0.01)
	require.False(t, d.Approved)
	require.Equal(t, models.ReasonInvalidTransition, d.RejectionReason)
}

func TestBuyPastSingleAssetExposureRejected(t *testing.T) {
	g := NewGate(DefaultLimits())
	snap := flatSnap()
	snap.Position = models.PositionLong
	snap.AllocationFraction = 0.24
	d := g.Evaluate(proposal(models.ActionBuy, 0.02), snap, 0.01)
	require.False(t, d.Approved)
	require.Equal(t, models.ReasonInvalidTransition, d.RejectionReason)
}

func TestCircuitBreakerBlocksBuys(t *testing.T) {
	g := NewGate(DefaultLimits())
	snap := flatSnap()
	snap.Equity = 80_000 // 20% drawdown from HWM
	d := g.Evaluate(proposal(models.ActionBuy, 0.02), snap, 0.01)
	require.False(t, d.Approved)
	require.Equal(t, models.ReasonCircuitBreaker, d.RejectionReason)
}

func TestCircuitBreakerPermitsRiskReducingSell(t *testing.T) {
	g := NewGate(DefaultLimits())
	snap := flatSnap()
	snap.Equity = 80_000
	snap.Position = models.PositionLong
	snap.AllocationFraction = 0.05
	d := g.Evaluate(proposal(models.ActionSell, 0.05), snap, 0.01)
	require.True(t, d.Approved)
	require.InDelta(t, 0.05, d.AdjustedRiskFraction, 1e-9)
}

func TestHeatCapsToHeadroom(t *testing.T) {
	g := NewGate(DefaultLimits())
	snap := flatSnap()
	snap.OpenHeat = 0.09 // limit 0.10, proposal wants 0.02
	d := g.Evaluate(proposal(models.ActionBuy, 0.02), snap, 0.01)
	require.True(t, d.Approved)
	require.InDelta(t, 0.01, d.AdjustedRiskFraction, 1e-9)
	require.Contains(t, d.Detail, "headroom")
}

func TestZeroHeadroomRejects(t *testing.T) {
	g := NewGate(DefaultLimits())
	snap := flatSnap()
	snap.OpenHeat = 0.10
	d := g.Evaluate(proposal(models.ActionBuy, 0.02), snap, 0.01)
	require.False(t, d.Approved)
	require.Equal(t, models.ReasonRiskLimitExceeded, d.RejectionReason)
}

func TestVolatilityScalesSizeDown(t *testing.T) {
	g := NewGate(DefaultLimits())
	// ATR at 4% of price doubles the volatility multiple: 2% budget -> 1%.
	d := g.Evaluate(proposal(models.ActionBuy, 0.02), flatSnap(), 0.04)
	require.True(t, d.Approved)
	require.InDelta(t, 0.01, d.AdjustedRiskFraction, 1e-9)
}

func TestHoldIsAlwaysApprovedAtZeroSize(t *testing.T) {
	g := NewGate(DefaultLimits())
	snap := flatSnap()
	snap.OpenHeat = 0.10 // even with no headroom
	d := g.Evaluate(proposal(models.ActionHold, 0), snap, 0.01)
	require.True(t, d.Approved)
	require.Zero(t, d.AdjustedRiskFraction)
}

func TestATRFraction(t *testing.T) {
	bars := make([]models.Bar, 0, 40)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 40; i++ {
		bars = append(bars, models.Bar{
			Date:  base.AddDate(0, 0, i),
			Open:  100, High: 102, Low: 98, Close: 100, Volume: 1000,
		})
	}
	series, err := models.NewPriceSeries("AAPL", bars)
	require.NoError(t, err)

	frac := ATRFraction(series, 14)
	// True range is constant at 4 on a 100 close.
	require.InDelta(t, 0.04, frac, 0.005)

	short, err := models.NewPriceSeries("AAPL", bars[:10])
	require.NoError(t, err)
	require.Zero(t, ATRFraction(short, 14))
}
