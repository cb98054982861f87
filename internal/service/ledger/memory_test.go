package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradeGate/internal/domain/models"
)

func TestMemorySnapshotUnknownAssetIsFlat(t *testing.T) {
	m := NewMemory(50_000)

	snap, err := m.Snapshot(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Equal(t, models.PositionFlat, snap.Position)
	assert.Zero(t, snap.AllocationFraction)
	assert.Equal(t, 50_000.0, snap.Equity)
	assert.Equal(t, 50_000.0, snap.HighWaterMark)
	assert.Zero(t, snap.OpenHeat)
}

func TestMemoryApplyBuyThenSell(t *testing.T) {
	m := NewMemory(100_000)

	m.Apply("MSFT", models.ActionBuy, 0.02)
	m.Apply("NVDA", models.ActionBuy, 0.03)

	snap, err := m.Snapshot(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, models.PositionLong, snap.Position)
	assert.InDelta(t, 0.02, snap.AllocationFraction, 1e-12)
	assert.InDelta(t, 0.05, snap.OpenHeat, 1e-12)

	m.Apply("MSFT", models.ActionSell, 0)

	snap, err = m.Snapshot(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, models.PositionFlat, snap.Position)
	assert.Zero(t, snap.AllocationFraction)
	assert.InDelta(t, 0.03, snap.OpenHeat, 1e-12)
}

func TestMemoryHeatNeverNegative(t *testing.T) {
	m := NewMemory(100_000)

	m.Apply("TSLA", models.ActionBuy, 0.02)
	m.Apply("TSLA", models.ActionSell, 0)
	m.Apply("TSLA", models.ActionSell, 0)

	snap, err := m.Snapshot(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.Zero(t, snap.OpenHeat)
}

func TestMemoryMarkEquityAdvancesHighWaterMark(t *testing.T) {
	m := NewMemory(100_000)

	m.MarkEquity(120_000)
	snap, _ := m.Snapshot(context.Background(), "AAPL")
	assert.Equal(t, 120_000.0, snap.Equity)
	assert.Equal(t, 120_000.0, snap.HighWaterMark)

	// drawdown moves equity but never the mark
	m.MarkEquity(90_000)
	snap, _ = m.Snapshot(context.Background(), "AAPL")
	assert.Equal(t, 90_000.0, snap.Equity)
	assert.Equal(t, 120_000.0, snap.HighWaterMark)
}
