package ledger

import (
	"context"
	"sync"

	"TradeGate/internal/domain/models"
	domsvc "TradeGate/internal/domain/service"
)

// Memory is a mutex-serialized in-memory portfolio ledger. The pipeline only
// reads snapshots from it; the accounting collaborator applies fills through
// Apply after an APPROVED outcome executes. Serialization matters: two
// concurrent evaluations must not both observe heat headroom that only
// exists once.
type Memory struct {
	mu        sync.Mutex
	positions map[string]models.LedgerSnapshot
	equity    float64
	hwm       float64
	openHeat  float64
}

// NewMemory creates a ledger seeded with starting equity.
func NewMemory(startingEquity float64) *Memory {
	if startingEquity <= 0 {
		startingEquity = 100_000
	}
	return &Memory{
		positions: make(map[string]models.LedgerSnapshot),
		equity:    startingEquity,
		hwm:       startingEquity,
	}
}

// Snapshot returns the current risk state for one asset.
func (m *Memory) Snapshot(_ context.Context, assetID string) (models.LedgerSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap, ok := m.positions[assetID]
	if !ok {
		snap = models.LedgerSnapshot{Position: models.PositionFlat}
	}
	snap.Equity = m.equity
	snap.HighWaterMark = m.hwm
	snap.OpenHeat = m.openHeat
	return snap, nil
}

// Apply records an executed trade: position transition, allocation change
// and heat bookkeeping. Called by the execution collaborator, never by the
// pipeline itself.
func (m *Memory) Apply(assetID string, action models.Action, riskFraction float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.positions[assetID]
	switch action {
	case models.ActionBuy:
		snap.Position = models.PositionLong
		snap.AllocationFraction += riskFraction
		m.openHeat += riskFraction
	case models.ActionSell:
		m.openHeat -= snap.AllocationFraction
		if m.openHeat < 0 {
			m.openHeat = 0
		}
		snap.Position = models.PositionFlat
		snap.AllocationFraction = 0
	}
	m.positions[assetID] = snap
}

// MarkEquity updates equity and advances the high-water mark.
func (m *Memory) MarkEquity(equity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = equity
	if equity > m.hwm {
		m.hwm = equity
	}
}

var _ domsvc.PortfolioLedger = (*Memory)(nil)
