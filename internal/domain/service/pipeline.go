package service

import (
	"context"
	"errors"

	"TradeGate/internal/domain/models"
)

// ErrModelUnavailable signals that the entailment classifier cannot be
// reached. Non-fatal: the validator degrades to keyword fallback.
var ErrModelUnavailable = errors.New("entailment model unavailable")

// EntailmentClassifier labels a premise/hypothesis pair with an NLI verdict.
type EntailmentClassifier interface {
	Classify(ctx context.Context, premise, hypothesis string) (models.Verdict, float64, error)
}

// ProposalAgent is the generating agent boundary. Generate produces the first
// candidate; Regenerate is invoked by the schema gate with the previous raw
// text and the specific validation error appended to the context.
type ProposalAgent interface {
	Generate(ctx context.Context, assetID string, regime models.RegimeClassification) (string, error)
	Regenerate(ctx context.Context, assetID string, prevRaw string, schemaErr string) (string, error)
}

// PortfolioLedger exposes the current risk state consulted by the risk gate.
// Implementations must serialize access: two concurrently approved trades
// must not both observe headroom that only exists once.
type PortfolioLedger interface {
	Snapshot(ctx context.Context, assetID string) (models.LedgerSnapshot, error)
}
