package repository

import (
	"context"

	"TradeGate/internal/domain/models"
)

// OutcomePublisher pushes terminal outcomes to downstream consumers.
type OutcomePublisher interface {
	Publish(ctx context.Context, o *models.PipelineOutcome) error
	Close() error
}

// OutcomeStore persists terminal outcomes for audit and read-back.
type OutcomeStore interface {
	Store(ctx context.Context, o *models.PipelineOutcome) error
	Query(ctx context.Context, assetID string, limit int) ([]*models.PipelineOutcome, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics is the observability boundary of the pipeline.
type Metrics interface {
	RecordOutcome(assetID string, reason string)
	RecordError(kind string)
	RecordStageLatency(stage string, seconds float64)
	RecordCacheLookup(hit bool)
	RecordFallback()
}
