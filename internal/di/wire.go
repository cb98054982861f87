//go:build wireinject
// +build wireinject

package di

import (
	"TradeGate/pkg/config"
	"TradeGate/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideResponseCache,

		// Repositories
		ProvideOutcomeStore,
		ProvideOutcomePublisher,

		// Pipeline components
		ProvideValidationCache,
		ProvideClassifier,
		ProvideAgent,
		ProvideEntailmentClassifier,
		ProvideValidator,
		ProvideSchemaGate,
		ProvideRiskGate,
		ProvideLedger,
		ProvidePipeline,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
