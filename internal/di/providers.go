package di

import (
	"context"
	"fmt"
	"time"

	domrepo "TradeGate/internal/domain/repository"
	domsvc "TradeGate/internal/domain/service"
	"TradeGate/internal/handler/api"
	internalrepo "TradeGate/internal/repository"
	icache "TradeGate/internal/service/cache"
	"TradeGate/internal/service/ledger"
	"TradeGate/internal/services/agent"
	"TradeGate/internal/services/entailment"
	"TradeGate/internal/services/factcheck"
	"TradeGate/internal/services/regime"
	"TradeGate/internal/services/risk"
	"TradeGate/internal/services/schema"
	"TradeGate/internal/usecase"
	pkgcache "TradeGate/pkg/cache"
	pkgch "TradeGate/pkg/clickhouse"
	"TradeGate/pkg/config"
	xhttp "TradeGate/pkg/http"
	pkgkafka "TradeGate/pkg/kafka"
	applogger "TradeGate/pkg/logger"
	pkgmetrics "TradeGate/pkg/metrics"
	"TradeGate/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client when storage is
// enabled, nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer when publication is enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return pkgmetrics.New()
}

// ProvideValidationCache creates the day-scoped validation verdict cache.
func ProvideValidationCache(cfg *config.Config) *icache.ValidationCache {
	return icache.NewValidationCache(cfg.Pipeline.ValidationCacheSize)
}

// ProvideClassifier creates the regime classifier from configured thresholds.
func ProvideClassifier(cfg *config.Config) *regime.Classifier {
	return regime.NewClassifier(regime.Thresholds{
		MinLookbackBars: cfg.Regime.MinLookbackBars,
		Volatility:      cfg.Regime.VolatilityThreshold,
		TrendStrength:   cfg.Regime.TrendThreshold,
		MeanReversion:   cfg.Regime.MeanReversionThreshold,
	})
}

// ProvideAgent creates the LLM proposal agent.
func ProvideAgent(cfg *config.Config) (domsvc.ProposalAgent, error) {
	return agent.NewOpenAIAgent(cfg)
}

// ProvideEntailmentClassifier creates the NLI classifier client.
func ProvideEntailmentClassifier(cfg *config.Config) domsvc.EntailmentClassifier {
	return entailment.NewHTTPClassifier(cfg)
}

// ProvideValidator creates the hybrid fact validator.
func ProvideValidator(
	cfg *config.Config,
	clf domsvc.EntailmentClassifier,
	vcache *icache.ValidationCache,
	m domrepo.Metrics,
	l *applogger.Logger,
) *factcheck.Validator {
	v := factcheck.NewValidator(clf, vcache, cfg.Pipeline.NumericTolerance)
	v.SetLogger(l)
	v.SetMetrics(m)
	return v
}

// ProvideSchemaGate creates the schema compliance gate.
func ProvideSchemaGate(cfg *config.Config, a domsvc.ProposalAgent, l *applogger.Logger) *schema.Gate {
	g := schema.NewGate(a, cfg.Pipeline.SchemaMaxRetries)
	g.SetLogger(l)
	return g
}

// ProvideRiskGate creates the deterministic risk gate.
func ProvideRiskGate(cfg *config.Config, l *applogger.Logger) *risk.Gate {
	g := risk.NewGate(risk.Limits{
		RiskPerTradeMax:        cfg.Risk.RiskPerTradeMax,
		PortfolioHeatMax:       cfg.Risk.PortfolioHeatMax,
		CircuitBreakerDrawdown: cfg.Risk.CircuitBreakerDrawdown,
		MaxSingleAssetExposure: cfg.Risk.MaxSingleAssetExposure,
	})
	g.SetLogger(l)
	return g
}

// ProvideLedger creates the in-memory portfolio ledger.
func ProvideLedger() domsvc.PortfolioLedger {
	return ledger.NewMemory(0)
}

// ProvideOutcomeStore creates the ClickHouse outcome store, nil when
// storage is disabled.
func ProvideOutcomeStore(chClient *pkgch.Client, l *applogger.Logger) (domrepo.OutcomeStore, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewCHOutcomeStore(chClient)
	store.SetLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideOutcomePublisher creates the Kafka outcome publisher, nil when
// publication is disabled.
func ProvideOutcomePublisher(producer *pkgkafka.Producer, cfg *config.Config) domrepo.OutcomePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaOutcomePublisher(producer, cfg.Kafka.Topic)
}

// ProvideResponseCache creates the API response cache: layered when Redis
// is configured, in-memory otherwise.
func ProvideResponseCache(cfg *config.Config, l *applogger.Logger) pkgcache.Service {
	if cfg.Cache.Redis.Enabled {
		rc, err := pkgcache.NewRedisCache(
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
		)
		if err == nil {
			return pkgcache.NewLayeredCache(rc, 1000)
		}
		l.Warn("redis unavailable, using memory cache", applogger.Error(err))
	}
	return pkgcache.NewMemoryCache()
}

// ProvidePipeline wires the gates into the decision pipeline.
func ProvidePipeline(
	cfg *config.Config,
	classifier *regime.Classifier,
	gate *schema.Gate,
	validator *factcheck.Validator,
	riskGate *risk.Gate,
	pledger domsvc.PortfolioLedger,
	store domrepo.OutcomeStore,
	pub domrepo.OutcomePublisher,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Pipeline {
	p := usecase.NewPipeline(classifier, gate, validator, riskGate, pledger,
		cfg.Pipeline.FactCheckBudget, cfg.Risk.RiskPerTradeMax)
	p.SetLogger(l)
	p.SetMetrics(m)
	p.SetATRPeriod(cfg.Risk.ATRPeriod)
	p.SetSinks(store, pub)
	return p
}

// ProvideHandler creates the HTTP handler.
func ProvideHandler(
	cfg *config.Config,
	pipeline *usecase.Pipeline,
	store domrepo.OutcomeStore,
	rcache pkgcache.Service,
	l *applogger.Logger,
) xhttp.Handler {
	h := api.NewDecisionsHandler(l, pipeline)
	if store != nil {
		h.SetStore(store)
	}
	h.SetCache(rcache, cfg.Cache.ResponseTTL)
	if cfg.RateLimit.Enabled {
		h.SetRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	pub domrepo.OutcomePublisher,
	vcache *icache.ValidationCache,
	l *applogger.Logger,
) *server.App {
	return server.New(cfg, handler, chClient, pub, vcache, l)
}
