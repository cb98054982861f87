package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	domsvc "TradeGate/internal/domain/service"
	"TradeGate/internal/services/factcheck"
	"TradeGate/internal/services/regime"
	"TradeGate/internal/services/risk"
	"TradeGate/internal/services/schema"
	applogger "TradeGate/pkg/logger"
)

// Pipeline sequences the four gates into one state machine:
// RegimeClassified -> SchemaValidation -> FactValidation -> RiskGate ->
// Terminal. The decision function is total: every input, valid or not,
// yields a fully populated PipelineOutcome with HOLD as the dead-state
// action.
type Pipeline struct {
	classifier *regime.Classifier
	gate       *schema.Gate
	validator  *factcheck.Validator
	riskGate   *risk.Gate
	ledger     domsvc.PortfolioLedger

	store   domrepo.OutcomeStore     // optional
	pub     domrepo.OutcomePublisher // optional
	metrics domrepo.Metrics          // optional
	l       *applogger.Logger

	factBudget time.Duration
	atrPeriod  int
	maxRisk    float64
}

// NewPipeline wires the gates into the orchestrator.
func NewPipeline(
	classifier *regime.Classifier,
	gate *schema.Gate,
	validator *factcheck.Validator,
	riskGate *risk.Gate,
	ledger domsvc.PortfolioLedger,
	factBudget time.Duration,
	maxRisk float64,
) *Pipeline {
	if factBudget <= 0 {
		factBudget = 2 * time.Second
	}
	if maxRisk <= 0 {
		maxRisk = 0.02
	}
	return &Pipeline{
		classifier: classifier,
		gate:       gate,
		validator:  validator,
		riskGate:   riskGate,
		ledger:     ledger,
		factBudget: factBudget,
		atrPeriod:  14,
		maxRisk:    maxRisk,
	}
}

// SetLogger injects a structured logger.
func (p *Pipeline) SetLogger(l *applogger.Logger) { p.l = l }

// SetMetrics injects the metrics recorder.
func (p *Pipeline) SetMetrics(m domrepo.Metrics) { p.metrics = m }

// SetATRPeriod overrides the volatility estimation window.
func (p *Pipeline) SetATRPeriod(n int) {
	if n > 0 {
		p.atrPeriod = n
	}
}

// SetSinks injects the optional persistence and publication collaborators.
func (p *Pipeline) SetSinks(store domrepo.OutcomeStore, pub domrepo.OutcomePublisher) {
	p.store = store
	p.pub = pub
}

// EvaluationInput is everything one (asset, date) evaluation consumes.
// Ledger, when set, takes precedence over the service ledger so callers can
// evaluate against an externally managed portfolio state.
type EvaluationInput struct {
	Series *models.PriceSeries
	Date   time.Time
	Facts  map[string]models.GroundTruthFact
	Ledger *models.LedgerSnapshot
}

// Evaluate runs the full pipeline for one asset/date. Every proposal-level
// failure resolves into a terminal outcome with a specific reason code; a
// non-nil error is returned only when infrastructure outside the pipeline's
// control fails (the ledger store is unreachable) and no honest reason code
// exists for the outcome.
func (p *Pipeline) Evaluate(ctx context.Context, in EvaluationInput) (*models.PipelineOutcome, error) {
	trail := models.AuditTrail{EvaluationID: uuid.NewString()}
	assetID := ""
	if in.Series != nil {
		assetID = in.Series.AssetID
	}

	// Stage 1: regime classification. Insufficient data short-circuits
	// before any agent interaction occurs.
	cls, err := p.timedClassify(in.Series, &trail)
	if err != nil {
		if p.l != nil {
			p.l.Warn("evaluation aborted before agent call",
				applogger.String("asset", assetID), applogger.Error(err))
		}
		return p.terminal(assetID, in.Date, models.ActionHold, 0, models.ReasonInsufficientData, trail), nil
	}
	trail.Regime = &cls

	// Stage 2: schema validation with bounded regeneration.
	env, schemaErrs := p.timedSchema(ctx, assetID, cls, &trail)
	trail.RetryCount = env.RetryCount
	trail.SchemaErrors = schemaErrs
	if !env.SchemaValid {
		return p.terminal(assetID, in.Date, models.ActionHold, 0, models.ReasonSchemaInvalid, trail), nil
	}

	// Stage 3: fact validation over the final structured output's claims.
	report := p.timedFactCheck(ctx, env, in.Facts, in.Date, &trail)
	if !report.AllValid {
		trail.Contradictions = report.Contradictions()
		return p.terminal(assetID, in.Date, models.ActionHold, 0, models.ReasonFactCheckFailed, trail), nil
	}

	// Stage 4: deterministic risk gate.
	proposal := p.buildProposal(assetID, in.Date, env, cls)
	decision, err := p.timedRiskGate(ctx, proposal, in.Series, in.Ledger, &trail)
	if err != nil {
		// A ledger read failure is an infrastructure fault, not a risk
		// rejection; surface it instead of misattributing it to a budget
		// breach in the audit record.
		if p.l != nil {
			p.l.Error("ledger snapshot unavailable",
				applogger.String("asset", assetID), applogger.Error(err))
		}
		return nil, fmt.Errorf("ledger snapshot for %s: %w", assetID, err)
	}
	trail.RiskDetail = decision.Detail
	if !decision.Approved {
		return p.terminal(assetID, in.Date, models.ActionHold, 0, decision.RejectionReason, trail), nil
	}

	return p.terminal(assetID, in.Date, proposal.Action, decision.AdjustedRiskFraction, models.ReasonApproved, trail), nil
}

func (p *Pipeline) timedClassify(series *models.PriceSeries, trail *models.AuditTrail) (models.RegimeClassification, error) {
	start := time.Now()
	cls, err := p.classifier.Classify(series)
	p.recordStage("regime", start, trail)
	return cls, err
}

func (p *Pipeline) timedSchema(ctx context.Context, assetID string, cls models.RegimeClassification, trail *models.AuditTrail) (*models.AgentOutputEnvelope, []string) {
	start := time.Now()
	env, errs := p.gate.Run(ctx, assetID, cls)
	p.recordStage("schema", start, trail)
	return env, errs
}

func (p *Pipeline) timedFactCheck(ctx context.Context, env *models.AgentOutputEnvelope, facts map[string]models.GroundTruthFact, asOf time.Time, trail *models.AuditTrail) models.FactReport {
	start := time.Now()
	report := p.validator.ValidateClaims(ctx, env.Claims(), facts, asOf)
	elapsed := p.recordStage("factcheck", start, trail)
	// The latency budget is advisory: log, never cancel.
	if elapsed > p.factBudget && p.l != nil {
		p.l.Warn("fact validation exceeded latency budget",
			applogger.Duration("elapsed_ms", elapsed),
			applogger.Duration("budget_ms", p.factBudget),
		)
	}
	return report
}

func (p *Pipeline) timedRiskGate(ctx context.Context, proposal models.TradeProposal, series *models.PriceSeries, override *models.LedgerSnapshot, trail *models.AuditTrail) (models.RiskDecision, error) {
	start := time.Now()
	defer func() { p.recordStage("risk", start, trail) }()

	var snap models.LedgerSnapshot
	if override != nil {
		snap = *override
	} else {
		var err error
		snap, err = p.ledger.Snapshot(ctx, proposal.AssetID)
		if err != nil {
			return models.RiskDecision{}, err
		}
	}
	vol := risk.ATRFraction(series, p.atrPeriod)
	return p.riskGate.Evaluate(proposal, snap, vol), nil
}

func (p *Pipeline) buildProposal(assetID string, date time.Time, env *models.AgentOutputEnvelope, cls models.RegimeClassification) models.TradeProposal {
	frac := env.Parsed.RiskFraction
	if frac <= 0 {
		// No explicit budget from the agent: scale the per-trade maximum
		// by stated confidence.
		frac = p.maxRisk * env.Parsed.Confidence
	}
	return models.TradeProposal{
		AssetID:              assetID,
		Date:                 date,
		Action:               env.Parsed.Action,
		ProposedRiskFraction: frac,
		SupportingClaims:     env.Claims(),
		Regime:               cls.Regime,
	}
}

func (p *Pipeline) recordStage(stage string, start time.Time, trail *models.AuditTrail) time.Duration {
	elapsed := time.Since(start)
	trail.Stages = append(trail.Stages, models.StageTiming{Stage: stage, Elapsed: elapsed})
	if p.metrics != nil {
		p.metrics.RecordStageLatency(stage, elapsed.Seconds())
	}
	return elapsed
}

// terminal assembles the outcome, records it, and best-effort persists and
// publishes it. Sink failures are logged, never propagated: the decision
// already exists and the caller always receives it.
func (p *Pipeline) terminal(assetID string, date time.Time, action models.Action, riskFraction float64, reason models.ReasonCode, trail models.AuditTrail) *models.PipelineOutcome {
	out := &models.PipelineOutcome{
		AssetID:      assetID,
		Date:         date,
		Action:       action,
		RiskFraction: riskFraction,
		ReasonCode:   reason,
		AuditTrail:   trail,
	}
	if p.metrics != nil {
		p.metrics.RecordOutcome(assetID, string(reason))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if p.store != nil {
		if err := p.store.Store(ctx, out); err != nil && p.l != nil {
			p.l.Error("outcome store failed", applogger.Error(err))
			if p.metrics != nil {
				p.metrics.RecordError("store")
			}
		}
	}
	if p.pub != nil {
		if err := p.pub.Publish(ctx, out); err != nil && p.l != nil {
			p.l.Error("outcome publish failed", applogger.Error(err))
			if p.metrics != nil {
				p.metrics.RecordError("publish")
			}
		}
	}
	return out
}
