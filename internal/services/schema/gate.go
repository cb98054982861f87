package schema

import (
	"context"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kaptinlin/jsonrepair"

	"TradeGate/internal/domain/models"
	domsvc "TradeGate/internal/domain/service"
	applogger "TradeGate/pkg/logger"
)

// Gate enforces the structured-output contract on agent responses. Invalid
// output is not simply rejected: the gate requests regeneration with the
// specific validation error appended, up to maxRetries times. The gate is
// total: it always returns a populated envelope, never nil.
type Gate struct {
	agent      domsvc.ProposalAgent
	maxRetries int
	validate   *validator.Validate
	l          *applogger.Logger
}

// NewGate creates a schema gate with the given retry budget.
func NewGate(agent domsvc.ProposalAgent, maxRetries int) *Gate {
	if maxRetries < 0 {
		maxRetries = 2
	}
	return &Gate{agent: agent, maxRetries: maxRetries, validate: validator.New()}
}

// SetLogger injects a structured logger.
func (g *Gate) SetLogger(l *applogger.Logger) { g.l = l }

// Run obtains a candidate from the agent and drives it through parse and
// structural validation, regenerating on failure. Returns the envelope plus
// the accumulated validation errors for the audit trail. Exhausted retries
// yield SchemaValid=false; the orchestrator routes that to SCHEMA_INVALID.
func (g *Gate) Run(ctx context.Context, assetID string, cls models.RegimeClassification) (*models.AgentOutputEnvelope, []string) {
	var schemaErrs []string

	raw, err := g.agent.Generate(ctx, assetID, cls)
	for attempt := 0; ; attempt++ {
		if err != nil {
			schemaErrs = append(schemaErrs, fmt.Sprintf("agent call failed: %v", err))
		} else {
			parsed, perr := g.parse(raw)
			if perr == nil {
				return &models.AgentOutputEnvelope{
					RawText:     raw,
					Parsed:      parsed,
					SchemaValid: true,
					RetryCount:  attempt,
				}, schemaErrs
			}
			schemaErrs = append(schemaErrs, perr.Error())
		}

		if attempt >= g.maxRetries {
			if g.l != nil {
				g.l.Warn("schema gate retries exhausted",
					applogger.String("asset", assetID),
					applogger.Int("attempts", attempt+1),
				)
			}
			return &models.AgentOutputEnvelope{
				RawText:     raw,
				SchemaValid: false,
				RetryCount:  attempt,
			}, schemaErrs
		}

		lastErr := schemaErrs[len(schemaErrs)-1]
		raw, err = g.agent.Regenerate(ctx, assetID, raw, lastErr)
	}
}

// parse repairs common LLM JSON defects, unmarshals, applies field defaults
// and validates the structural contract.
func (g *Gate) parse(raw string) (models.ParsedFields, error) {
	var fields models.ParsedFields

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return fields, fmt.Errorf("repair json: %w", err)
	}
	if err := json.UnmarshalString(repaired, &fields); err != nil {
		return fields, fmt.Errorf("parse fields: %w", err)
	}
	if err := defaults.Set(&fields); err != nil {
		return fields, fmt.Errorf("apply defaults: %w", err)
	}
	if err := g.validate.Struct(&fields); err != nil {
		return fields, fmt.Errorf("validate fields: %w", err)
	}
	return fields, nil
}
