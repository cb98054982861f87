package risk

import (
	"fmt"

	"github.com/cinar/indicator"

	"TradeGate/internal/domain/models"
	applogger "TradeGate/pkg/logger"
)

// Limits are the configured risk bounds.
type Limits struct {
	RiskPerTradeMax        float64 // max risk fraction per trade
	PortfolioHeatMax       float64 // max aggregate open risk
	CircuitBreakerDrawdown float64 // drawdown from HWM that trips the breaker
	MaxSingleAssetExposure float64 // max allocation fraction for one asset
}

// DefaultLimits returns the documented defaults.
func DefaultLimits() Limits {
	return Limits{
		RiskPerTradeMax:        0.02,
		PortfolioHeatMax:       0.10,
		CircuitBreakerDrawdown: 0.15,
		MaxSingleAssetExposure: 0.25,
	}
}

// baselineVolFraction is the ATR/price level at which sizing runs
// unpenalized; noisier markets scale the budget down proportionally.
const baselineVolFraction = 0.02

// Gate applies the deterministic risk checks in fixed order. It decides,
// it never mutates portfolio or ledger state.
type Gate struct {
	limits Limits
	l      *applogger.Logger
}

// NewGate creates a risk gate with the given limits.
func NewGate(limits Limits) *Gate {
	if limits.RiskPerTradeMax <= 0 {
		limits = DefaultLimits()
	}
	return &Gate{limits: limits}
}

// SetLogger injects a structured logger.
func (g *Gate) SetLogger(l *applogger.Logger) { g.l = l }

// Evaluate runs the ordered checks: transition legality first (cheapest),
// then the circuit breaker, then volatility-normalized sizing, then
// portfolio heat. volFraction is an ATR-like volatility divided by price.
func (g *Gate) Evaluate(p models.TradeProposal, snap models.LedgerSnapshot, volFraction float64) models.RiskDecision {
	// HOLD carries no risk and passes trivially.
	if p.Action == models.ActionHold {
		return models.RiskDecision{Approved: true, AdjustedRiskFraction: 0}
	}

	if d, rejected := g.checkTransition(p, snap); rejected {
		return d
	}
	if d, rejected := g.checkCircuitBreaker(p, snap); rejected {
		return d
	}

	// SELL of an existing long reduces risk; it exits the current
	// allocation and is exempt from sizing and heat.
	if p.Action == models.ActionSell {
		return models.RiskDecision{
			Approved:             true,
			AdjustedRiskFraction: snap.AllocationFraction,
			Detail:               "risk-reducing exit of existing long",
		}
	}

	size := g.sizePosition(p, volFraction)
	return g.checkHeat(size, snap)
}

func (g *Gate) checkTransition(p models.TradeProposal, snap models.LedgerSnapshot) (models.RiskDecision, bool) {
	if p.Action == models.ActionSell && snap.Position != models.PositionLong {
		return models.RiskDecision{
			Approved:        false,
			RejectionReason: models.ReasonInvalidTransition,
			Detail:          fmt.Sprintf("SELL with no existing long position (position=%s)", snap.Position),
		}, true
	}
	if p.Action == models.ActionBuy && snap.AllocationFraction+p.ProposedRiskFraction > g.limits.MaxSingleAssetExposure {
		return models.RiskDecision{
			Approved:        false,
			RejectionReason: models.ReasonInvalidTransition,
			Detail: fmt.Sprintf("BUY would push single-asset exposure to %.4f past limit %.4f",
				snap.AllocationFraction+p.ProposedRiskFraction, g.limits.MaxSingleAssetExposure),
		}, true
	}
	return models.RiskDecision{}, false
}

func (g *Gate) checkCircuitBreaker(p models.TradeProposal, snap models.LedgerSnapshot) (models.RiskDecision, bool) {
	dd := snap.Drawdown()
	if dd <= g.limits.CircuitBreakerDrawdown {
		return models.RiskDecision{}, false
	}
	// Only risk-reducing actions are permitted while tripped.
	if p.Action == models.ActionSell && snap.Position == models.PositionLong {
		return models.RiskDecision{}, false
	}
	return models.RiskDecision{
		Approved:        false,
		RejectionReason: models.ReasonCircuitBreaker,
		Detail:          fmt.Sprintf("drawdown %.4f exceeds breaker threshold %.4f", dd, g.limits.CircuitBreakerDrawdown),
	}, true
}

// sizePosition computes the volatility-normalized size: the per-trade risk
// budget divided by a volatility multiple, capped at the per-trade limit and
// at the proposal's own request.
func (g *Gate) sizePosition(p models.TradeProposal, volFraction float64) float64 {
	volMultiple := 1.0
	if volFraction > baselineVolFraction {
		volMultiple = volFraction / baselineVolFraction
	}
	size := g.limits.RiskPerTradeMax / volMultiple
	if p.ProposedRiskFraction > 0 && p.ProposedRiskFraction < size {
		size = p.ProposedRiskFraction
	}
	if size > g.limits.RiskPerTradeMax {
		size = g.limits.RiskPerTradeMax
	}
	return size
}

// checkHeat caps the sized trade to the remaining portfolio headroom;
// zero headroom rejects outright.
func (g *Gate) checkHeat(size float64, snap models.LedgerSnapshot) models.RiskDecision {
	headroom := g.limits.PortfolioHeatMax - snap.OpenHeat
	if headroom <= 0 {
		return models.RiskDecision{
			Approved:        false,
			RejectionReason: models.ReasonRiskLimitExceeded,
			Detail: fmt.Sprintf("portfolio heat %.4f at or above limit %.4f",
				snap.OpenHeat, g.limits.PortfolioHeatMax),
		}
	}
	detail := ""
	if size > headroom {
		detail = fmt.Sprintf("size capped from %.4f to remaining headroom %.4f", size, headroom)
		size = headroom
	}
	return models.RiskDecision{Approved: true, AdjustedRiskFraction: size, Detail: detail}
}

// ATRFraction computes the latest average-true-range over period bars
// divided by the latest close, the volatility input to sizing. Returns 0
// when the series is too short.
func ATRFraction(series *models.PriceSeries, period int) float64 {
	if period <= 0 {
		period = 14
	}
	if series == nil || series.Len() <= period {
		return 0
	}
	high, low, closing := series.HighLowClose()
	_, atr := indicator.Atr(period, high, low, closing)
	last := closing[len(closing)-1]
	if last <= 0 || len(atr) == 0 {
		return 0
	}
	return atr[len(atr)-1] / last
}
