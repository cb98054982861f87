package api

import (
	"time"

	"github.com/labstack/echo/v4"

	"TradeGate/internal/domain/models"
	domrepo "TradeGate/internal/domain/repository"
	"TradeGate/internal/service/metrics"
	"TradeGate/internal/service/ratelimit"
	"TradeGate/internal/usecase"
	pkgcache "TradeGate/pkg/cache"
	xhttp "TradeGate/pkg/http"
	applogger "TradeGate/pkg/logger"
)

// DecisionsHandler exposes the evaluation pipeline and the outcome history
// over Echo routes.
type DecisionsHandler struct {
	pipeline *usecase.Pipeline
	store    domrepo.OutcomeStore
	cache    pkgcache.Service
	rl       *ratelimit.Limiter
	logger   *applogger.Logger

	cacheTTL time.Duration
	rlRPS    float64
	rlBurst  float64
}

func NewDecisionsHandler(logger *applogger.Logger, pipeline *usecase.Pipeline) *DecisionsHandler {
	metrics.Register()
	return &DecisionsHandler{
		pipeline: pipeline,
		rl:       ratelimit.New(),
		logger:   logger,
		cacheTTL: time.Minute,
		rlRPS:    5,
		rlBurst:  10,
	}
}

// SetStore enables the outcome read-back endpoint.
func (h *DecisionsHandler) SetStore(store domrepo.OutcomeStore) { h.store = store }

// SetCache enables response caching on the read path.
func (h *DecisionsHandler) SetCache(c pkgcache.Service, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

// SetRateLimit overrides the per-client rate limit.
func (h *DecisionsHandler) SetRateLimit(rps float64, burst int) {
	if rps > 0 {
		h.rlRPS = rps
	}
	if burst > 0 {
		h.rlBurst = float64(burst)
	}
}

func (h *DecisionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/v1")
	g.POST("/evaluate", h.Evaluate)
	g.GET("/outcomes", h.Outcomes)
	g.GET("/health", h.Health)
}

func (h *DecisionsHandler) Evaluate(c echo.Context) error {
	start := time.Now()
	endpoint := "evaluate"
	defer func() { metrics.HandlerLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if !h.rl.Allow(c.RealIP()+":evaluate", h.rlBurst, h.rlRPS) {
		h.logger.Warn("evaluate rate_limited", applogger.String("remote", c.RealIP()))
		return xhttp.TooManyRequestsResponse(c)
	}

	req := &models.EvaluateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	in, err := buildEvaluationInput(req)
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_BARS",
			Field:   "bars",
			Message: err.Error(),
		}})
	}

	out, err := h.pipeline.Evaluate(c.Request().Context(), in)
	if err != nil {
		h.logger.Error("evaluation failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("evaluation failed: %v", err))
	}
	if !out.Approved() {
		h.logger.Info("evaluation rejected",
			applogger.String("asset", out.AssetID),
			applogger.String("reason", string(out.ReasonCode)),
		)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *DecisionsHandler) Outcomes(c echo.Context) error {
	start := time.Now()
	endpoint := "outcomes"
	defer func() { metrics.HandlerLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.OutcomesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.store == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("outcome storage is not configured"))
	}

	cacheKey := pkgcache.GenerateKeyWithParams("outcomes", req.AssetID, req.Limit)
	if h.cache != nil {
		var cached []*models.PipelineOutcome
		if err := h.cache.Get(c.Request().Context(), cacheKey, &cached); err == nil {
			return xhttp.ListResponse(c, cached, int64(len(cached)))
		}
	}

	rows, err := h.store.Query(c.Request().Context(), req.AssetID, req.Limit)
	if err != nil {
		metrics.HandlerErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("outcomes query error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if err := h.cache.Set(c.Request().Context(), cacheKey, rows, h.cacheTTL); err != nil {
			h.logger.Warn("outcomes cache_set_error", applogger.Error(err))
		}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *DecisionsHandler) Health(c echo.Context) error {
	if h.store != nil {
		if err := h.store.Health(c.Request().Context()); err != nil {
			return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("storage unhealthy: %v", err))
		}
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func buildEvaluationInput(req *models.EvaluateRequest) (usecase.EvaluationInput, error) {
	bars := make([]models.Bar, 0, len(req.Bars))
	for _, b := range req.Bars {
		bars = append(bars, models.Bar{
			Date:   b.Date,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	series, err := models.NewPriceSeries(req.AssetID, bars)
	if err != nil {
		return usecase.EvaluationInput{}, err
	}

	facts := make(map[string]models.GroundTruthFact, len(req.Facts))
	for _, f := range req.Facts {
		facts[f.MetricName] = models.GroundTruthFact{
			MetricName: f.MetricName,
			Value:      f.Value,
			Unit:       f.Unit,
			ScopeDate:  f.ScopeDate,
		}
	}

	var ledger *models.LedgerSnapshot
	if req.Ledger != nil {
		ledger = &models.LedgerSnapshot{
			Position:           models.Position(req.Ledger.Position),
			AllocationFraction: req.Ledger.AllocationFraction,
			OpenHeat:           req.Ledger.OpenHeat,
			Equity:             req.Ledger.Equity,
			HighWaterMark:      req.Ledger.HighWaterMark,
		}
	}

	return usecase.EvaluationInput{
		Series: series,
		Date:   req.Date,
		Facts:  facts,
		Ledger: ledger,
	}, nil
}
