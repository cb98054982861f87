package entailment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TradeGate/internal/domain/models"
	domsvc "TradeGate/internal/domain/service"
	"TradeGate/pkg/config"
	xhttp "TradeGate/pkg/http"
)

// HTTPClassifier calls an external natural-language-inference service over
// a synchronous request/response boundary. Errors and timeouts surface as
// ErrModelUnavailable so the fact validator can degrade to its fallback.
type HTTPClassifier struct {
	baseURL string
	client  *xhttp.Client
	retries int
}

// NewHTTPClassifier builds the classifier client from config.
func NewHTTPClassifier(cfg *config.Config) *HTTPClassifier {
	timeout := cfg.Entailment.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPClassifier{
		baseURL: cfg.Entailment.BaseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		retries: 2,
	}
}

type classifyRequest struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

type classifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classify posts the premise/hypothesis pair and maps the service label to a
// domain verdict.
func (c *HTTPClassifier) Classify(ctx context.Context, premise, hypothesis string) (models.Verdict, float64, error) {
	if c.client == nil || c.baseURL == "" {
		return "", 0, domsvc.ErrModelUnavailable
	}
	var resp classifyResponse
	if err := c.postWithRetry(ctx, "/nli/classify", classifyRequest{Premise: premise, Hypothesis: hypothesis}, &resp); err != nil {
		return "", 0, fmt.Errorf("%w: %v", domsvc.ErrModelUnavailable, err)
	}
	verdict, err := parseLabel(resp.Label)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", domsvc.ErrModelUnavailable, err)
	}
	return verdict, resp.Confidence, nil
}

func (c *HTTPClassifier) postWithRetry(ctx context.Context, path string, payload, dest interface{}) error {
	var err error
	for i := 1; i <= c.retries+1; i++ {
		err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:  xhttp.MethodPost,
			URL:     c.baseURL + path,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    payload,
		}, dest)
		if err == nil {
			return nil
		}
		select {
		case <-time.After(time.Duration(i) * 50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func parseLabel(label string) (models.Verdict, error) {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "ENTAILMENT":
		return models.VerdictEntailment, nil
	case "CONTRADICTION":
		return models.VerdictContradiction, nil
	case "NEUTRAL":
		return models.VerdictNeutral, nil
	}
	return "", fmt.Errorf("unknown nli label %q", label)
}

var _ domsvc.EntailmentClassifier = (*HTTPClassifier)(nil)
