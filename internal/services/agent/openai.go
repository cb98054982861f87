package agent

import (
	"context"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/samber/lo"

	"TradeGate/internal/domain/models"
	domsvc "TradeGate/internal/domain/service"
	"TradeGate/pkg/config"
)

const systemPrompt = `You are a trading analyst. Given a market regime classification for one asset,
produce a single JSON object with exactly these fields:
  "action": one of "BUY", "SELL", "HOLD"
  "confidence": a number between 0 and 1
  "key_claims": a short list (1-16) of factual assertions supporting the action
  "risk_fraction": requested risk budget as a fraction of equity, 0 to 1
Respond with JSON only. Every key claim must be a concrete, checkable statement.`

// OpenAIAgent generates trade proposals through an OpenAI-compatible chat
// completion endpoint. The raw text it returns is validated by the schema
// gate; this client makes no attempt to parse it.
type OpenAIAgent struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAIAgent builds the agent client from config.
func NewOpenAIAgent(cfg *config.Config) (*OpenAIAgent, error) {
	if cfg.Agent.APIKey == "" {
		return nil, fmt.Errorf("agent api key is required")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.Agent.APIKey)}
	if cfg.Agent.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Agent.BaseURL))
	}
	if cfg.Agent.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Agent.Timeout))
	}
	return &OpenAIAgent{
		client:      openai.NewClient(opts...),
		model:       cfg.Agent.Model,
		temperature: cfg.Agent.Temperature,
	}, nil
}

// Generate produces the first candidate proposal for the asset and regime.
func (a *OpenAIAgent) Generate(ctx context.Context, assetID string, cls models.RegimeClassification) (string, error) {
	user, err := buildUserPrompt(assetID, cls)
	if err != nil {
		return "", err
	}
	return a.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(user),
	})
}

// Regenerate retries after a schema failure, appending the previous output
// and the specific validation error to the context.
func (a *OpenAIAgent) Regenerate(ctx context.Context, assetID string, prevRaw string, schemaErr string) (string, error) {
	user := fmt.Sprintf(
		"Your previous response for %s failed schema validation.\nPrevious response:\n%s\n\nValidation error: %s\n\nRegenerate the full JSON object, fixing the error.",
		assetID, prevRaw, schemaErr)
	return a.complete(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(user),
	})
}

func (a *OpenAIAgent) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	param := openai.ChatCompletionNewParams{
		Model:       a.model,
		Messages:    messages,
		Temperature: openai.Float(a.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: lo.ToPtr(shared.NewResponseFormatJSONObjectParam()),
		},
	}
	completion, err := a.client.Chat.Completions.New(ctx, param)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return completion.Choices[0].Message.Content, nil
}

func buildUserPrompt(assetID string, cls models.RegimeClassification) (string, error) {
	payload, err := json.MarshalIndent(cls, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal regime: %w", err)
	}
	return fmt.Sprintf("Asset: %s\nMarket regime classification:\n%s\n\nProduce your decision JSON.", assetID, payload), nil
}

var _ domsvc.ProposalAgent = (*OpenAIAgent)(nil)
