// Package cost estimates the USD cost of provider calls from token usage.
package cost

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/doc-analyzer/internal/config"
	"github.com/sells-group/doc-analyzer/internal/model"
)

// Calculator computes costs for LLM usage.
type Calculator struct {
	rates map[string]config.ModelPricing
}

// NewCalculator creates a Calculator with the given per-model rates.
func NewCalculator(pricing config.PricingConfig) *Calculator {
	rates := make(map[string]config.ModelPricing, len(pricing.Models))
	for id, rate := range pricing.Models {
		rates[strings.ToLower(id)] = rate
	}
	return &Calculator{rates: rates}
}

// Rate returns the pricing for a model. Dated snapshots such as
// "gpt-4o-2024-08-06" resolve to the longest configured prefix.
func (c *Calculator) Rate(modelID string) (config.ModelPricing, bool) {
	id := strings.ToLower(modelID)
	if rate, ok := c.rates[id]; ok {
		return rate, true
	}

	var best string
	for k := range c.rates {
		if strings.HasPrefix(id, k+"-") && len(k) > len(best) {
			best = k
		}
	}
	if best == "" {
		return config.ModelPricing{}, false
	}
	return c.rates[best], true
}

// Cost computes the cost of one call. Unknown models cost 0.
func (c *Calculator) Cost(modelID string, input, output int64) float64 {
	rate, ok := c.Rate(modelID)
	if !ok {
		return 0
	}
	inCost := (float64(input) / 1e6) * rate.Input
	outCost := (float64(output) / 1e6) * rate.Output
	return inCost + outCost
}

// Usage returns the token usage of one call with its estimated cost filled in.
func (c *Calculator) Usage(modelID string, input, output int64) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:  input,
		OutputTokens: output,
		Cost:         c.Cost(modelID, input, output),
	}
}

// Log logs token usage and estimated cost with structured zap fields.
func (c *Calculator) Log(provider model.Provider, modelID string, u model.TokenUsage) {
	zap.L().Info("cost attribution",
		zap.String("provider", string(provider)),
		zap.String("model", modelID),
		zap.Int64("input_tokens", u.InputTokens),
		zap.Int64("output_tokens", u.OutputTokens),
		zap.Float64("estimated_cost_usd", u.Cost),
	)
}
