// Package evaluator judges a document analysis with a second LLM pass.
package evaluator

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/doc-analyzer/internal/analyzer"
	"github.com/sells-group/doc-analyzer/internal/gateway"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/prompt"
	"github.com/sells-group/doc-analyzer/internal/response"
)

const taskName = "evaluation"

// Evaluator asks the default provider whether a DocumentAnalysis is
// acceptable. It never retries or falls back.
type Evaluator struct {
	gw gateway.Gateway
}

// New creates an Evaluator.
func New(gw gateway.Gateway) *Evaluator {
	return &Evaluator{gw: gw}
}

// Evaluate returns the verdict on a. Failures are *analyzer.Error.
func (e *Evaluator) Evaluate(ctx context.Context, a *model.DocumentAnalysis) (*model.EvaluationResult, error) {
	res, err := analyzer.Complete(ctx, e.gw, taskName, gateway.Request{
		Provider: model.DefaultProvider,
		System:   prompt.QualityEvaluatorPersona,
		Prompt:   prompt.Evaluation(a),
	}, response.EvaluationSchema)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("evaluator: verdict",
		zap.Bool("acceptable", res.IsAcceptable),
		zap.String("feedback", res.Feedback),
	)
	return res, nil
}
