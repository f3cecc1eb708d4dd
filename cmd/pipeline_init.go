package main

import (
	"go.uber.org/zap"

	"github.com/sells-group/doc-analyzer/internal/config"
	"github.com/sells-group/doc-analyzer/internal/extract"
	"github.com/sells-group/doc-analyzer/internal/gateway"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/pipeline"
)

// pipelineEnv holds the clients and pipelines shared by analyze and serve.
type pipelineEnv struct {
	Gateway   *gateway.Router
	Pipelines map[model.Variant]*pipeline.Pipeline
}

// Pipeline returns the pipeline for a variant, or nil if none was built.
func (pe *pipelineEnv) Pipeline(v model.Variant) *pipeline.Pipeline {
	return pe.Pipelines[v]
}

// initPipelines validates c for mode and builds one pipeline per variant
// over a single extractor and gateway.
func initPipelines(c *config.Config, mode string) (*pipelineEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	ext, err := extract.NewExtractor(c.Extract)
	if err != nil {
		return nil, err
	}

	gw := gateway.NewFromConfig(c)
	if c.Anthropic.Key == "" {
		zap.L().Info("anthropic key not configured, anthropic requests will fall back to openai")
	}

	env := &pipelineEnv{
		Gateway:   gw,
		Pipelines: make(map[model.Variant]*pipeline.Pipeline),
	}
	for _, v := range []model.Variant{model.VariantFee, model.VariantDocument} {
		env.Pipelines[v] = pipeline.FromGateway(v, ext, gw)
	}

	zap.L().Debug("pipelines initialized",
		zap.String("extractor", c.Extract.Provider),
		zap.String("openai_model", gw.Model(model.ProviderOpenAI)),
		zap.String("anthropic_model", gw.Model(model.ProviderAnthropic)),
	)
	return env, nil
}
