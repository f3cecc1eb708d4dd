// Package gateway sends a single chat completion to a selected LLM provider.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/doc-analyzer/internal/config"
	"github.com/sells-group/doc-analyzer/internal/cost"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/resilience"
	"github.com/sells-group/doc-analyzer/pkg/anthropic"
	"github.com/sells-group/doc-analyzer/pkg/openai"
)

// Request is one single-turn completion: a system persona plus the prompt
// as the user message. An empty Model uses the provider's configured model.
type Request struct {
	Provider model.Provider
	Model    string
	System   string
	Prompt   string
}

// Gateway completes prompts against an LLM provider.
type Gateway interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ProviderError reports a failed provider call: transport, auth, timeout,
// provider-side fault, or an unusable provider selection.
type ProviderError struct {
	Provider   model.Provider
	StatusCode int
	Transient  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s provider call failed (HTTP %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s provider call failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Router is the Gateway backed by the OpenAI and Anthropic clients.
type Router struct {
	openai    openai.Client
	anthropic anthropic.Client
	cfg       routerConfig
	costs     *cost.Calculator
}

type routerConfig struct {
	timeout            time.Duration
	openaiModel        string
	openaiMaxTokens    int64
	anthropicModel     string
	anthropicMaxTokens int64
}

// New creates a Router from explicit clients. A nil client makes every call
// to that provider fail with a ProviderError.
func New(cfg *config.Config, oa openai.Client, an anthropic.Client, costs *cost.Calculator) *Router {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if costs == nil {
		costs = cost.NewCalculator(cfg.Pricing)
	}
	return &Router{
		openai:    oa,
		anthropic: an,
		costs:     costs,
		cfg: routerConfig{
			timeout:            timeout,
			openaiModel:        cfg.OpenAI.Model,
			openaiMaxTokens:    cfg.OpenAI.MaxTokens,
			anthropicModel:     cfg.Anthropic.Model,
			anthropicMaxTokens: cfg.Anthropic.MaxTokens,
		},
	}
}

// NewFromConfig creates a Router with SDK clients built from cfg. The
// Anthropic client is only created when a key is configured. SDK-level
// retries are disabled.
func NewFromConfig(cfg *config.Config) *Router {
	oaOpts := []openai.Option{openai.WithMaxRetries(0), openai.WithModel(cfg.OpenAI.Model)}
	if cfg.OpenAI.BaseURL != "" {
		oaOpts = append(oaOpts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	oa := openai.NewClient(cfg.OpenAI.Key, oaOpts...)

	var an anthropic.Client
	if cfg.Anthropic.Key != "" {
		anOpts := []anthropic.Option{anthropic.WithMaxRetries(0)}
		if cfg.Anthropic.BaseURL != "" {
			anOpts = append(anOpts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		an = anthropic.NewClient(cfg.Anthropic.Key, anOpts...)
	}

	return New(cfg, oa, an, cost.NewCalculator(cfg.Pricing))
}

// Model returns the configured model for a provider.
func (r *Router) Model(p model.Provider) string {
	switch p {
	case model.ProviderAnthropic:
		return r.cfg.anthropicModel
	default:
		return r.cfg.openaiModel
	}
}

// Complete sends req to its provider under the configured timeout and
// returns the reply trimmed of surrounding whitespace.
func (r *Router) Complete(ctx context.Context, req Request) (string, error) {
	modelID := req.Model
	if modelID == "" {
		modelID = r.Model(req.Provider)
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, r.cfg.timeout)
	defer cancel()

	start := time.Now()
	var (
		text   string
		usage  model.TokenUsage
		status int
		err    error
	)
	switch req.Provider {
	case model.ProviderOpenAI:
		text, usage, status, err = r.completeOpenAI(ctx, modelID, req)
	case model.ProviderAnthropic:
		text, usage, status, err = r.completeAnthropic(ctx, modelID, req)
	default:
		return "", &ProviderError{
			Provider: req.Provider,
			Err:      eris.Errorf("gateway: unsupported provider %q", req.Provider),
		}
	}

	log := zap.L().With(
		zap.String("provider", string(req.Provider)),
		zap.String("model", modelID),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err != nil {
		switch {
		case parent.Err() != nil:
			err = eris.Wrapf(parent.Err(), "gateway: %s call aborted by caller", req.Provider)
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = eris.Wrapf(ctx.Err(), "gateway: %s call timed out after %s", req.Provider, r.cfg.timeout)
		}
		pe := &ProviderError{
			Provider:   req.Provider,
			StatusCode: status,
			Transient:  resilience.IsTransient(err, status),
			Err:        err,
		}
		log.Warn("gateway: provider call failed",
			zap.Int("status", status),
			zap.Bool("transient", pe.Transient),
			zap.Error(err),
		)
		return "", pe
	}

	r.costs.Log(req.Provider, modelID, usage)
	log.Debug("gateway: provider call complete", zap.Int("chars", len(text)))

	return strings.TrimSpace(text), nil
}

func (r *Router) completeOpenAI(ctx context.Context, modelID string, req Request) (string, model.TokenUsage, int, error) {
	if r.openai == nil {
		return "", model.TokenUsage{}, 0, eris.New("gateway: openai client not configured")
	}

	var msgs []openai.Message
	if req.System != "" {
		msgs = append(msgs, openai.Message{Role: "system", Content: req.System})
	}
	msgs = append(msgs, openai.Message{Role: "user", Content: req.Prompt})

	resp, err := r.openai.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     modelID,
		Messages:  msgs,
		MaxTokens: r.cfg.openaiMaxTokens,
	})
	if err != nil {
		return "", model.TokenUsage{}, openai.StatusCode(err), err
	}

	usage := r.costs.Usage(modelID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp.Text(), usage, 0, nil
}

func (r *Router) completeAnthropic(ctx context.Context, modelID string, req Request) (string, model.TokenUsage, int, error) {
	if r.anthropic == nil {
		return "", model.TokenUsage{}, 0, eris.New("gateway: anthropic API key not configured")
	}

	maxTokens := r.cfg.anthropicMaxTokens
	if maxTokens <= 0 {
		maxTokens = 1000
	}

	resp, err := r.anthropic.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []anthropic.Message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", model.TokenUsage{}, anthropic.StatusCode(err), err
	}

	usage := r.costs.Usage(modelID, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	return resp.Text(), usage, 0, nil
}
