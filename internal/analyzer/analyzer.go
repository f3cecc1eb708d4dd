// Package analyzer runs a fixed analysis task against an LLM provider and
// parses the reply into a typed record.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/doc-analyzer/internal/gateway"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/response"
)

// Error reports a failed analysis or evaluation. Err is the underlying
// *gateway.ProviderError or *response.MalformedResponseError.
type Error struct {
	Task     string
	Provider model.Provider
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s analysis with %s failed: %v", e.Task, e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Result is a parsed record together with the provider that produced it.
type Result[T any] struct {
	Value    *T
	Provider model.Provider
	FellBack bool
}

// Option configures an Analyzer.
type Option func(*options)

type options struct {
	fallback bool
}

// WithFallback retries a failed anthropic attempt once against openai.
// Failures on openai are never retried.
func WithFallback() Option {
	return func(o *options) {
		o.fallback = true
	}
}

// Analyzer runs one Task through a Gateway.
type Analyzer[T any] struct {
	gw   gateway.Gateway
	task Task[T]
	opts options
}

// New creates an Analyzer for task.
func New[T any](gw gateway.Gateway, task Task[T], opts ...Option) *Analyzer[T] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Analyzer[T]{gw: gw, task: task, opts: o}
}

// Analyze builds the task prompt for text (appending feedback when non-empty),
// sends it to provider and parses the reply. With fallback enabled, a failed
// anthropic attempt is repeated once on openai and that attempt's outcome is
// final.
func (a *Analyzer[T]) Analyze(ctx context.Context, text string, provider model.Provider, feedback string) (*Result[T], error) {
	v, err := a.attempt(ctx, text, provider, feedback)
	if err == nil {
		return &Result[T]{Value: v, Provider: provider}, nil
	}

	if !a.opts.fallback || provider != model.ProviderAnthropic || ctx.Err() != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.String("task", a.task.Name),
		zap.String("from", string(provider)),
		zap.String("to", string(model.ProviderOpenAI)),
		zap.Error(err),
	}
	var me *response.MalformedResponseError
	if errors.As(err, &me) {
		fields = append(fields, zap.String("reply_preview", me.Preview))
	}
	zap.L().Warn("analyzer: provider failed, falling back", fields...)

	v, err = a.attempt(ctx, text, model.ProviderOpenAI, feedback)
	if err != nil {
		return nil, err
	}
	return &Result[T]{Value: v, Provider: model.ProviderOpenAI, FellBack: true}, nil
}

func (a *Analyzer[T]) attempt(ctx context.Context, text string, provider model.Provider, feedback string) (*T, error) {
	return Complete(ctx, a.gw, a.task.Name, gateway.Request{
		Provider: provider,
		System:   a.task.Persona,
		Prompt:   a.task.Prompt(text, feedback),
	}, a.task.Schema)
}

// Complete sends one request and parses the reply with schema. Failures are
// returned as *Error naming task and the request's provider.
func Complete[T any](ctx context.Context, gw gateway.Gateway, task string, req gateway.Request, schema response.Schema[T]) (*T, error) {
	raw, err := gw.Complete(ctx, req)
	if err != nil {
		return nil, &Error{Task: task, Provider: req.Provider, Err: err}
	}

	v, err := response.Parse(raw, schema)
	if err != nil {
		return nil, &Error{Task: task, Provider: req.Provider, Err: err}
	}
	return v, nil
}
