// Package pipeline drives one document through extraction, analysis,
// optional evaluation and formatting.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/doc-analyzer/internal/analyzer"
	"github.com/sells-group/doc-analyzer/internal/evaluator"
	"github.com/sells-group/doc-analyzer/internal/extract"
	"github.com/sells-group/doc-analyzer/internal/gateway"
	"github.com/sells-group/doc-analyzer/internal/model"
)

// FeeAnalyzer produces fee scenarios from document text.
type FeeAnalyzer interface {
	Analyze(ctx context.Context, text string, provider model.Provider, feedback string) (*analyzer.Result[model.FeeScheduleAnalysis], error)
}

// DocumentAnalyzer produces the four-section document analysis.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, text string, provider model.Provider, feedback string) (*analyzer.Result[model.DocumentAnalysis], error)
}

// Evaluator judges a document analysis.
type Evaluator interface {
	Evaluate(ctx context.Context, a *model.DocumentAnalysis) (*model.EvaluationResult, error)
}

// Deps are the collaborators of a Pipeline. Fee is required for the fee
// variant; Document and Evaluator for the document variant.
type Deps struct {
	Extractor extract.Extractor
	Fee       FeeAnalyzer
	Document  DocumentAnalyzer
	Evaluator Evaluator
}

// Pipeline runs one Variant. It holds no per-request state and is safe for
// concurrent use.
type Pipeline struct {
	variant model.Variant
	deps    Deps
}

// New creates a Pipeline from explicit collaborators.
func New(variant model.Variant, deps Deps) *Pipeline {
	return &Pipeline{variant: variant, deps: deps}
}

// FromGateway wires the standard analyzers and evaluator over gw. The fee
// analyzer falls back from anthropic to openai.
func FromGateway(variant model.Variant, ext extract.Extractor, gw gateway.Gateway) *Pipeline {
	return New(variant, Deps{
		Extractor: ext,
		Fee:       analyzer.New(gw, analyzer.FeeScheduleTask, analyzer.WithFallback()),
		Document:  analyzer.New(gw, analyzer.DocumentTask),
		Evaluator: evaluator.New(gw),
	})
}

// Variant returns the variant this pipeline runs.
func (p *Pipeline) Variant() model.Variant {
	return p.variant
}

// Outcome is the structured result of one run. Exactly one of Fee and
// Document is set on success.
type Outcome struct {
	RunID      string                     `json:"run_id" yaml:"run_id"`
	Variant    model.Variant              `json:"variant" yaml:"variant"`
	Provider   model.Provider             `json:"provider" yaml:"provider"`
	Fee        *model.FeeScheduleAnalysis `json:"fee,omitempty" yaml:"fee,omitempty"`
	Document   *model.DocumentAnalysis    `json:"document,omitempty" yaml:"document,omitempty"`
	Evaluation *model.EvaluationResult    `json:"evaluation,omitempty" yaml:"evaluation,omitempty"`
	Retried    bool                       `json:"retried" yaml:"retried"`
	FellBack   bool                       `json:"fell_back" yaml:"fell_back"`
	Trace      []model.RunStatus          `json:"trace" yaml:"trace"`
	Duration   time.Duration              `json:"duration_ns" yaml:"duration"`

	// Report is the formatted result shown to users.
	Report string `json:"-" yaml:"-"`
}

// Status returns the last state the run reached.
func (o *Outcome) Status() model.RunStatus {
	if len(o.Trace) == 0 {
		return ""
	}
	return o.Trace[len(o.Trace)-1]
}

// Run executes the pipeline and always returns a display-ready string: the
// formatted result, or a failure message starting with FailureMarker.
func (p *Pipeline) Run(ctx context.Context, pdf []byte, provider model.Provider) string {
	out, err := p.Execute(ctx, pdf, provider)
	if err != nil {
		return FormatFailure(err)
	}
	return out.Report
}

// Execute runs the pipeline and returns the structured outcome. On failure
// the partial outcome is returned together with a *RunError.
func (p *Pipeline) Execute(ctx context.Context, pdf []byte, provider model.Provider) (*Outcome, error) {
	r := &run{
		out: &Outcome{
			RunID:    uuid.NewString(),
			Variant:  p.variant,
			Provider: provider,
		},
		start: time.Now(),
	}
	r.log = zap.L().With(
		zap.String("run_id", r.out.RunID),
		zap.String("variant", string(p.variant)),
	)
	r.log.Info("pipeline: starting run", zap.String("provider", string(provider)), zap.Int("bytes", len(pdf)))

	if p.variant == model.VariantDocument && provider != model.DefaultProvider {
		r.log.Debug("pipeline: document variant always uses the default provider",
			zap.String("requested", string(provider)))
		r.out.Provider = model.DefaultProvider
	}

	// ===== Extracting =====
	r.enter(model.RunStatusExtracting)
	text, err := p.deps.Extractor.ExtractText(ctx, pdf)
	if err != nil {
		return r.fail(err, "")
	}

	// ===== Analyzing (and evaluating) =====
	r.enter(model.RunStatusAnalyzing)
	switch p.variant {
	case model.VariantFee:
		err = p.runFee(ctx, r, text)
	case model.VariantDocument:
		err = p.runDocument(ctx, r, text)
	default:
		err = &UnknownVariantError{Variant: p.variant}
	}
	if err != nil {
		return r.fail(err, r.feedback)
	}

	// ===== Formatting =====
	r.enter(model.RunStatusFormatting)
	r.out.Report = Format(r.out)
	r.enter(model.RunStatusDone)
	r.out.Duration = time.Since(r.start)
	r.log.Info("pipeline: run complete",
		zap.String("provider", string(r.out.Provider)),
		zap.Bool("retried", r.out.Retried),
		zap.Bool("fell_back", r.out.FellBack),
		zap.Duration("elapsed", r.out.Duration),
	)
	return r.out, nil
}

func (p *Pipeline) runFee(ctx context.Context, r *run, text string) error {
	res, err := p.deps.Fee.Analyze(ctx, text, r.out.Provider, "")
	if err != nil {
		return err
	}
	r.out.Fee = res.Value
	r.out.Provider = res.Provider
	r.out.FellBack = res.FellBack
	return nil
}

func (p *Pipeline) runDocument(ctx context.Context, r *run, text string) error {
	res, err := p.deps.Document.Analyze(ctx, text, r.out.Provider, "")
	if err != nil {
		return err
	}
	r.out.Document = res.Value

	r.enter(model.RunStatusEvaluating)
	verdict, err := p.deps.Evaluator.Evaluate(ctx, res.Value)
	if err != nil {
		return err
	}
	r.out.Evaluation = verdict
	if verdict.IsAcceptable {
		return nil
	}

	// One retry with the evaluator's feedback. Its result is final.
	r.enter(model.RunStatusRetrying)
	r.feedback = verdict.Feedback
	r.out.Retried = true
	r.log.Warn("pipeline: evaluation rejected analysis, retrying with feedback",
		zap.String("feedback", verdict.Feedback))

	res, err = p.deps.Document.Analyze(ctx, text, r.out.Provider, verdict.Feedback)
	if err != nil {
		return err
	}
	r.out.Document = res.Value
	return nil
}

// run is the mutable state of a single Execute call.
type run struct {
	out      *Outcome
	log      *zap.Logger
	start    time.Time
	entered  time.Time
	feedback string
}

func (r *run) enter(status model.RunStatus) {
	now := time.Now()
	if prev := r.out.Status(); prev != "" {
		r.log.Debug("pipeline: state complete",
			zap.String("state", string(prev)),
			zap.Int64("duration_ms", now.Sub(r.entered).Milliseconds()),
		)
	}
	r.entered = now
	r.out.Trace = append(r.out.Trace, status)
	r.log.Info("pipeline: state", zap.String("state", string(status)))
}

func (r *run) fail(err error, feedback string) (*Outcome, error) {
	stage := r.out.Status()
	r.enter(model.RunStatusErrored)
	r.out.Duration = time.Since(r.start)
	r.log.Error("pipeline: run failed",
		zap.String("stage", string(stage)),
		zap.Duration("elapsed", r.out.Duration),
		zap.Error(err),
	)
	return r.out, &RunError{
		RunID:    r.out.RunID,
		Stage:    stage,
		Feedback: feedback,
		Err:      err,
	}
}
