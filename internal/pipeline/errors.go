package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/sells-group/doc-analyzer/internal/analyzer"
	"github.com/sells-group/doc-analyzer/internal/extract"
	"github.com/sells-group/doc-analyzer/internal/gateway"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/response"
)

// FailureMarker prefixes every failure message returned by Run.
const FailureMarker = "❌"

// RunError reports the state a run failed in. Feedback is the evaluator's
// feedback when the failure happened during the retry.
type RunError struct {
	RunID    string
	Stage    model.RunStatus
	Feedback string
	Err      error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("pipeline: run %s failed while %s: %v", e.RunID, e.Stage, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// UnknownVariantError is returned when a Pipeline is built for a variant it
// cannot run.
type UnknownVariantError struct {
	Variant model.Variant
}

func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unsupported variant %q", e.Variant)
}

// FormatFailure turns any error from Execute into a single user-facing
// message starting with FailureMarker.
func FormatFailure(err error) string {
	var re *RunError
	stage := model.RunStatus("")
	feedback := ""
	if errors.As(err, &re) {
		stage = re.Stage
		feedback = re.Feedback
	}

	var (
		ee *extract.ExtractionError
		me *response.MalformedResponseError
		pe *gateway.ProviderError
		ae *analyzer.Error
		ve *UnknownVariantError
	)

	switch {
	case errors.As(err, &ee):
		return fmt.Sprintf("%s %s", FailureMarker, ee.Error())

	case errors.Is(err, context.Canceled):
		return fmt.Sprintf("%s Request cancelled.", FailureMarker)

	case stage == model.RunStatusRetrying && errors.As(err, &me):
		return fmt.Sprintf("%s Retry failed: Could not parse improved output. Feedback was: %s", FailureMarker, feedback)

	case stage == model.RunStatusEvaluating && errors.As(err, &ae):
		return fmt.Sprintf("%s Evaluation failed: %s", FailureMarker, describe(err))

	case errors.As(err, &ae):
		msg := fmt.Sprintf("%s Analysis failed: %s", FailureMarker, describe(err))
		if stage == model.RunStatusRetrying && feedback != "" {
			msg += fmt.Sprintf(" Feedback was: %s", feedback)
		}
		return msg

	case errors.As(err, &pe):
		return fmt.Sprintf("%s Analysis failed: %s", FailureMarker, pe.Error())

	case errors.As(err, &ve):
		return fmt.Sprintf("%s %s", FailureMarker, ve.Error())

	default:
		return fmt.Sprintf("%s Unexpected error: %v", FailureMarker, err)
	}
}

// describe explains an analyzer failure without its wrapping chain.
func describe(err error) string {
	var (
		me *response.MalformedResponseError
		pe *gateway.ProviderError
	)
	switch {
	case errors.As(err, &me):
		if me.Preview == "" {
			return fmt.Sprintf("the model's reply was empty (%s).", me.Schema)
		}
		return fmt.Sprintf("could not parse the model's reply (%s). Reply began with: %s", me.Schema, me.Preview)
	case errors.As(err, &pe):
		if pe.Transient {
			return pe.Error() + " The provider may be temporarily unavailable; try again shortly."
		}
		return pe.Error()
	default:
		return err.Error()
	}
}
