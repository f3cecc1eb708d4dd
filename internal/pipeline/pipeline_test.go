package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/doc-analyzer/internal/analyzer"
	"github.com/sells-group/doc-analyzer/internal/extract"
	"github.com/sells-group/doc-analyzer/internal/gateway"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/prompt"
	"github.com/sells-group/doc-analyzer/internal/response"
)

var pdf = []byte("%PDF-1.4 fake")

const (
	feeText     = "Fee schedule: Tier A market orders $0.003, Tier B $0.002"
	feeReply    = `{"scenarios":[{"participant_type":"Member","volume_tier":"Tier A","order_type":"Market","estimated_fee":"$0.003 per share","rebate":"None","notes":"Top tier"}]}`
	docReply    = `{"summary":"A services agreement.","key_topics":["scope","fees"],"risks_or_issues":["vague SLA"],"recommended_actions":["define SLA"]}`
	acceptReply = `{"is_acceptable": true, "feedback": "Good."}`
)

func byPersona(persona string) any {
	return mock.MatchedBy(func(req gateway.Request) bool { return req.System == persona })
}

func textExtractor(text string) *mockExtractor {
	ext := new(mockExtractor)
	ext.On("ExtractText", mock.Anything, mock.Anything).Return(text, nil)
	return ext
}

func docResult(summary string) *analyzer.Result[model.DocumentAnalysis] {
	return &analyzer.Result[model.DocumentAnalysis]{
		Value: &model.DocumentAnalysis{
			Summary:            summary,
			KeyTopics:          []string{"t"},
			RisksOrIssues:      []string{"r"},
			RecommendedActions: []string{"a"},
		},
		Provider: model.ProviderOpenAI,
	}
}

func TestRun_FeeScheduleScenario(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Complete", mock.Anything, mock.MatchedBy(func(req gateway.Request) bool {
		return req.Provider == model.ProviderOpenAI && strings.Contains(req.Prompt, feeText)
	})).Return(feeReply, nil).Once()

	p := FromGateway(model.VariantFee, textExtractor(feeText), gw)
	out := p.Run(context.Background(), pdf, model.ProviderOpenAI)

	assert.True(t, strings.HasPrefix(out, "📊 **Fee Scenario Variations**"))
	assert.Contains(t, out, "Tier A")
	assert.Contains(t, out, "$0.003 per share")
	gw.AssertExpectations(t)
}

func TestRun_EmptyFile(t *testing.T) {
	gw := new(mockGateway)
	ext := extract.Checked(textExtractor("never used"))

	p := FromGateway(model.VariantDocument, ext, gw)

	var out string
	require.NotPanics(t, func() {
		out = p.Run(context.Background(), nil, model.ProviderOpenAI)
	})
	assert.True(t, strings.HasPrefix(out, FailureMarker))
	assert.Contains(t, out, "failed to extract text from PDF: file is empty")
	gw.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestExecute_EvaluatorAccepts(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Complete", mock.Anything, byPersona(prompt.DocumentExpertPersona)).Return(docReply, nil).Once()
	gw.On("Complete", mock.Anything, byPersona(prompt.QualityEvaluatorPersona)).Return(acceptReply, nil).Once()

	p := FromGateway(model.VariantDocument, textExtractor("contract"), gw)
	out, err := p.Execute(context.Background(), pdf, model.ProviderOpenAI)
	require.NoError(t, err)

	gw.AssertNumberOfCalls(t, "Complete", 2)
	assert.False(t, out.Retried)
	assert.True(t, out.Evaluation.IsAcceptable)
	assert.Equal(t, "A services agreement.", out.Document.Summary)
	assert.Equal(t, []model.RunStatus{
		model.RunStatusExtracting,
		model.RunStatusAnalyzing,
		model.RunStatusEvaluating,
		model.RunStatusFormatting,
		model.RunStatusDone,
	}, out.Trace)
	assert.Contains(t, out.Report, "📄 **Summary**\nA services agreement.")
	assert.NotEmpty(t, out.RunID)
}

func TestExecute_RetryOnce(t *testing.T) {
	doc := new(mockDocumentAnalyzer)
	doc.On("Analyze", mock.Anything, "contract", model.ProviderOpenAI, "").Return(docResult("first"), nil).Once()
	doc.On("Analyze", mock.Anything, "contract", model.ProviderOpenAI, "Be specific.").Return(docResult("second"), nil).Once()

	eval := new(mockEvaluator)
	eval.On("Evaluate", mock.Anything, mock.Anything).
		Return(&model.EvaluationResult{IsAcceptable: false, Feedback: "Be specific."}, nil)

	p := New(model.VariantDocument, Deps{Extractor: textExtractor("contract"), Document: doc, Evaluator: eval})
	out, err := p.Execute(context.Background(), pdf, model.ProviderOpenAI)
	require.NoError(t, err)

	doc.AssertNumberOfCalls(t, "Analyze", 2)
	eval.AssertNumberOfCalls(t, "Evaluate", 1)
	assert.True(t, out.Retried)
	assert.Equal(t, "second", out.Document.Summary)
	assert.Equal(t, model.RunStatusDone, out.Status())
	assert.Contains(t, out.Trace, model.RunStatusRetrying)
	assert.Contains(t, out.Report, "second")
}

func TestExecute_RetryThroughGateway(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Complete", mock.Anything, byPersona(prompt.DocumentExpertPersona)).Return(docReply, nil).Twice()
	gw.On("Complete", mock.Anything, byPersona(prompt.QualityEvaluatorPersona)).
		Return(`{"is_acceptable": false, "feedback": "List more risks."}`, nil).Once()

	p := FromGateway(model.VariantDocument, textExtractor("contract"), gw)
	out, err := p.Execute(context.Background(), pdf, model.ProviderOpenAI)
	require.NoError(t, err)
	assert.True(t, out.Retried)
	gw.AssertNumberOfCalls(t, "Complete", 3)

	last := gw.Calls[2].Arguments.Get(1).(gateway.Request)
	assert.Contains(t, last.Prompt, "# Feedback from evaluator:\nList more risks.")
}

func TestRun_RetryParseFailureCarriesFeedback(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Complete", mock.Anything, byPersona(prompt.DocumentExpertPersona)).Return(docReply, nil).Once()
	gw.On("Complete", mock.Anything, byPersona(prompt.QualityEvaluatorPersona)).
		Return(`{"is_acceptable": false, "feedback": "Add actions."}`, nil).Once()
	gw.On("Complete", mock.Anything, byPersona(prompt.DocumentExpertPersona)).Return("I cannot comply.", nil).Once()

	p := FromGateway(model.VariantDocument, textExtractor("contract"), gw)
	out := p.Run(context.Background(), pdf, model.ProviderOpenAI)

	assert.Equal(t, "❌ Retry failed: Could not parse improved output. Feedback was: Add actions.", out)
}

func TestExecute_EvaluationFailureIsFatal(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Complete", mock.Anything, byPersona(prompt.DocumentExpertPersona)).Return(docReply, nil).Once()
	gw.On("Complete", mock.Anything, byPersona(prompt.QualityEvaluatorPersona)).Return("{invalid json}", nil).Once()

	p := FromGateway(model.VariantDocument, textExtractor("contract"), gw)
	out, err := p.Execute(context.Background(), pdf, model.ProviderOpenAI)
	require.Error(t, err)

	var re *RunError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, model.RunStatusEvaluating, re.Stage)
	assert.Equal(t, model.RunStatusErrored, out.Status())
	assert.True(t, strings.HasPrefix(FormatFailure(err), "❌ Evaluation failed:"))
	gw.AssertNumberOfCalls(t, "Complete", 2)
}

func TestExecute_DocumentVariantUsesDefaultProvider(t *testing.T) {
	doc := new(mockDocumentAnalyzer)
	doc.On("Analyze", mock.Anything, "contract", model.ProviderOpenAI, "").Return(docResult("ok"), nil).Once()
	eval := new(mockEvaluator)
	eval.On("Evaluate", mock.Anything, mock.Anything).Return(&model.EvaluationResult{IsAcceptable: true}, nil)

	p := New(model.VariantDocument, Deps{Extractor: textExtractor("contract"), Document: doc, Evaluator: eval})
	out, err := p.Execute(context.Background(), pdf, model.ProviderAnthropic)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderOpenAI, out.Provider)
	doc.AssertExpectations(t)
}

func TestExecute_FeeFallbackRecorded(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Complete", mock.Anything, mock.MatchedBy(func(req gateway.Request) bool {
		return req.Provider == model.ProviderAnthropic
	})).Return("", &gateway.ProviderError{Provider: model.ProviderAnthropic, Err: errors.New("401")}).Once()
	gw.On("Complete", mock.Anything, mock.MatchedBy(func(req gateway.Request) bool {
		return req.Provider == model.ProviderOpenAI
	})).Return(feeReply, nil).Once()

	p := FromGateway(model.VariantFee, textExtractor(feeText), gw)
	out, err := p.Execute(context.Background(), pdf, model.ProviderAnthropic)
	require.NoError(t, err)
	assert.True(t, out.FellBack)
	assert.Equal(t, model.ProviderOpenAI, out.Provider)
	assert.Nil(t, out.Evaluation)
	assert.NotContains(t, out.Trace, model.RunStatusEvaluating)
}

func TestRun_FeeProviderFailure(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Complete", mock.Anything, mock.Anything).
		Return("", &gateway.ProviderError{Provider: model.ProviderOpenAI, StatusCode: 401, Err: errors.New("invalid api key")}).Once()

	p := FromGateway(model.VariantFee, textExtractor(feeText), gw)
	out := p.Run(context.Background(), pdf, model.ProviderOpenAI)

	assert.True(t, strings.HasPrefix(out, "❌ Analysis failed:"))
	assert.Contains(t, out, "openai provider call failed (HTTP 401)")
	gw.AssertNumberOfCalls(t, "Complete", 1)
}

func TestRun_MalformedReplyShowsPreview(t *testing.T) {
	gw := new(mockGateway)
	gw.On("Complete", mock.Anything, mock.Anything).Return("Here are the scenarios you asked for", nil).Once()

	p := FromGateway(model.VariantFee, textExtractor(feeText), gw)
	out := p.Run(context.Background(), pdf, model.ProviderOpenAI)

	assert.True(t, strings.HasPrefix(out, FailureMarker))
	assert.Contains(t, out, "Reply began with: Here are the scenarios you asked for")
}

func TestRun_UnknownVariant(t *testing.T) {
	p := New("batch", Deps{Extractor: textExtractor("x")})
	out := p.Run(context.Background(), pdf, model.ProviderOpenAI)
	assert.Equal(t, `❌ unsupported variant "batch"`, out)
}

func TestFormatFailure_Cancelled(t *testing.T) {
	err := &RunError{Stage: model.RunStatusAnalyzing, Err: &analyzer.Error{
		Task: "document", Provider: model.ProviderOpenAI,
		Err: &gateway.ProviderError{Provider: model.ProviderOpenAI, Err: context.Canceled},
	}}
	assert.Equal(t, "❌ Request cancelled.", FormatFailure(err))
}

func TestFormatFailure_Unexpected(t *testing.T) {
	assert.Equal(t, "❌ Unexpected error: boom", FormatFailure(errors.New("boom")))
}

func TestFormatFailure_EmptyReply(t *testing.T) {
	err := &analyzer.Error{Task: "fee_schedule", Provider: model.ProviderOpenAI,
		Err: &response.MalformedResponseError{Schema: "fee_schedule", Err: errors.New("unexpected end of JSON input")}}
	assert.Equal(t, "❌ Analysis failed: the model's reply was empty (fee_schedule).", FormatFailure(err))
}
