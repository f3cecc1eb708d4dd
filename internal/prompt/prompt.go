// Package prompt builds the fixed prompts sent to the LLM for each task.
package prompt

import (
	"strings"

	"github.com/sells-group/doc-analyzer/internal/model"
)

// System personas sent with every request of the matching task.
const (
	FeeAnalystPersona       = "You are a financial fee analyst AI."
	DocumentExpertPersona   = "You are a document analysis expert."
	QualityEvaluatorPersona = "You are a quality evaluator for document analysis outputs."
)

const (
	feedbackHeader          = "# Feedback from evaluator:"
	feedbackRevisionRequest = "Please revise your output accordingly."
	sequenceSeparator       = ", "
)

const feeScheduleInstructions = `You are a financial pricing analyst AI. Given the exchange fee schedule below:

1. Identify participant types, volume tiers, and order types
2. Generate 3–5 realistic example scenarios showing estimated fees and rebates
3. Provide short notes explaining how each result was derived

Return ONLY your response in this exact JSON format (no explanation, no Markdown):
{
  "scenarios": [
    {
      "participant_type": "...",
      "volume_tier": "...",
      "order_type": "...",
      "estimated_fee": "...",
      "rebate": "...",
      "notes": "..."
    }
  ]
}

Document:
`

const documentInstructions = `You are a document analysis expert.

Your task is to:
1. Summarize the document in 3-4 sentences.
2. Identify key topics or themes.
3. Highlight risks, unclear language, or potential issues.
4. Recommend next actions for the user.

Return ONLY your response in this exact JSON format (no explanation, no Markdown):
{
  "summary": "...",
  "key_topics": ["..."],
  "risks_or_issues": ["..."],
  "recommended_actions": ["..."]
}

Document text:
`

const evaluationInstructions = `Evaluate if the above response:
1. Includes all 4 required sections
2. Provides specific, useful risks and actions
3. Uses clear, professional language

Return ONLY your judgment in this exact JSON format (no explanation, no Markdown):
{
  "is_acceptable": true or false,
  "feedback": "Short explanation of what is missing or how to improve"
}
`

// FeeSchedule builds the fee-scenario prompt for an exchange fee schedule.
func FeeSchedule(text, feedback string) string {
	return build(feeScheduleInstructions, text, feedback)
}

// Document builds the four-section document analysis prompt.
func Document(text, feedback string) string {
	return build(documentInstructions, text, feedback)
}

func build(instructions, text, feedback string) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("---\n")
	b.WriteString(text)
	b.WriteString("\n---\n")
	if strings.TrimSpace(feedback) != "" {
		b.WriteString("\n")
		b.WriteString(feedbackHeader)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(feedback))
		b.WriteString("\n\n")
		b.WriteString(feedbackRevisionRequest)
		b.WriteString("\n")
	}
	return b.String()
}

// Evaluation builds the review prompt for a document analysis. Sequence
// fields are joined with ", ".
func Evaluation(a *model.DocumentAnalysis) string {
	var b strings.Builder
	b.WriteString("You are a document analysis evaluator. You will be given a structured output and must check if it meets the requirements.\n\n")
	b.WriteString("Here is the model's structured output:\n---\n")
	b.WriteString("Summary:\n")
	b.WriteString(a.Summary)
	b.WriteString("\n\nKey Topics:\n")
	b.WriteString(strings.Join(a.KeyTopics, sequenceSeparator))
	b.WriteString("\n\nRisks or Issues:\n")
	b.WriteString(strings.Join(a.RisksOrIssues, sequenceSeparator))
	b.WriteString("\n\nRecommended Actions:\n")
	b.WriteString(strings.Join(a.RecommendedActions, sequenceSeparator))
	b.WriteString("\n---\n\n")
	b.WriteString(evaluationInstructions)
	return b.String()
}
