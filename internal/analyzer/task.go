package analyzer

import (
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/prompt"
	"github.com/sells-group/doc-analyzer/internal/response"
)

// Task is one fixed prompt/response shape: the persona sent as the system
// message, the prompt builder, and the schema the reply must satisfy.
type Task[T any] struct {
	Name    string
	Persona string
	Prompt  func(text, feedback string) string
	Schema  response.Schema[T]
}

// FeeScheduleTask derives fee scenarios from an exchange fee schedule.
var FeeScheduleTask = Task[model.FeeScheduleAnalysis]{
	Name:    "fee_schedule",
	Persona: prompt.FeeAnalystPersona,
	Prompt:  prompt.FeeSchedule,
	Schema:  response.FeeScheduleSchema,
}

// DocumentTask produces the four-section document analysis.
var DocumentTask = Task[model.DocumentAnalysis]{
	Name:    "document",
	Persona: prompt.DocumentExpertPersona,
	Prompt:  prompt.Document,
	Schema:  response.DocumentSchema,
}
