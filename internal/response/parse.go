package response

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/sells-group/doc-analyzer/internal/model"
)

// PreviewRunes bounds the reply text carried by MalformedResponseError.
const PreviewRunes = 300

// MalformedResponseError reports a reply that could not be parsed into the
// expected record. Preview holds the start of the normalized reply.
type MalformedResponseError struct {
	Schema  string
	Preview string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed %s response: %v", e.Schema, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// Schema pairs a compiled JSON Schema with the Go record it describes.
type Schema[T any] struct {
	name   string
	schema *jsonschema.Schema
}

// Name returns the schema's short name, e.g. "document".
func (s Schema[T]) Name() string {
	return s.name
}

func newSchema[T any](name, src string) Schema[T] {
	return Schema[T]{
		name:   name,
		schema: jsonschema.MustCompileString(name+".json", src),
	}
}

// Every field is required and typed, so null or missing values fail validation.
var (
	FeeScheduleSchema = newSchema[model.FeeScheduleAnalysis]("fee_schedule", `{
		"type": "object",
		"required": ["scenarios"],
		"properties": {
			"scenarios": {
				"type": "array",
				"items": {
					"type": "object",
					"required": ["participant_type", "volume_tier", "order_type", "estimated_fee", "rebate", "notes"],
					"properties": {
						"participant_type": {"type": "string"},
						"volume_tier": {"type": "string"},
						"order_type": {"type": "string"},
						"estimated_fee": {"type": "string"},
						"rebate": {"type": "string"},
						"notes": {"type": "string"}
					}
				}
			}
		}
	}`)

	DocumentSchema = newSchema[model.DocumentAnalysis]("document", `{
		"type": "object",
		"required": ["summary", "key_topics", "risks_or_issues", "recommended_actions"],
		"properties": {
			"summary": {"type": "string"},
			"key_topics": {"type": "array", "items": {"type": "string"}},
			"risks_or_issues": {"type": "array", "items": {"type": "string"}},
			"recommended_actions": {"type": "array", "items": {"type": "string"}}
		}
	}`)

	EvaluationSchema = newSchema[model.EvaluationResult]("evaluation", `{
		"type": "object",
		"required": ["is_acceptable", "feedback"],
		"properties": {
			"is_acceptable": {"type": "boolean"},
			"feedback": {"type": "string"}
		}
	}`)
)

// Parse normalizes raw, decodes it as JSON, validates it against s and
// returns the typed record. Any failure is a *MalformedResponseError.
func Parse[T any](raw string, s Schema[T]) (*T, error) {
	text := Normalize(raw)
	malformed := func(err error) error {
		return &MalformedResponseError{
			Schema:  s.name,
			Preview: Preview(text, PreviewRunes),
			Err:     err,
		}
	}

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, malformed(eris.Wrap(err, "response: decode json"))
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, malformed(eris.Wrap(err, "response: validate"))
	}

	var out T
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, malformed(eris.Wrap(err, "response: decode record"))
	}
	return &out, nil
}
