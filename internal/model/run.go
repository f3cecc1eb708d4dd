package model

// RunStatus is the orchestrator state of a single analysis run.
type RunStatus string

const (
	RunStatusExtracting RunStatus = "extracting"
	RunStatusAnalyzing  RunStatus = "analyzing"
	RunStatusEvaluating RunStatus = "evaluating"
	RunStatusRetrying   RunStatus = "retrying_analysis"
	RunStatusFormatting RunStatus = "formatting"
	RunStatusDone       RunStatus = "done"
	RunStatusErrored    RunStatus = "errored"
)

// Terminal reports whether no further transitions leave this status.
func (s RunStatus) Terminal() bool {
	return s == RunStatusDone || s == RunStatusErrored
}

// TokenUsage tracks token consumption of one provider call.
type TokenUsage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}
