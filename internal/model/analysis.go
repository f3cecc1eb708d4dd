package model

// FeeScenario is one worked example derived from an exchange fee schedule.
// All values are free text as quoted by the model.
type FeeScenario struct {
	ParticipantType string `json:"participant_type" yaml:"participant_type"`
	VolumeTier      string `json:"volume_tier" yaml:"volume_tier"`
	OrderType       string `json:"order_type" yaml:"order_type"`
	EstimatedFee    string `json:"estimated_fee" yaml:"estimated_fee"`
	Rebate          string `json:"rebate" yaml:"rebate"`
	Notes           string `json:"notes" yaml:"notes"`
}

// FeeScheduleAnalysis is the structured result of the fee-schedule task.
type FeeScheduleAnalysis struct {
	Scenarios []FeeScenario `json:"scenarios" yaml:"scenarios"`
}

// DocumentAnalysis is the structured result of the document-analysis task.
type DocumentAnalysis struct {
	Summary            string   `json:"summary" yaml:"summary"`
	KeyTopics          []string `json:"key_topics" yaml:"key_topics"`
	RisksOrIssues      []string `json:"risks_or_issues" yaml:"risks_or_issues"`
	RecommendedActions []string `json:"recommended_actions" yaml:"recommended_actions"`
}

// EvaluationResult is the evaluator's verdict on a DocumentAnalysis.
type EvaluationResult struct {
	IsAcceptable bool   `json:"is_acceptable" yaml:"is_acceptable"`
	Feedback     string `json:"feedback" yaml:"feedback"`
}
